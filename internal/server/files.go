// files.go - File registry: metadata records for uploaded objects.
package server

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// File is the metadata record for one stored object. StoredName is the
// derived storage key; OriginalName is what the user sees. A record only
// exists once both the extension pre-filter and the post-write content
// detection have passed.
type File struct {
	ID           int64
	StoredName   string
	OriginalName string
	FileType     string // pdf, png, or jpeg
	OwnerID      int64
	UploadedAt   time.Time
}

// IsImage reports whether the file can be served by the preview endpoint.
func (f *File) IsImage() bool {
	switch f.FileType {
	case "png", "jpg", "jpeg":
		return true
	}
	return false
}

// FileStore persists file metadata.
type FileStore interface {
	Insert(ctx context.Context, f *File) (int64, error)
	ByID(ctx context.Context, id int64) (*File, error)
	ByOwner(ctx context.Context, ownerID int64) ([]File, error)
	Delete(ctx context.Context, id int64) error
}

// pgFileStore is the PostgreSQL FileStore.
type pgFileStore struct {
	db *sql.DB
}

// NewFileStore returns a FileStore backed by the given pool.
func NewFileStore(db *sql.DB) FileStore {
	return &pgFileStore{db: db}
}

func (s *pgFileStore) Insert(ctx context.Context, f *File) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO files (stored_filename, original_filename, file_type, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		f.StoredName, f.OriginalName, f.FileType, f.OwnerID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *pgFileStore) ByID(ctx context.Context, id int64) (*File, error) {
	var f File
	err := s.db.QueryRowContext(ctx, `
		SELECT id, stored_filename, original_filename, file_type, user_id, uploaded_at
		FROM files
		WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.StoredName, &f.OriginalName, &f.FileType, &f.OwnerID, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (s *pgFileStore) ByOwner(ctx context.Context, ownerID int64) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stored_filename, original_filename, file_type, user_id, uploaded_at
		FROM files
		WHERE user_id = $1
		ORDER BY uploaded_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.StoredName, &f.OriginalName, &f.FileType, &f.OwnerID, &f.UploadedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func (s *pgFileStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
