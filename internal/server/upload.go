// upload.go - Upload pipeline: allow-list, sanitize, store, re-detect,
// commit metadata.
//
// The extension check is only a pre-filter; the detector's verdict on the
// stored object decides the persisted type. A failed detection or a failed
// metadata commit rolls the blob back so no orphaned object survives the
// request.
package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// allowedExtensions is the upload allow-list. "jpg" is accepted here but
// detection normalizes the stored type to "jpeg".
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// allowedFile reports whether the declared filename passes the
// case-insensitive extension allow-list. No extension means rejection.
func allowedFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return allowedExtensions[ext]
}

// allowedStoredTypes is what the detector may commit to the registry.
var allowedStoredTypes = map[string]bool{
	"pdf":  true,
	"png":  true,
	"jpeg": true,
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	// Enforce the body cap before any byte is read from the part.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			uploadsRejected.WithLabelValues("size").Inc()
			setFlash(w, "danger", "File is too large")
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		setFlash(w, "danger", "No file selected")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		setFlash(w, "danger", "No file selected")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if !allowedFile(header.Filename) {
		uploadsRejected.WithLabelValues("extension").Inc()
		setFlash(w, "danger", "Invalid file type. Only PDF, PNG, and JPG files are allowed.")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	filename := sanitizeFilename(header.Filename)
	key := storageKey(user.Username, filename)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := s.store.Put(ctx, key, file); err != nil {
		s.logError(r, "blob write failed", err)
		uploadsRejected.WithLabelValues("storage").Inc()
		setFlash(w, "danger", "Upload failed")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	// Authoritative type check on the stored object.
	fileType, err := s.detectStored(ctx, key)
	if err != nil || !allowedStoredTypes[fileType] {
		if err != nil {
			s.logError(r, "type detection failed", err)
		}
		_ = s.store.Remove(ctx, key)
		uploadsRejected.WithLabelValues("type").Inc()
		setFlash(w, "danger", "Invalid file type detected")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	_, err = s.files.Insert(ctx, &File{
		StoredName:   key,
		OriginalName: filename,
		FileType:     fileType,
		OwnerID:      user.ID,
	})
	if err != nil {
		// Roll the blob back rather than leaving an orphaned object.
		_ = s.store.Remove(ctx, key)
		s.logError(r, "metadata insert failed", err)
		setFlash(w, "danger", "Upload failed")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	uploadsTotal.Inc()
	setFlash(w, "success", "File uploaded successfully")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// isBodyTooLarge reports whether a multipart parse failure was caused by
// the MaxBytesReader cap. The multipart reader does not always wrap the
// *http.MaxBytesError, so the message is checked as a fallback.
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// detectStored re-opens the stored object and runs the configured
// detector against its name and content.
func (s *Server) detectStored(ctx context.Context, key string) (string, error) {
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()
	return s.detector.Detect(key, rc)
}
