// download.go - File-scoped operations behind the ownership gate:
// download, preview, delete.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// fileForRequest resolves the {fileID} path parameter to a record the
// current user owns. Unknown ids map to ErrNotFound, someone else's file
// to ErrForbidden; nothing beyond that distinction is leaked.
func (s *Server) fileForRequest(r *http.Request) (*File, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil {
		return nil, ErrNotFound
	}

	f, err := s.files.ByID(r.Context(), id)
	if err != nil {
		return nil, err
	}

	if f.OwnerID != currentUser(r).ID {
		return nil, ErrForbidden
	}
	return f, nil
}

// gateError writes the HTTP response for an access-gate failure.
func gateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

// contentTypeFor maps a stored file type to the response Content-Type.
func contentTypeFor(fileType string) string {
	if fileType == "pdf" {
		return "application/pdf"
	}
	return "image/" + fileType
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	f, err := s.fileForRequest(r)
	if err != nil {
		gateError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	obj, err := s.store.Get(ctx, f.StoredName)
	if err != nil {
		s.logError(r, "blob read failed", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = obj.Close() }()

	w.Header().Set("Content-Type", contentTypeFor(f.FileType))
	// The download is named after the original filename, not the
	// internal storage key.
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.OriginalName))
	w.WriteHeader(http.StatusOK)

	downloadsTotal.Inc()
	_, _ = io.Copy(w, obj)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	f, err := s.fileForRequest(r)
	if err != nil {
		gateError(w, err)
		return
	}

	if !f.IsImage() {
		http.Error(w, "Preview is only available for image files", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	obj, err := s.store.Get(ctx, f.StoredName)
	if err != nil {
		s.logError(r, "blob read failed", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = obj.Close() }()

	w.Header().Set("Content-Type", "image/"+f.FileType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	f, err := s.fileForRequest(r)
	if err != nil {
		gateError(w, err)
		return
	}

	ctx := r.Context()

	// A missing blob is tolerated; any other removal error is fatal and
	// the metadata record stays so the delete never appears half-done.
	if err := s.store.Remove(ctx, f.StoredName); err != nil {
		s.logError(r, "blob removal failed", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	if err := s.files.Delete(ctx, f.ID); err != nil && !errors.Is(err, ErrNotFound) {
		s.logError(r, "metadata delete failed", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	deletesTotal.Inc()
	setFlash(w, "success", "File deleted successfully")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
