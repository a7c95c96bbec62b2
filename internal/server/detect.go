package server

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// ContentTypeDetector decides the authoritative file type of a stored
// object. The extension allow-list applied before the write is only a
// pre-filter; the detector's verdict after the write is what gets
// persisted. Implementations return one of "pdf", "png", "jpeg", or ""
// when the content is not an accepted type.
type ContentTypeDetector interface {
	Detect(name string, r io.Reader) (string, error)
}

// normalizeMimeType maps a MIME type to the stored file_type value.
// "jpg" never survives detection: image/jpeg normalizes to "jpeg".
func normalizeMimeType(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx > 0 {
		mimeType = mimeType[:idx]
	}
	switch strings.TrimSpace(mimeType) {
	case "application/pdf":
		return "pdf"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpeg"
	}
	return ""
}

// SniffDetector inspects the object's leading bytes with
// http.DetectContentType. This is the default detector: magic-byte
// sniffing catches a .png upload whose body is not actually a PNG.
type SniffDetector struct{}

func (SniffDetector) Detect(name string, r io.Reader) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return normalizeMimeType(http.DetectContentType(buf[:n])), nil
}

// ExtensionDetector guesses the type from the stored name alone. It is a
// drop-in alternative for deployments that want extension-only checks.
type ExtensionDetector struct{}

func (ExtensionDetector) Detect(name string, _ io.Reader) (string, error) {
	return normalizeMimeType(mime.TypeByExtension(filepath.Ext(name))), nil
}
