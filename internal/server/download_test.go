package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateEnv wires two users and one PNG owned by alice.
func gateEnv(t *testing.T) (env *testEnv, aliceSession, bobSession string, fileID int64) {
	t.Helper()
	env = newTestEnv(t)

	alice := env.addUser(t, "alice", `Str0ng!Pass`)
	bob := env.addUser(t, "bob", `Other!Pass123`)
	aliceSession = env.sessionFor(t, alice.ID)
	bobSession = env.sessionFor(t, bob.ID)

	ctx := context.Background()
	require.NoError(t, env.blobs.Put(ctx, "alice_photo.png", bytes.NewReader(pngBytes)))
	fileID, err := env.files.Insert(ctx, &File{
		StoredName:   "alice_photo.png",
		OriginalName: "photo.png",
		FileType:     "png",
		OwnerID:      alice.ID,
	})
	require.NoError(t, err)
	return env, aliceSession, bobSession, fileID
}

func TestDownloadOwnFile(t *testing.T) {
	env, aliceSession, _, _ := gateEnv(t)

	rr := env.do(withSession(httptest.NewRequest(http.MethodGet, "/download/1", nil), aliceSession))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="photo.png"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, pngBytes, rr.Body.Bytes())
}

func TestDownloadSomeoneElsesFileForbidden(t *testing.T) {
	env, _, bobSession, _ := gateEnv(t)

	rr := env.do(withSession(httptest.NewRequest(http.MethodGet, "/download/1", nil), bobSession))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDownloadUnknownID(t *testing.T) {
	env, aliceSession, _, _ := gateEnv(t)

	rr := env.do(withSession(httptest.NewRequest(http.MethodGet, "/download/999", nil), aliceSession))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(withSession(httptest.NewRequest(http.MethodGet, "/download/abc", nil), aliceSession))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPreviewImage(t *testing.T) {
	env, aliceSession, _, _ := gateEnv(t)

	rr := env.do(withSession(httptest.NewRequest(http.MethodGet, "/preview/1", nil), aliceSession))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	// Inline rendering: no attachment disposition on previews.
	assert.Empty(t, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, pngBytes, rr.Body.Bytes())
}

func TestPreviewPDFRejected(t *testing.T) {
	env, aliceSession, _, _ := gateEnv(t)

	alice, err := env.users.ByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NoError(t, env.blobs.Put(context.Background(), "alice_doc.pdf", bytes.NewReader(pdfBytes)))
	pdfID, err := env.files.Insert(context.Background(), &File{
		StoredName:   "alice_doc.pdf",
		OriginalName: "doc.pdf",
		FileType:     "pdf",
		OwnerID:      alice.ID,
	})
	require.NoError(t, err)

	rr := env.do(withSession(httptest.NewRequest(http.MethodGet, "/preview/"+strconv.FormatInt(pdfID, 10), nil), aliceSession))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Preview is only available for image files")
}

func TestPreviewSomeoneElsesFileForbidden(t *testing.T) {
	env, _, bobSession, _ := gateEnv(t)

	rr := env.do(withSession(httptest.NewRequest(http.MethodGet, "/preview/1", nil), bobSession))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDeleteOwnFile(t *testing.T) {
	env, aliceSession, _, fileID := gateEnv(t)

	rr := env.do(withSession(httptest.NewRequest(http.MethodPost, "/delete/1", nil), aliceSession))
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	flash := flashFrom(t, rr)
	require.NotNil(t, flash)
	assert.Equal(t, "File deleted successfully", flash.Message)

	assert.False(t, env.blobs.has("alice_photo.png"))
	_, err := env.files.ByID(context.Background(), fileID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSomeoneElsesFileForbidden(t *testing.T) {
	env, _, bobSession, fileID := gateEnv(t)

	rr := env.do(withSession(httptest.NewRequest(http.MethodPost, "/delete/1", nil), bobSession))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Nothing was touched.
	assert.True(t, env.blobs.has("alice_photo.png"))
	_, err := env.files.ByID(context.Background(), fileID)
	assert.NoError(t, err)
}

func TestDeleteWithMissingBlobStillRemovesRecord(t *testing.T) {
	env, aliceSession, _, fileID := gateEnv(t)

	// Simulate an object lost from storage out of band.
	require.NoError(t, env.blobs.Remove(context.Background(), "alice_photo.png"))

	rr := env.do(withSession(httptest.NewRequest(http.MethodPost, "/delete/1", nil), aliceSession))
	require.Equal(t, http.StatusSeeOther, rr.Code)

	_, err := env.files.ByID(context.Background(), fileID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/pdf", contentTypeFor("pdf"))
	assert.Equal(t, "image/png", contentTypeFor("png"))
	assert.Equal(t, "image/jpeg", contentTypeFor("jpeg"))
}
