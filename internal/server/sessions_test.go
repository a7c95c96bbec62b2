package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionToken(t *testing.T) {
	a, err := newSessionToken()
	require.NoError(t, err)
	b, err := newSessionToken()
	require.NoError(t, err)

	assert.Len(t, a, 64) // 32 bytes hex-encoded
	assert.NotEqual(t, a, b)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	assert.Empty(t, bearerToken(req, "fbx_token"))

	req.Header.Set("Authorization", "Bearer abc123")
	assert.Equal(t, "abc123", bearerToken(req, "fbx_token"))

	// Header wins over the cookie.
	req.AddCookie(&http.Cookie{Name: "fbx_token", Value: "from-cookie"})
	assert.Equal(t, "abc123", bearerToken(req, "fbx_token"))

	// Basic credentials are not a bearer token; fall back to the cookie.
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "from-cookie", bearerToken(req, "fbx_token"))
}

func TestResolveIdentityPrefersSession(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", `Str0ng!Pass`)
	bob := env.addUser(t, "bob", `Other!Pass123`)
	session := env.sessionFor(t, alice.ID)

	bearer, _, err := env.srv.tokens.Issue(bob)
	require.NoError(t, err)

	// Both credentials present: the session decides.
	req := withSession(httptest.NewRequest(http.MethodGet, "/dashboard", nil), session)
	req.Header.Set("Authorization", "Bearer "+bearer)

	u, err := env.srv.resolveIdentity(req)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestResolveIdentityExpiredSessionFallsBackToToken(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", `Str0ng!Pass`)

	bearer, _, err := env.srv.tokens.Issue(alice)
	require.NoError(t, err)

	// Session token that the store does not know about.
	req := withSession(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "deadbeef")
	req.Header.Set("Authorization", "Bearer "+bearer)

	u, err := env.srv.resolveIdentity(req)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestResolveIdentityAnonymous(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.srv.resolveIdentity(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.ErrorIs(t, err, ErrNotFound)
}
