// sessions.go - Server-tracked sessions and the authentication middleware.
//
// A login creates a row in the sessions table and hands the client an
// opaque random token in an HttpOnly cookie. Requests resolve back to a
// user through the IdentityResolver, never by re-submitting credentials.
package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"
)

const defaultSessionTTL = 12 * time.Hour

// IdentityResolver maps a session token to the user it belongs to.
// Handlers depend on this interface rather than on any particular
// session machinery.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// SessionStore issues and invalidates server-side sessions. It is also
// an IdentityResolver.
type SessionStore interface {
	IdentityResolver
	Create(ctx context.Context, userID int64) (token string, expires time.Time, err error)
	Delete(ctx context.Context, token string) error
}

// pgSessionStore keeps sessions in PostgreSQL so they survive restarts
// and can be revoked server-side.
type pgSessionStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSessionStore returns a SessionStore backed by the given pool.
// A non-positive ttl falls back to 12 hours.
func NewSessionStore(db *sql.DB, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &pgSessionStore{db: db, ttl: ttl}
}

// newSessionToken returns 32 random bytes hex-encoded.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *pgSessionStore) Create(ctx context.Context, userID int64) (string, time.Time, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires := time.Now().UTC().Add(s.ttl)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, userID, expires,
	)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (s *pgSessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM sessions WHERE token = $1 AND expires_at > now()`,
		token,
	).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return userID, nil
}

func (s *pgSessionStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

type userCtxKey struct{}

// currentUser returns the authenticated user placed in the context by
// requireAuth, or nil on ungated routes.
func currentUser(r *http.Request) *User {
	u, _ := r.Context().Value(userCtxKey{}).(*User)
	return u
}

// setSessionCookie installs the session token cookie.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.SecureCookies,
	})
}

// clearSessionCookie expires the session cookie client-side.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.cfg.SecureCookies,
	})
}

// resolveIdentity finds the user for a request: the session cookie first,
// then the bearer token (Authorization header or token cookie) as the
// secondary API-style path.
func (s *Server) resolveIdentity(r *http.Request) (*User, error) {
	ctx := r.Context()

	if c, err := r.Cookie(s.cfg.SessionCookieName); err == nil && c.Value != "" {
		if userID, err := s.sessions.Resolve(ctx, c.Value); err == nil {
			return s.users.ByID(ctx, userID)
		}
	}

	if tok := bearerToken(r, s.cfg.TokenCookieName); tok != "" {
		if userID, err := s.tokens.Verify(tok); err == nil {
			return s.users.ByID(ctx, userID)
		}
	}

	return nil, ErrNotFound
}

// bearerToken extracts a bearer credential from the Authorization header
// or, failing that, from the access-token cookie set at login.
func bearerToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimPrefix(h, "Bearer ")
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireAuth gates a route on an authenticated identity. Browsers get a
// redirect to the login page rather than an opaque error.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.resolveIdentity(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), userCtxKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isAuthenticated reports whether the request carries a valid identity.
// Used by /login and /register, which bounce signed-in users to the
// dashboard.
func (s *Server) isAuthenticated(r *http.Request) bool {
	_, err := s.resolveIdentity(r)
	return err == nil
}
