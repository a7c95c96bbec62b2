// users.go - Credential store: registration, password policy, and
// DB-backed authentication.
package server

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// User is an account record. Usernames are case-sensitive and immutable
// after creation; the password is only ever stored as a bcrypt hash.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// UserStore persists accounts. Create must enforce username uniqueness at
// the storage layer and return ErrUsernameTaken on conflict.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (int64, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	ByID(ctx context.Context, id int64) (*User, error)
	Exists(ctx context.Context, username string) (bool, error)
}

var (
	hasUppercase = regexp.MustCompile(`[A-Z]`)
	hasLowercase = regexp.MustCompile(`[a-z]`)
	hasSpecial   = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

// validatePassword checks the registration password policy. It returns an
// empty string when the password is acceptable, otherwise the user-facing
// rejection message.
func validatePassword(password string) string {
	if len(password) < 10 {
		return "Password must be at least 10 characters long"
	}
	if !hasUppercase.MatchString(password) {
		return "Password must contain at least one uppercase letter"
	}
	if !hasLowercase.MatchString(password) {
		return "Password must contain at least one lowercase letter"
	}
	if !hasSpecial.MatchString(password) {
		return "Password must contain at least one special character"
	}
	return ""
}

// hashPassword generates a bcrypt hash of the password.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword compares a password with its stored hash. bcrypt's own
// comparison is used rather than string equality.
func verifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// registerUser validates the registration input and creates the account.
// Validation failures come back as *ValidationError; a duplicate username
// surfaces as ErrUsernameTaken from the unique constraint.
func registerUser(ctx context.Context, users UserStore, username, password, confirm string) error {
	if username == "" {
		return validationErr("Username is required")
	}
	if password != confirm {
		return validationErr("Passwords do not match")
	}
	if msg := validatePassword(password); msg != "" {
		return validationErr(msg)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	_, err = users.Create(ctx, username, hash)
	return err
}

// authenticateUser resolves credentials to a user. Unknown usernames and
// wrong passwords both map to ErrInvalidCredentials.
func authenticateUser(ctx context.Context, users UserStore, username, password string) (*User, error) {
	u, err := users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !verifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// usernameAvailable reports whether a trimmed, non-empty username is free.
func usernameAvailable(ctx context.Context, users UserStore, username string) (bool, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, "Username is required", nil
	}
	exists, err := users.Exists(ctx, username)
	if err != nil {
		return false, "", err
	}
	if exists {
		return false, "Username is already taken", nil
	}
	return true, "Username is available", nil
}

// pgUserStore is the PostgreSQL UserStore.
type pgUserStore struct {
	db *sql.DB
}

// NewUserStore returns a UserStore backed by the given pool.
func NewUserStore(db *sql.DB) UserStore {
	return &pgUserStore{db: db}
}

const pgUniqueViolation = "23505"

func (s *pgUserStore) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	return id, nil
}

func (s *pgUserStore) ByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`,
		username,
	))
}

func (s *pgUserStore) ByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`,
		id,
	))
}

func (s *pgUserStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *pgUserStore) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`,
		username,
	).Scan(&exists)
	return exists, err
}
