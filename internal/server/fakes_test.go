package server

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// In-memory store implementations used by the handler tests. They mirror
// the PostgreSQL behavior the handlers rely on: unique usernames,
// not-found sentinels, newest-first listing.

type memUserStore struct {
	mu     sync.Mutex
	seq    int64
	byName map[string]*User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{byName: make(map[string]*User)}
}

func (s *memUserStore) Create(_ context.Context, username, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[username]; ok {
		return 0, ErrUsernameTaken
	}
	s.seq++
	s.byName[username] = &User{
		ID:           s.seq,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	return s.seq, nil
}

func (s *memUserStore) ByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byName[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memUserStore) ByID(_ context.Context, id int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byName {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memUserStore) Exists(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byName[username]
	return ok, nil
}

type memFileStore struct {
	mu    sync.Mutex
	seq   int64
	files map[int64]*File
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[int64]*File)}
}

func (s *memFileStore) Insert(_ context.Context, f *File) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	cp := *f
	cp.ID = s.seq
	if cp.UploadedAt.IsZero() {
		cp.UploadedAt = time.Now().UTC()
	}
	s.files[cp.ID] = &cp
	return cp.ID, nil
}

func (s *memFileStore) ByID(_ context.Context, id int64) (*File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.files[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memFileStore) ByOwner(_ context.Context, ownerID int64) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []File
	// Newest first: ids are monotonic, walk backwards.
	for id := s.seq; id >= 1; id-- {
		if f, ok := s.files[id]; ok && f.OwnerID == ownerID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (s *memFileStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return ErrNotFound
	}
	delete(s.files, id)
	return nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]int64
	seq      int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]int64)}
}

func (s *memSessionStore) Create(_ context.Context, userID int64) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	token, err := newSessionToken()
	if err != nil {
		return "", time.Time{}, err
	}
	s.sessions[token] = userID
	return token, time.Now().UTC().Add(time.Hour), nil
}

func (s *memSessionStore) Resolve(_ context.Context, token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID, ok := s.sessions[token]; ok {
		return userID, nil
	}
	return 0, ErrNotFound
}

func (s *memSessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// memBlobStore keeps objects in memory and records Put/Remove calls so
// tests can assert that rejected uploads never touch storage.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []string
	removes []string
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Put(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.puts = append(s.puts, key)
	return nil
}

func (s *memBlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memBlobStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.removes = append(s.removes, key)
	return nil
}

func (s *memBlobStore) Ping(_ context.Context) error { return nil }

func (s *memBlobStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *memBlobStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

// testEnv bundles a server wired to in-memory stores.
type testEnv struct {
	srv      *Server
	users    *memUserStore
	files    *memFileStore
	sessions *memSessionStore
	blobs    *memBlobStore
}

func newTestEnv(t interface{ Fatalf(string, ...any) }) *testEnv {
	users := newMemUserStore()
	files := newMemFileStore()
	sessions := newMemSessionStore()
	blobs := newMemBlobStore()

	tokens, err := NewTokenIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	srv := New(Config{
		Addr:     ":0",
		Users:    users,
		Files:    files,
		Sessions: sessions,
		Store:    blobs,
		Detector: SniffDetector{},
		Tokens:   tokens,
	})

	return &testEnv{srv: srv, users: users, files: files, sessions: sessions, blobs: blobs}
}

// addUser registers a user directly in the fake store and returns it.
func (e *testEnv) addUser(t interface{ Fatalf(string, ...any) }, username, password string) *User {
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatalf("hashPassword: %v", err)
	}
	id, err := e.users.Create(context.Background(), username, hash)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	u, err := e.users.ByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	return u
}

// sessionFor starts a session for the user and returns the token.
func (e *testEnv) sessionFor(t interface{ Fatalf(string, ...any) }, userID int64) string {
	token, _, err := e.sessions.Create(context.Background(), userID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return token
}
