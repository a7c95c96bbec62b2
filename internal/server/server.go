package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildInfo identifies the running binary in logs and health output.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config wires the server's dependencies. It is constructed once in main
// and never mutated afterwards.
type Config struct {
	Addr  string // e.g. ":8080"
	Build BuildInfo

	DB       *sql.DB
	Users    UserStore
	Files    FileStore
	Sessions SessionStore
	Store    BlobStore
	Detector ContentTypeDetector
	Tokens   *TokenIssuer

	MaxUploadBytes    int64 // request body cap for uploads
	SessionCookieName string
	TokenCookieName   string
	SecureCookies     bool
}

const defaultMaxUploadBytes = 16 << 20 // 16 MiB

// Server is the HTTP front of the file manager.
type Server struct {
	cfg        Config
	httpServer *http.Server

	db       *sql.DB
	users    UserStore
	files    FileStore
	sessions SessionStore
	store    BlobStore
	detector ContentTypeDetector
	tokens   *TokenIssuer
}

// New builds the router and returns a server ready to Start.
func New(cfg Config) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.SessionCookieName == "" {
		cfg.SessionCookieName = "fbx_session"
	}
	if cfg.TokenCookieName == "" {
		cfg.TokenCookieName = "fbx_token"
	}
	if cfg.Detector == nil {
		cfg.Detector = SniffDetector{}
	}

	s := &Server{
		cfg:      cfg,
		db:       cfg.DB,
		users:    cfg.Users,
		files:    cfg.Files,
		sessions: cfg.Sessions,
		store:    cfg.Store,
		detector: cfg.Detector,
		tokens:   cfg.Tokens,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/", s.handleIndex)

	// Credential endpoints get a per-IP limiter on top of the global
	// middleware stack.
	authLimiter := newRateLimiter(20, time.Minute)
	r.Group(func(r chi.Router) {
		r.Use(authLimiter.middleware)
		r.Get("/register", s.handleRegisterPage)
		r.Post("/register", s.handleRegister)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Post("/check_username", s.handleCheckUsername)
	})

	// Session-gated surface. Unauthenticated requests are redirected to
	// the login page.
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/logout", s.handleLogout)
		r.Get("/dashboard", s.handleDashboard)
		r.Post("/upload", s.handleUpload)
		r.Get("/download/{fileID}", s.handleDownload)
		r.Get("/preview/{fileID}", s.handlePreview)
		r.Post("/delete/{fileID}", s.handleDelete)
	})

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
