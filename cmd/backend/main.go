package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"filebox/internal/db"
	"filebox/internal/server"
)

func main() {
	if err := server.ValidateStartupConfig(); err != nil {
		log.Printf("service=filebox msg=%q err=%v", "invalid_configuration", err)
		os.Exit(1)
	}

	addr := getenvDefault("FBX_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("FBX_VERSION", "dev"),
		Commit:  getenvDefault("FBX_COMMIT", "unknown"),
	}

	// Database
	dsn := os.Getenv("DATABASE_URL")
	dbConn, err := db.Open(dsn)
	if err != nil {
		log.Printf("service=filebox msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	log.Printf("service=filebox msg=%q", "running_migrations")
	if err := db.RunMigrations(dsn); err != nil {
		log.Printf("service=filebox msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}
	log.Printf("service=filebox msg=%q", "migrations_complete")

	// Blob storage backend
	store, err := newBlobStore()
	if err != nil {
		log.Printf("service=filebox msg=%q err=%v", "storage_init_failed", err)
		os.Exit(1)
	}

	// Content type detection strategy
	var detector server.ContentTypeDetector = server.SniffDetector{}
	if getenvDefault("FBX_TYPE_DETECTION", "sniff") == "extension" {
		detector = server.ExtensionDetector{}
	}

	tokens, err := server.NewTokenIssuer(os.Getenv("FBX_TOKEN_SECRET"), time.Hour)
	if err != nil {
		log.Printf("service=filebox msg=%q err=%v", "token_issuer_init_failed", err)
		os.Exit(1)
	}

	maxUpload := int64(16 << 20)
	if raw := os.Getenv("FBX_MAX_UPLOAD_BYTES"); raw != "" {
		maxUpload, _ = strconv.ParseInt(raw, 10, 64)
	}

	srv := server.New(server.Config{
		Addr:           addr,
		Build:          build,
		DB:             dbConn,
		Users:          server.NewUserStore(dbConn),
		Files:          server.NewFileStore(dbConn),
		Sessions:       server.NewSessionStore(dbConn, 12*time.Hour),
		Store:          store,
		Detector:       detector,
		Tokens:         tokens,
		MaxUploadBytes: maxUpload,
		SecureCookies:  getenvDefault("FBX_SECURE_COOKIES", "false") == "true",
	})

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=filebox msg=%q addr=%s version=%s commit=%s",
			"starting", addr, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=filebox msg=%q signal=%s", "shutting_down", sig.String())
		// Give in-flight requests 5 seconds to finish.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=filebox msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=filebox msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=filebox msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// newBlobStore builds the configured storage backend: the flat upload
// directory by default, or an S3/MinIO bucket.
func newBlobStore() (server.BlobStore, error) {
	if getenvDefault("FBX_STORAGE_BACKEND", "disk") == "s3" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.NewMinioStore(ctx, server.MinioConfig{
			Endpoint:  os.Getenv("FBX_S3_ENDPOINT"),
			AccessKey: os.Getenv("FBX_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("FBX_S3_SECRET_KEY"),
			Bucket:    os.Getenv("FBX_S3_BUCKET"),
		})
	}
	return server.NewDiskStore(getenvDefault("FBX_UPLOAD_DIR", "uploads"))
}

// getenvDefault reads an environment variable and returns a default value
// if not set. Kept here so main stays self-contained.
func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
