// Package server implements the HTTP server and HTTP handlers for
// filebox, a multi-user web file manager. It wires together the HTTP
// routes, dependencies (database, blob storage, content type detection),
// and provides lifecycle helpers used by tests and the production binary.
package server
