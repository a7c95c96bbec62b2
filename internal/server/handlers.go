// handlers.go - Registration, login, logout, dashboard, and the
// username availability probe.
package server

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Flash    *Flash
	Username string
	Files    []File
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		Error("template render failed", map[string]any{"template": name}, err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if s.isAuthenticated(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderPage(w, "register.html", pageData{Flash: popFlash(w, r)})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.isAuthenticated(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	confirm := r.FormValue("confirm_password")

	err := registerUser(r.Context(), s.users, username, password, confirm)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			setFlash(w, "danger", verr.Message)
		case errors.Is(err, ErrUsernameTaken):
			setFlash(w, "danger", "Username already exists")
		default:
			s.logError(r, "registration failed", err)
			setFlash(w, "danger", "Registration failed, please try again")
		}
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	registrationsTotal.Inc()
	setFlash(w, "success", "Registration successful! Please login.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.isAuthenticated(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.renderPage(w, "login.html", pageData{Flash: popFlash(w, r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.isAuthenticated(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := authenticateUser(r.Context(), s.users, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			loginFailures.Inc()
			s.renderPage(w, "login.html", pageData{
				Flash: &Flash{Level: "danger", Message: "Invalid username or password"},
			})
			return
		}
		s.logError(r, "login failed", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	token, expires, err := s.sessions.Create(r.Context(), user.ID)
	if err != nil {
		s.logError(r, "session create failed", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, token, expires)

	// Secondary bearer credential for API-style access.
	if bearer, exp, err := s.tokens.Issue(user); err == nil {
		s.setTokenCookie(w, bearer, exp)
	} else {
		s.logError(r, "token issue failed", err)
	}

	loginsTotal.Inc()
	setFlash(w, "success", "Login successful!")
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cfg.SessionCookieName); err == nil && c.Value != "" {
		if err := s.sessions.Delete(r.Context(), c.Value); err != nil {
			s.logError(r, "session delete failed", err)
		}
	}
	s.clearSessionCookie(w)
	s.clearTokenCookie(w)
	setFlash(w, "success", "Logged out successfully")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	files, err := s.files.ByOwner(r.Context(), user.ID)
	if err != nil {
		s.logError(r, "file list failed", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	s.renderPage(w, "dashboard.html", pageData{
		Flash:    popFlash(w, r),
		Username: user.Username,
		Files:    files,
	})
}

// checkUsernameResp is the JSON shape of the availability probe. The
// shape is identical for both outcomes.
type checkUsernameResp struct {
	Available bool   `json:"available"`
	Message   string `json:"message"`
}

func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	available, message, err := usernameAvailable(r.Context(), s.users, r.FormValue("username"))
	if err != nil {
		s.logError(r, "availability check failed", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(checkUsernameResp{
		Available: available,
		Message:   message,
	})
}
