package handlers

import (
	"net/http"
	"strings"

	"github.com/veloracart/velora/internal/session"
)

// Login redirects to the identity provider's authorization URL.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromContext(r.Context())

	loginResult, err := h.authService.StartLogin()
	if err != nil {
		logger.Error("failed to generate oauth state", "error", err)
		http.Error(w, "Failed to generate OAuth state", http.StatusInternalServerError)
		return
	}

	stateCookie := &http.Cookie{
		Name:     "oauth_state",
		Value:    loginResult.State,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.isSecure(),
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, stateCookie)

	http.Redirect(w, r, loginResult.AuthorizationURL, http.StatusTemporaryRedirect)
}

// Callback completes the authorization-code flow and starts a session.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil {
		logger.Warn("oauth state cookie not found; returning to login", "error", err)
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	clearStateCookie := &http.Cookie{
		Name:     "oauth_state",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.isSecure(),
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, clearStateCookie)

	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if state == "" || state != stateCookie.Value {
		logger.Error("oauth state mismatch")
		http.Error(w, "Invalid state", http.StatusBadRequest)
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		logger.Error("no code in oauth callback")
		http.Error(w, "No code provided", http.StatusBadRequest)
		return
	}

	user, err := h.authService.CompleteLogin(ctx, code)
	if err != nil {
		logger.Error("failed to complete login", "error", err)
		http.Error(w, "Login failed", http.StatusBadGateway)
		return
	}

	if _, err := h.sessionManager.CreateSession(ctx, w, &session.Data{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		IsAdmin: user.IsAdmin,
	}); err != nil {
		logger.Error("failed to create session", "error", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout destroys the session and clears the cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.DestroySession(r.Context(), w, r); err != nil {
		h.loggerFromContext(r.Context()).Warn("failed to destroy session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
