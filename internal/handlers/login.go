package handlers

import (
	"net/http"
	"strings"

	"github.com/ctenopool/labeler/internal/models"
)

const afterLoginPath = "/single"

// HandleLogin renders the login view, or sends signed-in users on to labeling.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.auth.Current(r) != nil {
		http.Redirect(w, r, afterLoginPath, http.StatusFound)
		return
	}
	h.render(w, r, "login", pageData{
		Title:          "Welcome to CtenoPool",
		GoogleClientID: h.googleClientID,
		LoginURI:       absoluteURL(r, "/login/google"),
		DevLogin:       h.devLogin,
	})
}

// HandleGoogleLogin receives the credential posted by Google Identity Services.
func (h *Handler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	id, err := h.auth.VerifyCredential(r)
	if err != nil {
		h.logger.Warn("Google sign-in rejected", "err", err)
		h.auth.AddFlash(w, r, "Sign-in failed. Please try again.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.signIn(w, r, id)
}

// HandleDevLogin signs in with a typed name, for local runs without Google.
func (h *Handler) HandleDevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.devLogin {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	id := &models.Identity{
		DisplayName: strings.TrimSpace(r.PostFormValue("name")),
		Email:       strings.TrimSpace(r.PostFormValue("email")),
	}
	if id.DisplayName == "" && id.Email == "" {
		h.auth.AddFlash(w, r, "Enter a name or an email address.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	id.Subject = "dev:" + id.Label()
	h.signIn(w, r, id)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, id *models.Identity) {
	if err := h.auth.SignIn(w, r, id); err != nil {
		h.writeError(w, "Unable to sign in: "+err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, afterLoginPath, http.StatusSeeOther)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(w, r); err != nil {
		h.logger.Error("Unable to sign out", "err", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + path
}
