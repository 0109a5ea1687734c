package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ctenopool/labeler/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const sessionName = "labeler"

var (
	// ErrInvalidToken is returned when the identity provider's token does not verify.
	ErrInvalidToken = errors.New("invalid identity token")
	// ErrCSRF is returned when the sign-in form's CSRF token does not match its cookie.
	ErrCSRF = errors.New("failed to verify double submit cookie")
	// ErrMissingCredential is returned when the sign-in form carries no credential.
	ErrMissingCredential = errors.New("missing credential")
)

// TokenVerifier turns an identity provider token into a user identity
type TokenVerifier interface {
	Verify(r *http.Request, token string) (*models.Identity, error)
}

// Manager keeps the signed-in identity in a signed cookie session. It is
// the single source of truth for who is signed in and is passed to every
// view that needs it.
type Manager struct {
	store    sessions.Store
	verifier TokenVerifier
}

func NewManager(store sessions.Store, verifier TokenVerifier) *Manager {
	return &Manager{store: store, verifier: verifier}
}

// NewCookieStore builds the cookie store. An empty secret gets a random key,
// which logs everyone out on restart.
func NewCookieStore(secret string, secure bool) (*sessions.CookieStore, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		slog.Warn("No session secret configured, using an ephemeral key")
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

func (m *Manager) session(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, sessionName)
	if err != nil {
		// a cookie signed with an old key decodes to a fresh session
		slog.Debug("Discarding unreadable session cookie", "err", err)
	}
	return s
}

// Current returns the signed-in identity, or nil.
func (m *Manager) Current(r *http.Request) *models.Identity {
	s := m.session(r)
	if auth, _ := s.Values["authenticated"].(bool); !auth {
		return nil
	}
	id := &models.Identity{}
	id.Subject, _ = s.Values["sub"].(string)
	id.DisplayName, _ = s.Values["name"].(string)
	id.Email, _ = s.Values["email"].(string)
	return id
}

// SignIn stores id in the session cookie.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, id *models.Identity) error {
	if id == nil {
		return ErrInvalidToken
	}
	s := m.session(r)
	s.Values["authenticated"] = true
	s.Values["sub"] = id.Subject
	s.Values["name"] = id.DisplayName
	s.Values["email"] = id.Email
	if err := s.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	slog.Info("User signed in", "user", id.Label())
	return nil
}

// SignOut forgets the identity but keeps the browser ID.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	s := m.session(r)
	for _, k := range []string{"authenticated", "sub", "name", "email"} {
		delete(s.Values, k)
	}
	return s.Save(r, w)
}

// BrowserID returns a stable random ID for this browser, creating one if needed.
func (m *Manager) BrowserID(w http.ResponseWriter, r *http.Request) (string, error) {
	s := m.session(r)
	if id, ok := s.Values["browser"].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	s.Values["browser"] = id
	if err := s.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return id, nil
}

// AddFlash queues a one-time notice for the next rendered view.
func (m *Manager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) {
	s := m.session(r)
	s.AddFlash(msg)
	if err := s.Save(r, w); err != nil {
		slog.Error("Unable to save flash", "err", err)
	}
}

// Flashes pops the queued notices.
func (m *Manager) Flashes(w http.ResponseWriter, r *http.Request) []string {
	s := m.session(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := s.Save(r, w); err != nil {
		slog.Error("Unable to save session", "err", err)
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		if msg, ok := f.(string); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// VerifyCredential checks a sign-in form posted by the identity provider.
// The provider double-submits g_csrf_token as a cookie and a form field.
func (m *Manager) VerifyCredential(r *http.Request) (*models.Identity, error) {
	if m.verifier == nil {
		return nil, ErrInvalidToken
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse sign-in form: %w", err)
	}

	cookie, err := r.Cookie("g_csrf_token")
	if err != nil || cookie.Value == "" {
		return nil, fmt.Errorf("%w: no CSRF token in cookie", ErrCSRF)
	}
	if r.PostFormValue("g_csrf_token") != cookie.Value {
		return nil, ErrCSRF
	}

	credential := r.PostFormValue("credential")
	if credential == "" {
		return nil, ErrMissingCredential
	}
	return m.verifier.Verify(r, credential)
}

// RequireUser redirects to the login view when nobody is signed in.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Current(r) == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
