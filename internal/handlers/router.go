package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// Router wires every route of the labeling interface.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	signedIn := h.auth.RequireUser

	r.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	}).Methods(http.MethodGet)

	r.HandleFunc("/", h.HandleLogin).Methods(http.MethodGet)
	r.HandleFunc("/login", h.HandleLogin).Methods(http.MethodGet)
	r.HandleFunc("/login/google", h.HandleGoogleLogin).Methods(http.MethodPost)
	r.HandleFunc("/login/dev", h.HandleDevLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.HandleLogout).Methods(http.MethodPost)

	r.Handle("/single", signedIn(http.HandlerFunc(h.HandleSingleMount))).Methods(http.MethodGet)
	r.Handle("/single/{id}", signedIn(http.HandlerFunc(h.HandleSingleView))).Methods(http.MethodGet)
	r.HandleFunc("/single/{id}/{action}", h.HandleSingleAction).Methods(http.MethodPost)

	r.Handle("/pair", signedIn(http.HandlerFunc(h.HandlePairMount))).Methods(http.MethodGet)
	r.Handle("/pair/{id}", signedIn(http.HandlerFunc(h.HandlePairView))).Methods(http.MethodGet)
	r.HandleFunc("/pair/{id}/{action}", h.HandlePairAction).Methods(http.MethodPost)

	r.HandleFunc("/api/sessions", h.HandleSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", h.HandleSessionDetail).Methods(http.MethodGet, http.MethodDelete)
	r.HandleFunc("/history", h.HandleHistory).Methods(http.MethodGet)

	r.PathPrefix("/static/").HandlerFunc(h.HandleStatic).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/", http.StatusFound)
	})

	return r
}
