package handlers

import (
	"errors"
	"net/http"

	"github.com/ctenopool/labeler/internal/labeling"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

func (h *Handler) sessionOptions() []labeling.Option {
	opts := []labeling.Option{labeling.WithLogger(h.logger)}
	if h.history != nil {
		opts = append(opts, labeling.WithRecorder(h.history))
	}
	return opts
}

// HandleSingleMount opens a fresh single-image session for this browser.
func (h *Handler) HandleSingleMount(w http.ResponseWriter, r *http.Request) {
	browser, err := h.auth.BrowserID(w, r)
	if err != nil {
		h.writeError(w, "Unable to identify browser: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s := labeling.NewSingleSession(uuid.NewString(), h.api, h.classLabels, h.sessionOptions()...)
	h.singles.Mount(browser, s)
	h.logger.Info("Single-image session mounted", "session_id", s.ID())

	http.Redirect(w, r, "/single/"+s.ID(), http.StatusSeeOther)
}

func (h *Handler) singleFor(w http.ResponseWriter, r *http.Request) (*labeling.SingleSession, bool) {
	id := mux.Vars(r)["id"]
	s, ok := h.singles.Get(id)
	if ok && h.ownedBy(w, r, h.singles.Owner, id) {
		return s, true
	}
	http.Redirect(w, r, "/single", http.StatusSeeOther)
	return nil, false
}

func (h *Handler) HandleSingleView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.singleFor(w, r)
	if !ok {
		return
	}

	if err := s.Start(detached(r)); err != nil && !errors.Is(err, labeling.ErrSessionClosed) {
		h.auth.AddFlash(w, r, notice(err))
	}

	view := s.Snapshot()
	h.render(w, r, "single", pageData{
		Title:      "Image Categorizer",
		Single:     &view,
		Progress:   progressOf(view.Counters, "images"),
		ActionBase: "/single/" + view.ID,
	})
}

func (h *Handler) HandleSingleAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.singleFor(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.writeError(w, "Invalid form: "+err.Error(), http.StatusBadRequest)
		return
	}
	choice := r.PostFormValue("choice")

	var err error
	switch mux.Vars(r)["action"] {
	case "select":
		err = s.Select(choice)
	case "submit":
		err = s.Submit(detached(r), h.auth.Current(r), choice)
	case "refresh":
		err = s.RefreshChoices(detached(r))
	case "extend":
		err = s.Extend(detached(r))
	case "finish":
		err = s.Finish()
	default:
		http.NotFound(w, r)
		return
	}

	h.afterAction(w, r, err, "/single", "/single/"+s.ID())
}

// afterAction reports err to the user and sends them back to the view.
func (h *Handler) afterAction(w http.ResponseWriter, r *http.Request, err error, mountPath, viewPath string) {
	switch {
	case err == nil:
	case errors.Is(err, labeling.ErrSessionClosed):
		viewPath = mountPath
	case errors.Is(err, labeling.ErrUnauthenticated):
		h.auth.AddFlash(w, r, notice(err))
		viewPath = "/login"
	default:
		h.logger.Warn("Labeling action failed", "path", r.URL.Path, "err", err)
		h.auth.AddFlash(w, r, notice(err))
	}
	http.Redirect(w, r, viewPath, http.StatusSeeOther)
}

// ownedBy checks that the session was mounted by the requesting browser.
func (h *Handler) ownedBy(w http.ResponseWriter, r *http.Request, owner func(string) (string, bool), id string) bool {
	browser, err := h.auth.BrowserID(w, r)
	if err != nil {
		return false
	}
	got, ok := owner(id)
	return ok && got == browser
}
