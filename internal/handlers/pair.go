package handlers

import (
	"errors"
	"net/http"

	"github.com/ctenopool/labeler/internal/labeling"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HandlePairMount opens a fresh pair session for this browser.
func (h *Handler) HandlePairMount(w http.ResponseWriter, r *http.Request) {
	browser, err := h.auth.BrowserID(w, r)
	if err != nil {
		h.writeError(w, "Unable to identify browser: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s := labeling.NewPairSession(uuid.NewString(), h.api, h.sessionOptions()...)
	h.pairs.Mount(browser, s)
	h.logger.Info("Pair session mounted", "session_id", s.ID())

	http.Redirect(w, r, "/pair/"+s.ID(), http.StatusSeeOther)
}

func (h *Handler) pairFor(w http.ResponseWriter, r *http.Request) (*labeling.PairSession, bool) {
	id := mux.Vars(r)["id"]
	s, ok := h.pairs.Get(id)
	if ok && h.ownedBy(w, r, h.pairs.Owner, id) {
		return s, true
	}
	http.Redirect(w, r, "/pair", http.StatusSeeOther)
	return nil, false
}

func (h *Handler) HandlePairView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.pairFor(w, r)
	if !ok {
		return
	}

	if err := s.Start(detached(r)); err != nil && !errors.Is(err, labeling.ErrSessionClosed) {
		h.auth.AddFlash(w, r, notice(err))
	}

	view := s.Snapshot()
	h.render(w, r, "pair", pageData{
		Title:      "Two-Image Pair",
		Pair:       &view,
		Progress:   progressOf(view.Counters, "pairs"),
		ActionBase: "/pair/" + view.ID,
	})
}

func (h *Handler) HandlePairAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.pairFor(w, r)
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
	case "extend":
		err = s.Extend(detached(r))
	case "finish":
		err = s.Finish()
	default:
		http.NotFound(w, r)
		return
	}

	h.afterAction(w, r, err, "/pair", "/pair/"+s.ID())
}
