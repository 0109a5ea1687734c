package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ctenopool/labeler/internal/labeling"
	"github.com/gorilla/mux"
)

type sessionSummary struct {
	ID       string            `json:"id"`
	Mode     string            `json:"mode"`
	Phase    labeling.Phase    `json:"phase"`
	Counters labeling.Counters `json:"counters"`
	Percent  int               `json:"percent"`
}

// HandleSessions lists the labeling sessions open in this browser.
func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	browser, err := h.auth.BrowserID(w, r)
	if err != nil {
		h.writeError(w, "Unable to identify browser", http.StatusInternalServerError)
		return
	}

	list := make([]sessionSummary, 0)
	for id, s := range h.singles.GetAll() {
		if owner, _ := h.singles.Owner(id); owner == browser {
			v := s.Snapshot()
			list = append(list, sessionSummary{ID: id, Mode: labeling.ModeSingle, Phase: v.Phase, Counters: v.Counters, Percent: v.Percent})
		}
	}
	for id, s := range h.pairs.GetAll() {
		if owner, _ := h.pairs.Owner(id); owner == browser {
			v := s.Snapshot()
			list = append(list, sessionSummary{ID: id, Mode: labeling.ModePair, Phase: v.Phase, Counters: v.Counters, Percent: v.Percent})
		}
	}
	h.writeJSON(w, list)
}

// HandleSessionDetail returns a snapshot of one session, or tears it down on DELETE.
func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if s, ok := h.singles.Get(sessionID); ok && h.ownedBy(w, r, h.singles.Owner, sessionID) {
		switch r.Method {
		case http.MethodGet:
			h.writeJSON(w, s.Snapshot())
		case http.MethodDelete:
			h.singles.Delete(sessionID)
			w.WriteHeader(http.StatusNoContent)
		default:
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if s, ok := h.pairs.Get(sessionID); ok && h.ownedBy(w, r, h.pairs.Owner, sessionID) {
		switch r.Method {
		case http.MethodGet:
			h.writeJSON(w, s.Snapshot())
		case http.MethodDelete:
			h.pairs.Delete(sessionID)
			w.WriteHeader(http.StatusNoContent)
		default:
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	h.writeError(w, "Session not found", http.StatusNotFound)
}

// HandleHistory returns the signed-in user's recent journaled submissions.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeError(w, "Journal not enabled", http.StatusNotFound)
		return
	}
	user := h.auth.Current(r)
	if user == nil {
		h.writeError(w, "Not signed in", http.StatusUnauthorized)
		return
	}
	records, err := h.history.Recent(r.Context(), user.Label(), 50)
	if err != nil {
		h.writeError(w, "Unable to read journal: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, records)
}

// Sweep drops sessions idle for longer than maxAge.
func (h *Handler) Sweep(maxAge time.Duration) int {
	return h.singles.Sweep(maxAge) + h.pairs.Sweep(maxAge)
}

// RunSweeper sweeps idle sessions until ctx is done.
func (h *Handler) RunSweeper(ctx context.Context, maxAge time.Duration) {
	ticker := time.NewTicker(max(maxAge/4, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Sweep(maxAge); n > 0 {
				h.logger.Info("Swept idle labeling sessions", "count", n)
			}
		}
	}
}
