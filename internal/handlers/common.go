package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ctenopool/labeler/internal/auth"
	"github.com/ctenopool/labeler/internal/labeling"
	"github.com/ctenopool/labeler/internal/models"
	"github.com/ctenopool/labeler/internal/storage"
)

//go:embed templates/*.html static/*
var assets embed.FS

// History is the journal as seen by the handlers
type History interface {
	labeling.Recorder
	Recent(ctx context.Context, username string, limit int) ([]models.LabelRecord, error)
}

// Options wires a Handler to its collaborators
type Options struct {
	API            labeling.API
	Auth           *auth.Manager
	History        History
	ClassLabels    []string
	GoogleClientID string
	DevLogin       bool
	Logger         *slog.Logger
}

type Handler struct {
	api            labeling.API
	auth           *auth.Manager
	history        History
	classLabels    []string
	googleClientID string
	devLogin       bool
	logger         *slog.Logger
	singles        *storage.SessionStore[*labeling.SingleSession]
	pairs          *storage.SessionStore[*labeling.PairSession]
	pages          map[string]*template.Template
}

func New(opts Options) (*Handler, error) {
	if opts.API == nil {
		return nil, errors.New("labeling API client is required")
	}
	if opts.Auth == nil {
		return nil, errors.New("identity manager is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Handler{
		api:            opts.API,
		auth:           opts.Auth,
		history:        opts.History,
		classLabels:    opts.ClassLabels,
		googleClientID: opts.GoogleClientID,
		devLogin:       opts.DevLogin,
		logger:         logger,
		singles:        storage.New[*labeling.SingleSession](),
		pairs:          storage.New[*labeling.PairSession](),
		pages:          pages,
	}, nil
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"login", "single", "pair"} {
		t, err := template.ParseFS(assets, "templates/layout.html", "templates/progress.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.logger.Error(message)
	http.Error(w, message, code)
}

// Progress is the tally shown above every labeling view
type Progress struct {
	Completed int
	Target    int
	Percent   int
	Correct   int
	Wrong     int
	Unit      string
}

func progressOf(c labeling.Counters, unit string) Progress {
	return Progress{
		Completed: c.Completed,
		Target:    c.Target,
		Percent:   c.ProgressPercent(),
		Correct:   c.Correct,
		Wrong:     c.Wrong,
		Unit:      unit,
	}
}

type pageData struct {
	Title          string
	User           *models.Identity
	Flashes        []string
	Progress       Progress
	Single         *labeling.SingleView
	Pair           *labeling.PairView
	ActionBase     string
	GoogleClientID string
	LoginURI       string
	DevLogin       bool
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data pageData) {
	data.User = h.auth.Current(r)
	data.Flashes = h.auth.Flashes(w, r)

	t, ok := h.pages[page]
	if !ok {
		h.writeError(w, "Unknown page "+page, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		h.logger.Error("Unable to render page", "page", page, "err", err)
	}
}

// notice turns a labeling error into the message shown to the user.
func notice(err error) string {
	switch {
	case errors.Is(err, labeling.ErrUnauthenticated):
		return "Please sign in before submitting."
	case errors.Is(err, labeling.ErrItemNotReady):
		return "Images not loaded properly. Please try again."
	case errors.Is(err, labeling.ErrNoChoice):
		return "Please select an option."
	case errors.Is(err, labeling.ErrUnknownChoice):
		return "That option is not available for this item."
	case errors.Is(err, labeling.ErrBusy):
		return "Still working on your last answer, please wait."
	case errors.Is(err, labeling.ErrWrongPhase):
		return "That action is not available right now."
	case errors.Is(err, labeling.ErrSubmitFailed):
		return "Submission failed: " + strings.TrimPrefix(err.Error(), labeling.ErrSubmitFailed.Error()+": ")
	case errors.Is(err, labeling.ErrFetchFailed):
		return "Could not load new images. Please try again."
	default:
		return err.Error()
	}
}

// detached outlives the browser request: labeling calls are never cancelled midway.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
