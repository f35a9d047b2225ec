package httpapi

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/dmitrijs2005/qrbind/internal/server/config"
	"github.com/dmitrijs2005/qrbind/internal/server/models"
	"github.com/dmitrijs2005/qrbind/internal/server/services"
)

var mobileUA = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPad|iPod|BlackBerry|Windows Phone|webOS`)

const readyTimeout = 2 * time.Second

// Resolver turns a replica token into a destination URL.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*services.Resolution, error)
}

// StatsProvider serves inventory counters for the admin routes.
type StatsProvider interface {
	Overview(ctx context.Context) (*models.Stats, error)
	Category(ctx context.Context, c models.Category) (*models.CategoryStats, error)
}

// Pinger reports whether the database answers.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler holds the dependencies of all HTTP routes.
type Handler struct {
	resolver       Resolver
	stats          StatsProvider
	db             Pinger
	logger         logging.Logger
	mode           string
	secretKey      []byte
	requestTimeout time.Duration
}

func NewHandler(r Resolver, s StatsProvider, db Pinger, cfg *config.Config, l logging.Logger) *Handler {
	return &Handler{
		resolver:       r,
		stats:          s,
		db:             db,
		logger:         l.With("module", "httpapi"),
		mode:           cfg.ResponseMode,
		secretKey:      []byte(cfg.SecretKey),
		requestTimeout: cfg.RequestTimeout,
	}
}

// responseMode picks redirect or html for this request. The mode query
// parameter wins over the configured mode.
func (h *Handler) responseMode(r *http.Request) string {
	switch m := r.URL.Query().Get("mode"); m {
	case config.ModeHTML, config.ModeRedirect:
		return m
	}
	if h.mode != config.ModeAuto {
		return h.mode
	}
	if mobileUA.MatchString(r.UserAgent()) {
		return config.ModeHTML
	}
	return config.ModeRedirect
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	res, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		writeError(w, classify(err))
		return
	}

	if h.responseMode(r) == config.ModeHTML {
		if err := writeRedirectPage(w, res.Destination); err != nil {
			h.logger.Error(r.Context(), "write redirect page", "error", err)
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, res.Destination, http.StatusFound)
}

func (h *Handler) missingToken(w http.ResponseWriter, _ *http.Request) {
	writeError(w, errMalformed)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn(r.Context(), "readiness probe failed", "error", err)
		writeError(w, errNotReady)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) statsOverview(w http.ResponseWriter, r *http.Request) {
	st, err := h.stats.Overview(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "stats overview", "error", err)
		writeError(w, errUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) statsCategory(w http.ResponseWriter, r *http.Request) {
	brand, errB := uuid.Parse(chi.URLParam(r, "brand"))
	typ, errT := uuid.Parse(chi.URLParam(r, "type"))
	if errB != nil || errT != nil {
		writeError(w, errBadCategory)
		return
	}

	st, err := h.stats.Category(r.Context(), models.Category{BrandID: brand.String(), TypeID: typ.String()})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeError(w, errNoCategory)
			return
		}
		h.logger.Error(r.Context(), "stats category", "error", err)
		writeError(w, errUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
