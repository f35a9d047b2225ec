package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/qrbind/internal/common"
	"github.com/dmitrijs2005/qrbind/internal/logging"
	"github.com/dmitrijs2005/qrbind/internal/server/config"
	"github.com/dmitrijs2005/qrbind/internal/server/models"
	"github.com/dmitrijs2005/qrbind/internal/server/repositories/repomanager"
)

var tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidToken reports whether token has the shape of a replica token.
func ValidToken(token string) bool {
	return tokenPattern.MatchString(token)
}

// Binder is the allocation step used for unbound replicas.
type Binder interface {
	Bind(ctx context.Context, replicaID string, category models.Category) (*BindResult, error)
}

// Follower chases upstream redirects of a resolved destination.
type Follower interface {
	Follow(ctx context.Context, url string) string
}

// Resolution is the outcome of a successful Resolve.
type Resolution struct {
	Token       string
	ReplicaID   string
	OriginalID  string
	Destination string
	FirstBind   bool
}

// ResolverService maps tokens to destinations, binding on first scan.
type ResolverService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	binder      Binder
	follower    Follower
	logger      logging.Logger
	timeout     time.Duration
	scheme      string
}

// NewResolverService wires a resolver. follower may be nil.
func NewResolverService(db *sql.DB, m repomanager.RepositoryManager, b Binder, f Follower, cfg *config.Config, l logging.Logger) *ResolverService {
	return &ResolverService{
		db:          db,
		repomanager: m,
		binder:      b,
		follower:    f,
		logger:      l.With("module", "resolver"),
		timeout:     cfg.RequestTimeout,
		scheme:      cfg.DefaultScheme,
	}
}

// Resolve returns the destination for token. After the first successful
// call for a token every later call returns the same destination and does
// not write to the store.
//
// Errors: common.ErrMalformedToken, common.ErrTokenNotFound,
// common.ErrCategoryExhausted, common.ErrLinkedOriginalMissing and
// common.ErrStoreUnavailable (possibly wrapping the cause).
func (s *ResolverService) Resolve(ctx context.Context, token string) (*Resolution, error) {
	if !ValidToken(token) {
		return nil, common.ErrMalformedToken
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	replica, err := s.repomanager.Replicas(s.db).GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrTokenNotFound
		}
		s.logger.Error(ctx, "replica lookup failed", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	res := &Resolution{Token: token, ReplicaID: replica.ID}
	var raw string

	if replica.Bound() {
		original, err := s.repomanager.Originals(s.db).GetByID(ctx, *replica.BoundOriginalID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				s.logger.Error(ctx, "bound replica points at a missing original",
					"replica_id", replica.ID, "original_id", *replica.BoundOriginalID)
				return nil, common.ErrLinkedOriginalMissing
			}
			s.logger.Error(ctx, "original lookup failed", "replica_id", replica.ID, "error", err)
			return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
		}
		res.OriginalID = original.ID
		raw = original.URL
	} else {
		bound, err := s.binder.Bind(ctx, replica.ID, replica.Category)
		if err != nil {
			s.logBindFailure(ctx, replica, err)
			return nil, err
		}
		if bound.FirstBind {
			s.logger.Info(ctx, "replica bound", "replica_id", replica.ID,
				"original_id", bound.OriginalID, "category", replica.Category.String())
		}
		res.OriginalID = bound.OriginalID
		res.FirstBind = bound.FirstBind
		raw = bound.Destination
	}

	dest, err := NormalizeDestination(raw, s.scheme)
	if err != nil {
		s.logger.Error(ctx, "original has no usable destination",
			"replica_id", replica.ID, "original_id", res.OriginalID)
		return nil, err
	}

	if s.follower != nil {
		dest = s.follower.Follow(ctx, dest)
	}
	res.Destination = dest

	return res, nil
}

func (s *ResolverService) logBindFailure(ctx context.Context, replica *models.Replica, err error) {
	switch {
	case errors.Is(err, common.ErrCategoryExhausted):
		s.logger.Warn(ctx, "category exhausted", "replica_id", replica.ID, "category", replica.Category.String())
	case errors.Is(err, common.ErrLinkedOriginalMissing):
		s.logger.Error(ctx, "bound replica points at a missing original", "replica_id", replica.ID)
	case errors.Is(err, common.ErrTokenNotFound):
		s.logger.Warn(ctx, "replica vanished during bind", "replica_id", replica.ID)
	default:
		s.logger.Error(ctx, "bind failed", "replica_id", replica.ID, "error", err)
	}
}

// NormalizeDestination turns a stored destination into an absolute URL.
// http and https URLs are kept as they are, scheme-relative ones get
// scheme: and anything else gets scheme:// prepended.
func NormalizeDestination(raw, scheme string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", common.ErrLinkedOriginalMissing
	}

	lower := strings.ToLower(u)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return u, nil
	case strings.HasPrefix(u, "//"):
		return scheme + ":" + u, nil
	default:
		return scheme + "://" + u, nil
	}
}
