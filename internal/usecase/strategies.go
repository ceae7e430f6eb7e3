package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// FavoritesSource lists a user's saved foods.
type FavoritesSource interface {
	ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error)
}

// LocalStrategy checks the user's favorites, then the result cache.
type LocalStrategy struct {
	favorites FavoritesSource
	matcher   *FavoritesMatcher
	cache     *ResultCache
	logger    *zap.Logger
}

// NewLocalStrategy creates the local tier. favorites and cache may be nil.
func NewLocalStrategy(favorites FavoritesSource, matcher *FavoritesMatcher, cache *ResultCache, logger *zap.Logger) *LocalStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalStrategy{favorites: favorites, matcher: matcher, cache: cache, logger: logger}
}

func (s *LocalStrategy) Name() string { return "local" }

func (s *LocalStrategy) Supports(domain.Mode) bool { return true }

func (s *LocalStrategy) Attempt(ctx context.Context, q domain.Query) ([]domain.FoodReference, error) {
	if s.favorites != nil && s.matcher != nil && q.UserID != "" {
		favs, err := s.favorites.ListFavorites(ctx, q.UserID)
		if err != nil {
			// The cache is still worth checking.
			s.logger.Warn("listing favorites failed", zap.String("user", q.UserID), zap.Error(err))
		} else if refs := s.matcher.Match(ctx, q, favs); len(refs) > 0 {
			return refs, nil
		}
	}
	if refs, ok := s.cache.Load(ctx, q); ok {
		return refs, nil
	}
	return nil, domain.ErrNotFound
}

// DatabaseConfig configures one structured database tier.
type DatabaseConfig struct {
	Name string
	// Timeout bounds each scope's lookup.
	Timeout time.Duration
	// Regional makes the tier query the session's region before the
	// global scope.
	Regional bool
	// Modes lists the supported modes; empty means all.
	Modes []domain.Mode
}

// DatabaseStrategy queries a structured nutrient database, region first
// when configured, and normalizes the first non-empty hit.
type DatabaseStrategy struct {
	db           domain.DatabaseLookup
	config       DatabaseConfig
	preprocessor *QueryPreprocessor
	cache        *ResultCache
	logger       *zap.Logger
}

// NewDatabaseStrategy creates a structured database tier. preprocessor and
// cache may be nil.
func NewDatabaseStrategy(db domain.DatabaseLookup, config DatabaseConfig, preprocessor *QueryPreprocessor, cache *ResultCache, logger *zap.Logger) *DatabaseStrategy {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Name == "" {
		config.Name = "database"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatabaseStrategy{
		db:           db,
		config:       config,
		preprocessor: preprocessor,
		cache:        cache,
		logger:       logger,
	}
}

func (s *DatabaseStrategy) Name() string { return s.config.Name }

func (s *DatabaseStrategy) Supports(mode domain.Mode) bool {
	if len(s.config.Modes) == 0 {
		return true
	}
	for _, m := range s.config.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

func (s *DatabaseStrategy) scopes(q domain.Query) []string {
	if s.config.Regional && q.Region != "" {
		return []string{q.Region, ""}
	}
	return []string{""}
}

func (s *DatabaseStrategy) Attempt(ctx context.Context, q domain.Query) ([]domain.FoodReference, error) {
	text := q.Text
	if q.Mode == domain.ModeText && s.preprocessor != nil {
		text = s.preprocessor.Preprocess(text)
	}

	var lastErr error
	for _, scope := range s.scopes(q) {
		lookupCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		products, err := s.db.Lookup(lookupCtx, text, q.Mode, scope)
		cancel()

		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				// plain miss
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrUpstreamTimeout):
				lastErr = fmt.Errorf("%w: %s scope %q after %s", domain.ErrUpstreamTimeout, s.config.Name, scope, s.config.Timeout)
			default:
				lastErr = err
			}
			s.logger.Debug("database scope produced nothing",
				zap.String("tier", s.config.Name),
				zap.String("scope", scope),
				zap.Error(err),
			)
			continue
		}

		refs := referencesFromProducts(products)
		if len(refs) > 0 {
			s.cache.Store(ctx, q, refs)
			return refs, nil
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, domain.ErrNotFound
}

// referencesFromProducts normalizes raw hits, dropping any that carry no
// macro information at all.
func referencesFromProducts(products []domain.RawProduct) []domain.FoodReference {
	refs := make([]domain.FoodReference, 0, len(products))
	for _, p := range products {
		ref, present := BuildReference(p.Name, p.BaseQuantity, p.BaseUnit, p.Payload, p.Units, domain.SourceDatabase)
		if present == 0 || ref.Name == "" {
			continue
		}
		ref.ID = p.Code
		ref.Code = p.Code
		ref.Brand = p.Brand
		refs = append(refs, ref)
	}
	return refs
}

// EstimateStrategy asks a generative estimator for a best-effort profile.
// It never runs for barcodes: a bare number gives the model nothing to
// anchor a guess on.
type EstimateStrategy struct {
	estimator domain.GenerativeEstimator
	logger    *zap.Logger
}

// NewEstimateStrategy creates the generative tier.
func NewEstimateStrategy(estimator domain.GenerativeEstimator, logger *zap.Logger) *EstimateStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EstimateStrategy{estimator: estimator, logger: logger}
}

func (s *EstimateStrategy) Name() string { return "estimate" }

func (s *EstimateStrategy) Supports(mode domain.Mode) bool { return mode == domain.ModeText }

func (s *EstimateStrategy) Attempt(ctx context.Context, q domain.Query) ([]domain.FoodReference, error) {
	raw, err := s.estimator.Estimate(ctx, q.Text)
	if err != nil {
		return nil, err
	}
	ref, err := FromEstimate(q.Text, raw)
	if err != nil {
		return nil, err
	}
	return []domain.FoodReference{ref}, nil
}

// FromEstimate validates a generative payload and normalizes it. The
// payload is expected in canonical units already. All four macros must be
// present; anything less is treated as malformed.
func FromEstimate(query string, raw *domain.RawEstimate) (domain.FoodReference, error) {
	if raw == nil || raw.Payload == nil {
		return domain.FoodReference{}, fmt.Errorf("%w: empty payload", domain.ErrMalformedEstimate)
	}
	name := raw.Name
	if name == "" {
		name = query
	}
	ref, present := BuildReference(name, raw.BaseQuantity, raw.BaseUnit, raw.Payload, domain.CanonicalUnits, domain.SourceAIEstimate)
	if present < 4 {
		return domain.FoodReference{}, fmt.Errorf("%w: %d of 4 macros present", domain.ErrMalformedEstimate, present)
	}
	return ref, nil
}

// FromImageEstimate turns a photo estimate into a reference declared
// against the estimated weight in grams, since the payload holds absolute
// totals for the visible portion. A missing weight makes the totals one
// portion.
func FromImageEstimate(est *domain.ImageEstimate) (domain.FoodReference, error) {
	if est == nil || est.Payload == nil {
		return domain.FoodReference{}, fmt.Errorf("%w: empty payload", domain.ErrMalformedEstimate)
	}
	baseQty, baseUnit := est.EstimatedWeight, domain.UnitGram
	if !(baseQty > 0) {
		baseQty, baseUnit = 1, domain.UnitPortion
	}
	name := est.Name
	if name == "" {
		name = "Unknown food"
	}
	ref, present := BuildReference(name, baseQty, baseUnit, est.Payload, domain.CanonicalUnits, domain.SourceVision)
	if present < 4 {
		return domain.FoodReference{}, fmt.Errorf("%w: %d of 4 macros present", domain.ErrMalformedEstimate, present)
	}
	return ref, nil
}
