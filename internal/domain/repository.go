package domain

import (
	"context"
	"time"
)

// CacheRepository is a byte-oriented TTL cache.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// DatabaseLookup is a structured nutrient database. An empty region means
// the global scope. A miss returns ErrNotFound.
type DatabaseLookup interface {
	Lookup(ctx context.Context, query string, mode Mode, region string) ([]RawProduct, error)
}

// GenerativeEstimator produces a best-effort payload for a free-text food.
type GenerativeEstimator interface {
	Estimate(ctx context.Context, query string) (*RawEstimate, error)
}

// ImageEstimator identifies a food in a photo and estimates totals for the
// visible portion.
type ImageEstimator interface {
	EstimateImage(ctx context.Context, image []byte, contentType string) (*ImageEstimate, error)
}

// Repository is the only persistence the engine uses. Lookups of absent
// records return ErrEntryNotFound.
type Repository interface {
	GetEntry(ctx context.Context, userID, id string) (*LogEntry, error)
	PutEntry(ctx context.Context, entry *LogEntry) error
	ListEntries(ctx context.Context, userID, from, to string) ([]LogEntry, error)
	DeleteEntry(ctx context.Context, userID, id string) error

	GetGoalSettings(ctx context.Context, userID string) (*GoalSettings, error)
	PutGoalSettings(ctx context.Context, userID string, settings *GoalSettings) error

	GetProfile(ctx context.Context, userID string) (*BodyProfile, error)
	PutProfile(ctx context.Context, userID string, profile *BodyProfile) error

	ListFavorites(ctx context.Context, userID string) ([]Favorite, error)
	PutFavorite(ctx context.Context, fav *Favorite) error
	DeleteFavorite(ctx context.Context, userID, id string) error
}

// ResolveObserver receives one call per attempted tier.
type ResolveObserver interface {
	ObserveTier(tier string, mode Mode, outcome string, elapsed time.Duration)
}
