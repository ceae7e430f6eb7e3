package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

type chainFixture struct {
	db        *MockDatabaseLookup
	estimator *MockEstimator
	cache     *MockCacheRepository
	observer  *recordingObserver
	resolver  *Resolver
}

func newChain(timeout time.Duration) *chainFixture {
	logger := zap.NewNop()
	f := &chainFixture{
		db:        &MockDatabaseLookup{},
		estimator: &MockEstimator{},
		cache:     NewMockCacheRepository(),
		observer:  &recordingObserver{},
	}
	results := NewResultCache(f.cache, time.Hour, logger)
	f.resolver = NewResolver(logger, f.observer,
		NewLocalStrategy(nil, nil, results, logger),
		NewDatabaseStrategy(f.db, DatabaseConfig{Name: "openfoodfacts", Timeout: timeout, Regional: true}, NewQueryPreprocessor(logger), results, logger),
		NewEstimateStrategy(f.estimator, logger),
	)
	return f
}

func TestResolve_BarcodeMissNeverEstimates(t *testing.T) {
	f := newChain(time.Second)
	f.estimator.Result = fullEstimate()

	refs, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "0000000000017", Mode: domain.ModeBarcode, Region: "de"})

	assert.Nil(t, refs)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 0, f.estimator.CallCount())

	var rerr *ResolveError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, domain.ModeBarcode, rerr.Mode)
	assert.Len(t, rerr.Attempts, 2)

	// Regional scope first, then global.
	require.Equal(t, 2, f.db.CallCount())
	assert.Equal(t, "de", f.db.Calls[0].Region)
	assert.Equal(t, "", f.db.Calls[1].Region)
	assert.Equal(t, "0000000000017", f.db.Calls[0].Query)

	for _, e := range f.observer.events {
		assert.NotEqual(t, "estimate", e.Tier)
	}
}

func TestResolve_TextMissFallsBackToEstimate(t *testing.T) {
	f := newChain(time.Second)
	f.estimator.Result = fullEstimate()

	refs, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "unlisted artisanal snack", Mode: domain.ModeText})
	require.NoError(t, err)
	require.Len(t, refs, 1)

	ref := refs[0]
	assert.Equal(t, domain.SourceAIEstimate, ref.Source)
	assert.Equal(t, "Artisanal snack", ref.Name)
	assert.Equal(t, 480.0, ref.Macros.Calories)
	assert.Equal(t, 300.0, ref.Nutrients[domain.Sodium])
	assert.Equal(t, 0.4, ref.Nutrients[domain.VitaminD])
	assert.Zero(t, ref.Nutrients[domain.Iron])

	assert.Equal(t, 1, f.estimator.CallCount())
	assert.Equal(t, []string{"unlisted artisanal snack"}, f.estimator.queries)
}

func TestResolve_StructuredHit(t *testing.T) {
	f := newChain(time.Second)
	f.db.LookupFunc = func(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
		if region == "de" {
			return []domain.RawProduct{skyrProduct()}, nil
		}
		return nil, domain.ErrNotFound
	}

	q := domain.Query{Text: "4006040000016", Mode: domain.ModeBarcode, Region: "de"}
	refs, err := f.resolver.Resolve(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Skyr Natur", refs[0].Name)
	assert.Equal(t, "Milbona", refs[0].Brand)
	assert.Equal(t, "4006040000016", refs[0].Code)
	assert.Equal(t, domain.SourceDatabase, refs[0].Source)
	assert.InDelta(t, 40.0, refs[0].Nutrients[domain.Sodium], 1e-9)
	assert.Equal(t, 1, f.db.CallCount())

	t.Run("second lookup is served from cache", func(t *testing.T) {
		again, err := f.resolver.Resolve(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, refs, again)
		assert.Equal(t, 1, f.db.CallCount())

		last := f.observer.events[len(f.observer.events)-1]
		assert.Equal(t, observation{Tier: "local", Mode: domain.ModeBarcode, Outcome: OutcomeHit}, last)
	})
}

func TestResolve_TextQueryIsPreprocessed(t *testing.T) {
	f := newChain(time.Second)
	f.db.LookupFunc = func(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
		return []domain.RawProduct{skyrProduct()}, nil
	}

	_, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "  Skyr 500g ", Mode: domain.ModeText})
	require.NoError(t, err)
	require.Equal(t, 1, f.db.CallCount())
	assert.Equal(t, "skyr", f.db.Calls[0].Query)
	assert.Equal(t, "", f.db.Calls[0].Region, "no region means global only")
}

func TestResolve_TimeoutContinuesToNextTier(t *testing.T) {
	f := newChain(20 * time.Millisecond)
	f.db.LookupFunc = func(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.estimator.Result = fullEstimate()

	refs, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "banana bread", Mode: domain.ModeText, Region: "de"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, domain.SourceAIEstimate, refs[0].Source)
	assert.Equal(t, 2, f.db.CallCount(), "both scopes attempted")

	var outcomes []string
	for _, e := range f.observer.events {
		outcomes = append(outcomes, e.Tier+":"+e.Outcome)
	}
	assert.Equal(t, []string{"local:miss", "openfoodfacts:timeout", "estimate:hit"}, outcomes)
}

func TestResolve_BarcodeTimeoutIsTerminal(t *testing.T) {
	f := newChain(10 * time.Millisecond)
	f.db.LookupFunc = func(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "4006040000016", Mode: domain.ModeBarcode})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.Equal(t, 0, f.estimator.CallCount())
}

func TestResolve_MalformedEstimateIsNotFound(t *testing.T) {
	testCases := []struct {
		name      string
		result    *domain.RawEstimate
		err       error
		wantCause error
	}{
		{
			name:      "missing macros",
			result:    &domain.RawEstimate{Name: "x", Payload: domain.RawPayload{"calories": 100.0}},
			wantCause: domain.ErrMalformedEstimate,
		},
		{
			name:      "nil payload",
			result:    &domain.RawEstimate{Name: "x"},
			wantCause: domain.ErrMalformedEstimate,
		},
		{
			name:      "estimator reports unparseable output",
			err:       domain.ErrMalformedEstimate,
			wantCause: domain.ErrMalformedEstimate,
		},
		{
			name:      "estimator upstream failure",
			err:       domain.ErrUpstreamFailure,
			wantCause: domain.ErrUpstreamFailure,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newChain(time.Second)
			f.estimator.Result = tc.result
			f.estimator.Err = tc.err

			refs, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "mystery stew", Mode: domain.ModeText})
			assert.Empty(t, refs)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.ErrorIs(t, err, tc.wantCause)
		})
	}
}

func TestResolve_ProductsWithoutMacrosAreDropped(t *testing.T) {
	f := newChain(time.Second)
	f.db.LookupFunc = func(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
		return []domain.RawProduct{{Code: "1", Name: "Empty product", Payload: domain.RawPayload{"sodium_100g": 1.0}}}, nil
	}

	_, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "1", Mode: domain.ModeBarcode})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolve_UpstreamErrorContinues(t *testing.T) {
	f := newChain(time.Second)
	f.db.LookupFunc = func(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
		return nil, errors.New("connection refused")
	}
	f.estimator.Result = fullEstimate()

	refs, err := f.resolver.Resolve(context.Background(), domain.Query{Text: "granola", Mode: domain.ModeText})
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestResolve_RecoversFromPanickingTier(t *testing.T) {
	estimator := &MockEstimator{Result: fullEstimate()}
	observer := &recordingObserver{}
	r := NewResolver(zap.NewNop(), observer, panicStrategy{}, NewEstimateStrategy(estimator, nil))

	refs, err := r.Resolve(context.Background(), domain.Query{Text: "toast", Mode: domain.ModeText})
	require.NoError(t, err)
	assert.Len(t, refs, 1)
	assert.Equal(t, OutcomeError, observer.events[0].Outcome)
}

func TestResolve_InvalidQuery(t *testing.T) {
	f := newChain(time.Second)

	testCases := []struct {
		name string
		q    domain.Query
	}{
		{"empty text", domain.Query{Text: "   ", Mode: domain.ModeText}},
		{"unknown mode", domain.Query{Text: "milk", Mode: "voice"}},
		{"non-numeric barcode", domain.Query{Text: "40060400abc", Mode: domain.ModeBarcode}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.resolver.Resolve(context.Background(), tc.q)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
	assert.Zero(t, f.db.CallCount())
}

func TestResolve_FavoritesFirst(t *testing.T) {
	favs := favoritesFunc(func(ctx context.Context, userID string) ([]domain.Favorite, error) {
		if userID != "u1" {
			return nil, nil
		}
		return []domain.Favorite{favorite("Overnight oats", "")}, nil
	})
	db := &MockDatabaseLookup{}
	r := NewResolver(nil, nil,
		NewLocalStrategy(favs, NewFavoritesMatcher(MatchConfig{}, nil), nil, nil),
		NewDatabaseStrategy(db, DatabaseConfig{}, nil, nil, nil),
	)

	refs, err := r.Resolve(context.Background(), domain.Query{Text: "overnight oats", Mode: domain.ModeText, UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Overnight oats", refs[0].Name)
	assert.Zero(t, db.CallCount())

	_, err = r.Resolve(context.Background(), domain.Query{Text: "overnight oats", Mode: domain.ModeText, UserID: "u2"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, db.CallCount())
}

func TestResolveError(t *testing.T) {
	err := &ResolveError{
		Query: "x",
		Mode:  domain.ModeText,
		Attempts: []TierFailure{
			{Tier: "openfoodfacts", Err: domain.ErrUpstreamTimeout},
			{Tier: "estimate", Err: domain.ErrNotFound},
		},
	}
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
	assert.NotErrorIs(t, err, domain.ErrMalformedEstimate)
	assert.Contains(t, err.Error(), "openfoodfacts")

	plain := &ResolveError{Query: "x", Mode: domain.ModeBarcode}
	assert.ErrorIs(t, plain, domain.ErrNotFound)
	assert.Nil(t, plain.Cause())
}

func TestResolver_Strategies(t *testing.T) {
	f := newChain(time.Second)
	assert.Equal(t, []string{"local", "openfoodfacts", "estimate"}, f.resolver.Strategies())
}

type favoritesFunc func(ctx context.Context, userID string) ([]domain.Favorite, error)

func (f favoritesFunc) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	return f(ctx, userID)
}
