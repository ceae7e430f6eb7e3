package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/foodlog/backend/internal/domain"
)

// MockCacheRepository is a map-backed cache for testing
type MockCacheRepository struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

type lookupCall struct {
	Query  string
	Mode   domain.Mode
	Region string
}

// MockDatabaseLookup records calls and answers through LookupFunc.
type MockDatabaseLookup struct {
	mu         sync.Mutex
	Calls      []lookupCall
	LookupFunc func(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error)
}

func (m *MockDatabaseLookup) Lookup(ctx context.Context, query string, mode domain.Mode, region string) ([]domain.RawProduct, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, lookupCall{Query: query, Mode: mode, Region: region})
	m.mu.Unlock()
	if m.LookupFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.LookupFunc(ctx, query, mode, region)
}

func (m *MockDatabaseLookup) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// MockEstimator counts calls to both estimator interfaces.
type MockEstimator struct {
	mu          sync.Mutex
	calls       int
	queries     []string
	Result      *domain.RawEstimate
	Err         error
	ImageResult *domain.ImageEstimate
	ImageErr    error
}

func (m *MockEstimator) Estimate(ctx context.Context, query string) (*domain.RawEstimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.queries = append(m.queries, query)
	return m.Result, m.Err
}

func (m *MockEstimator) EstimateImage(ctx context.Context, image []byte, contentType string) (*domain.ImageEstimate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.ImageResult, m.ImageErr
}

func (m *MockEstimator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type observation struct {
	Tier    string
	Mode    domain.Mode
	Outcome string
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observation
}

func (o *recordingObserver) ObserveTier(tier string, mode domain.Mode, outcome string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, observation{Tier: tier, Mode: mode, Outcome: outcome})
}

type panicStrategy struct{}

func (panicStrategy) Name() string              { return "broken" }
func (panicStrategy) Supports(domain.Mode) bool { return true }
func (panicStrategy) Attempt(context.Context, domain.Query) ([]domain.FoodReference, error) {
	panic("boom")
}

func skyrProduct() domain.RawProduct {
	return domain.RawProduct{
		Code:         "4006040000016",
		Name:         "Skyr Natur",
		Brand:        "Milbona",
		BaseQuantity: 100,
		BaseUnit:     domain.UnitGram,
		Payload: domain.RawPayload{
			"energy-kcal_100g":   63.0,
			"proteins_100g":      11.0,
			"carbohydrates_100g": 4.0,
			"fat_100g":           0.2,
			"sodium_100g":        0.04,
		},
		Units: domain.SourceUnits{Default: domain.UnitGram},
	}
}

func fullEstimate() *domain.RawEstimate {
	return &domain.RawEstimate{
		Name:         "Artisanal snack",
		BaseQuantity: 100,
		BaseUnit:     domain.UnitGram,
		Payload: domain.RawPayload{
			"calories":  480.0,
			"protein":   8.0,
			"carbs":     55.0,
			"fat":       24.0,
			"sodium":    300.0,
			"vitamin_d": 0.4,
		},
	}
}
