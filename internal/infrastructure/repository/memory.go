package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/foodlog/backend/internal/domain"
)

// Compile-time check
var _ domain.Repository = (*MemoryRepository)(nil)

// MemoryRepository keeps everything in process memory. Values are copied
// on the way in and out so callers never share state with the store.
type MemoryRepository struct {
	mu        sync.RWMutex
	entries   map[string]map[string]domain.LogEntry // user -> id -> entry
	goals     map[string]domain.GoalSettings
	profiles  map[string]domain.BodyProfile
	favorites map[string]map[string]domain.Favorite
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		entries:   make(map[string]map[string]domain.LogEntry),
		goals:     make(map[string]domain.GoalSettings),
		profiles:  make(map[string]domain.BodyProfile),
		favorites: make(map[string]map[string]domain.Favorite),
	}
}

func (r *MemoryRepository) GetEntry(ctx context.Context, userID, id string) (*domain.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[userID][id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	out := copyEntry(e)
	return &out, nil
}

func (r *MemoryRepository) PutEntry(ctx context.Context, entry *domain.LogEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.entries[entry.UserID]
	if !ok {
		byID = make(map[string]domain.LogEntry)
		r.entries[entry.UserID] = byID
	}
	byID[entry.ID] = copyEntry(*entry)
	return nil
}

// ListEntries returns the user's entries dated from..to inclusive, ordered
// by date then timestamp. Empty bounds are open.
func (r *MemoryRepository) ListEntries(ctx context.Context, userID, from, to string) ([]domain.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.LogEntry
	for _, e := range r.entries[userID] {
		if (from != "" && e.Date < from) || (to != "" && e.Date > to) {
			continue
		}
		out = append(out, copyEntry(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) DeleteEntry(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[userID][id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(r.entries[userID], id)
	return nil
}

func (r *MemoryRepository) GetGoalSettings(ctx context.Context, userID string) (*domain.GoalSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.goals[userID]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	out := copySettings(s)
	return &out, nil
}

func (r *MemoryRepository) PutGoalSettings(ctx context.Context, userID string, settings *domain.GoalSettings) error {
	if settings == nil {
		return domain.ErrInvalidRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.goals[userID] = copySettings(*settings)
	return nil
}

func (r *MemoryRepository) GetProfile(ctx context.Context, userID string) (*domain.BodyProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) PutProfile(ctx context.Context, userID string, profile *domain.BodyProfile) error {
	if profile == nil {
		return domain.ErrInvalidRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[userID] = *profile
	return nil
}

// ListFavorites returns the user's favorites sorted by name.
func (r *MemoryRepository) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Favorite, 0, len(r.favorites[userID]))
	for _, f := range r.favorites[userID] {
		out = append(out, copyFavorite(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Food.Name != out[j].Food.Name {
			return out[i].Food.Name < out[j].Food.Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepository) PutFavorite(ctx context.Context, fav *domain.Favorite) error {
	if fav == nil || fav.ID == "" {
		return domain.ErrInvalidRequest
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byID, ok := r.favorites[fav.UserID]
	if !ok {
		byID = make(map[string]domain.Favorite)
		r.favorites[fav.UserID] = byID
	}
	byID[fav.ID] = copyFavorite(*fav)
	return nil
}

func (r *MemoryRepository) DeleteFavorite(ctx context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.favorites[userID][id]; !ok {
		return domain.ErrEntryNotFound
	}
	delete(r.favorites[userID], id)
	return nil
}

func copyEntry(e domain.LogEntry) domain.LogEntry {
	e.Nutrients = e.Nutrients.Clone()
	if e.Base != nil {
		base := *e.Base
		base.Nutrients = e.Base.Nutrients.Clone()
		e.Base = &base
	}
	return e
}

func copyFavorite(f domain.Favorite) domain.Favorite {
	f.Food.Nutrients = f.Food.Nutrients.Clone()
	return f
}

func copySettings(s domain.GoalSettings) domain.GoalSettings {
	if s.Computed != nil {
		c := *s.Computed
		s.Computed = &c
	}
	s.Override = domain.GoalOverride{
		Calories: copyFloat(s.Override.Calories),
		Protein:  copyFloat(s.Override.Protein),
		Carbs:    copyFloat(s.Override.Carbs),
		Fat:      copyFloat(s.Override.Fat),
	}
	return s
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
