package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foodlog/backend/internal/domain"
)

// maxHistoryDays bounds History requests.
const maxHistoryDays = 366

// Session identifies who a diary operation runs for. It is passed into
// every call; the diary keeps no per-user state of its own.
type Session struct {
	UserID string
	Region string
}

// LogRequest describes an entry being created.
type LogRequest struct {
	Date     string         `json:"date,omitempty"`
	Meal     string         `json:"meal,omitempty"`
	Name     string         `json:"name,omitempty"`
	Quantity float64        `json:"quantity"`
	Unit     domain.Unit    `json:"unit,omitempty"`
	Override *EntryOverride `json:"override,omitempty"`
}

// EditRequest describes changes to a stored entry. A nil Quantity and an
// empty Unit keep the stored amount, so a zero quantity must be explicit.
type EditRequest struct {
	Date     string         `json:"date,omitempty"`
	Meal     string         `json:"meal,omitempty"`
	Name     string         `json:"name,omitempty"`
	Quantity *float64       `json:"quantity,omitempty"`
	Unit     domain.Unit    `json:"unit,omitempty"`
	Override *EntryOverride `json:"override,omitempty"`
}

// DayView is a day's totals plus the entries they were summed from.
type DayView struct {
	Totals  domain.DayTotals  `json:"totals"`
	Entries []domain.LogEntry `json:"entries"`
}

// Diary is the session-scoped service the delivery layer talks to.
type Diary struct {
	repo     domain.Repository
	resolver *Resolver
	images   domain.ImageEstimator
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// DiaryOption customizes a Diary.
type DiaryOption func(*Diary)

// WithImageEstimator enables EstimateImage.
func WithImageEstimator(e domain.ImageEstimator) DiaryOption {
	return func(d *Diary) { d.images = e }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DiaryOption {
	return func(d *Diary) { d.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) DiaryOption {
	return func(d *Diary) { d.newID = newID }
}

// NewDiary creates a diary over repo and resolver.
func NewDiary(repo domain.Repository, resolver *Resolver, logger *zap.Logger, opts ...DiaryOption) *Diary {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Diary{
		repo:     repo,
		resolver: resolver,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Resolve looks up candidates for text in the session's region.
func (d *Diary) Resolve(ctx context.Context, s Session, text string, mode domain.Mode) ([]domain.FoodReference, error) {
	return d.resolver.Resolve(ctx, domain.Query{
		Text:   text,
		Mode:   mode,
		Region: s.Region,
		UserID: s.UserID,
	})
}

// Preview scales ref for display. It touches no state.
func (d *Diary) Preview(ref domain.FoodReference, qty float64, unit domain.Unit) (domain.Scaled, error) {
	return Preview(ref, qty, unit)
}

// LogFood commits ref at the requested quantity as a new entry.
func (d *Diary) LogFood(ctx context.Context, s Session, ref domain.FoodReference, req LogRequest) (*domain.LogEntry, error) {
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}
	entry, err := Commit(ref, CommitRequest{
		ID:        d.newID(),
		UserID:    s.UserID,
		Date:      req.Date,
		Meal:      req.Meal,
		Name:      req.Name,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Timestamp: d.now(),
		Override:  req.Override,
	})
	if err != nil {
		return nil, err
	}
	if err := d.repo.PutEntry(ctx, &entry); err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}

	d.logger.Info("entry logged",
		zap.String("user", s.UserID),
		zap.String("entry", entry.ID),
		zap.String("date", entry.Date),
		zap.String("source", string(ref.Source)),
	)
	return &entry, nil
}

// EditEntry replaces entry id wholesale. When ref is nil the entry's own
// base reference is rescaled. Fields left empty in req keep the stored
// value; the id and original timestamp are kept. A new food given with a
// quantity but no unit is measured in its own base unit.
func (d *Diary) EditEntry(ctx context.Context, s Session, id string, ref *domain.FoodReference, req EditRequest) (*domain.LogEntry, error) {
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}
	existing, err := d.repo.GetEntry(ctx, s.UserID, id)
	if err != nil {
		return nil, err
	}

	var base domain.FoodReference
	if ref != nil {
		base = *ref
	} else if base, err = Reverse(*existing); err != nil {
		return nil, err
	}

	qty, unit := existing.Quantity, req.Unit
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if unit == "" && (ref == nil || req.Quantity == nil) {
		unit = existing.Unit
	}

	cr := CommitRequest{
		ID:        existing.ID,
		UserID:    s.UserID,
		Date:      firstNonEmpty(req.Date, existing.Date),
		Meal:      firstNonEmpty(req.Meal, existing.Meal),
		Name:      req.Name,
		Quantity:  qty,
		Unit:      unit,
		Timestamp: existing.Timestamp,
		Override:  req.Override,
	}
	if cr.Name == "" && ref == nil {
		cr.Name = existing.Name
	}

	entry, err := Commit(base, cr)
	if err != nil {
		return nil, err
	}
	if err := d.repo.PutEntry(ctx, &entry); err != nil {
		return nil, fmt.Errorf("saving entry: %w", err)
	}
	return &entry, nil
}

// EntryBase recovers the reference entry id was scaled from.
func (d *Diary) EntryBase(ctx context.Context, s Session, id string) (domain.FoodReference, error) {
	entry, err := d.repo.GetEntry(ctx, s.UserID, id)
	if err != nil {
		return domain.FoodReference{}, err
	}
	return Reverse(*entry)
}

// DeleteEntry removes entry id.
func (d *Diary) DeleteEntry(ctx context.Context, s Session, id string) error {
	return d.repo.DeleteEntry(ctx, s.UserID, id)
}

// Day aggregates one calendar day against the session's effective goal.
func (d *Diary) Day(ctx context.Context, s Session, date string) (*DayView, error) {
	if date == "" {
		date = d.now().Format(domain.DateLayout)
	}
	if err := validateDate(date); err != nil {
		return nil, err
	}
	entries, err := d.repo.ListEntries(ctx, s.UserID, date, date)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	settings, err := d.Goals(ctx, s)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return &DayView{
		Totals:  AggregateDay(date, entries, settings.Effective()),
		Entries: entries,
	}, nil
}

// History aggregates every day from..to inclusive.
func (d *Diary) History(ctx context.Context, s Session, from, to string) ([]domain.DayTotals, error) {
	dates, err := dateRange(from, to)
	if err != nil {
		return nil, err
	}
	entries, err := d.repo.ListEntries(ctx, s.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	settings, err := d.Goals(ctx, s)
	if err != nil {
		return nil, err
	}
	return AggregateRange(dates, entries, settings.Effective()), nil
}

// Profile returns the stored body profile.
func (d *Diary) Profile(ctx context.Context, s Session) (*domain.BodyProfile, error) {
	return d.repo.GetProfile(ctx, s.UserID)
}

// UpdateProfile stores p and recomputes the computed goal. A manual
// override survives the recomputation.
func (d *Diary) UpdateProfile(ctx context.Context, s Session, p domain.BodyProfile) (*domain.GoalSettings, error) {
	current, err := d.Goals(ctx, s)
	if err != nil {
		return nil, err
	}
	settings, err := ApplyProfile(current, p)
	if err != nil {
		return nil, err
	}
	if err := d.repo.PutProfile(ctx, s.UserID, &p); err != nil {
		return nil, fmt.Errorf("saving profile: %w", err)
	}
	if err := d.repo.PutGoalSettings(ctx, s.UserID, &settings); err != nil {
		return nil, fmt.Errorf("saving goals: %w", err)
	}
	return &settings, nil
}

// SetGoalOverride replaces the manual override.
func (d *Diary) SetGoalOverride(ctx context.Context, s Session, o domain.GoalOverride) (*domain.GoalSettings, error) {
	current, err := d.Goals(ctx, s)
	if err != nil {
		return nil, err
	}
	settings, err := ApplyOverride(current, o)
	if err != nil {
		return nil, err
	}
	if err := d.repo.PutGoalSettings(ctx, s.UserID, &settings); err != nil {
		return nil, fmt.Errorf("saving goals: %w", err)
	}
	return &settings, nil
}

// Goals returns the stored goal settings, or empty settings (whose
// effective goal is the default) when none exist.
func (d *Diary) Goals(ctx context.Context, s Session) (*domain.GoalSettings, error) {
	settings, err := d.repo.GetGoalSettings(ctx, s.UserID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return &domain.GoalSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading goals: %w", err)
	}
	return settings, nil
}

// AddFavorite saves ref so the resolver checks it first.
func (d *Diary) AddFavorite(ctx context.Context, s Session, ref domain.FoodReference) (*domain.Favorite, error) {
	ref.Name = strings.TrimSpace(ref.Name)
	if ref.Name == "" {
		return nil, fmt.Errorf("%w: favorite needs a name", domain.ErrInvalidRequest)
	}
	ref, err := ValidateReference(ref)
	if err != nil {
		return nil, err
	}
	ref.Confidence = 0
	ref.Nutrients = ref.Nutrients.Clone()

	fav := &domain.Favorite{ID: d.newID(), UserID: s.UserID, Food: ref}
	if err := d.repo.PutFavorite(ctx, fav); err != nil {
		return nil, fmt.Errorf("saving favorite: %w", err)
	}
	return fav, nil
}

// ListFavorites returns the session's favorites.
func (d *Diary) ListFavorites(ctx context.Context, s Session) ([]domain.Favorite, error) {
	return d.repo.ListFavorites(ctx, s.UserID)
}

// RemoveFavorite deletes favorite id.
func (d *Diary) RemoveFavorite(ctx context.Context, s Session, id string) error {
	return d.repo.DeleteFavorite(ctx, s.UserID, id)
}

// Tiers lists the configured lookup tiers in the order they run.
func (d *Diary) Tiers() []string {
	return d.resolver.Strategies()
}

// EstimateImage identifies the food in a photo. The returned reference is
// declared against the estimated weight of the visible portion.
func (d *Diary) EstimateImage(ctx context.Context, s Session, image []byte, contentType string) (domain.FoodReference, error) {
	if d.images == nil {
		return domain.FoodReference{}, domain.ErrEstimatorDisabled
	}
	if len(image) == 0 {
		return domain.FoodReference{}, fmt.Errorf("%w: image is empty", domain.ErrInvalidRequest)
	}
	est, err := d.images.EstimateImage(ctx, image, contentType)
	if err != nil {
		return domain.FoodReference{}, err
	}
	ref, err := FromImageEstimate(est)
	if err != nil {
		d.logger.Warn("discarding image estimate", zap.String("user", s.UserID), zap.Error(err))
		return domain.FoodReference{}, err
	}
	return ref, nil
}

func validateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q must be YYYY-MM-DD", domain.ErrInvalidRequest, date)
	}
	return nil
}

// dateRange lists every calendar day from..to inclusive.
func dateRange(from, to string) ([]string, error) {
	start, err := time.Parse(domain.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("%w: from %q must be YYYY-MM-DD", domain.ErrInvalidRequest, from)
	}
	end, err := time.Parse(domain.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("%w: to %q must be YYYY-MM-DD", domain.ErrInvalidRequest, to)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: from is after to", domain.ErrInvalidRequest)
	}

	var dates []string
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if len(dates) == maxHistoryDays {
			return nil, fmt.Errorf("%w: range exceeds %d days", domain.ErrInvalidRequest, maxHistoryDays)
		}
		dates = append(dates, day.Format(domain.DateLayout))
	}
	return dates, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
