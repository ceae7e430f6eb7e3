package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/foodlog/backend/internal/domain"
)

// Compile-time check
var _ domain.Repository = (*PostgresRepository)(nil)

type entryRecord struct {
	ID         string    `gorm:"primaryKey;size:64"`
	UserID     string    `gorm:"index:idx_log_entries_user_date,priority:1;size:128;not null"`
	Date       string    `gorm:"index:idx_log_entries_user_date,priority:2;size:10;not null"`
	Timestamp  time.Time `gorm:"not null"`
	Meal       string    `gorm:"size:64"`
	Name       string    `gorm:"size:512"`
	Quantity   float64
	Unit       string `gorm:"size:32"`
	Calories   float64
	Protein    float64
	Carbs      float64
	Fat        float64
	Nutrients  datatypes.JSON
	Base       datatypes.JSON
	Overridden bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (entryRecord) TableName() string { return "log_entries" }

type goalRecord struct {
	UserID    string `gorm:"primaryKey;size:128"`
	Settings  datatypes.JSON
	UpdatedAt time.Time
}

func (goalRecord) TableName() string { return "goal_settings" }

type profileRecord struct {
	UserID             string `gorm:"primaryKey;size:128"`
	Weight             float64
	Height             float64
	Age                int
	Gender             string `gorm:"size:16"`
	ActivityMultiplier float64
	CalorieOffset      float64
	UpdatedAt          time.Time
}

func (profileRecord) TableName() string { return "body_profiles" }

type favoriteRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"index;size:128;not null"`
	Name      string `gorm:"size:512"`
	Food      datatypes.JSON
	CreatedAt time.Time
}

func (favoriteRecord) TableName() string { return "favorites" }

// PostgresRepository persists the diary through gorm.
type PostgresRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPostgresRepository connects to dsn and migrates the schema.
func NewPostgresRepository(dsn string, logger *zap.Logger) (*PostgresRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return NewPostgresRepositoryFromDB(db, logger)
}

// NewPostgresRepositoryFromDB uses an existing connection and migrates the
// schema.
func NewPostgresRepositoryFromDB(db *gorm.DB, logger *zap.Logger) (*PostgresRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&entryRecord{}, &goalRecord{}, &profileRecord{}, &favoriteRecord{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	logger.Info("postgres repository ready")
	return &PostgresRepository{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *PostgresRepository) GetEntry(ctx context.Context, userID, id string) (*domain.LogEntry, error) {
	var rec entryRecord
	err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	entry, err := fromEntryRecord(rec)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *PostgresRepository) PutEntry(ctx context.Context, entry *domain.LogEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidRequest
	}
	rec, err := toEntryRecord(*entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&rec).Error
}

func (r *PostgresRepository) ListEntries(ctx context.Context, userID, from, to string) ([]domain.LogEntry, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if from != "" {
		q = q.Where("date >= ?", from)
	}
	if to != "" {
		q = q.Where("date <= ?", to)
	}

	var recs []entryRecord
	if err := q.Order("date, timestamp, id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LogEntry, 0, len(recs))
	for _, rec := range recs {
		e, err := fromEntryRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *PostgresRepository) DeleteEntry(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&entryRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *PostgresRepository) GetGoalSettings(ctx context.Context, userID string) (*domain.GoalSettings, error) {
	var rec goalRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	var s domain.GoalSettings
	if err := json.Unmarshal(rec.Settings, &s); err != nil {
		return nil, fmt.Errorf("decoding goal settings: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) PutGoalSettings(ctx context.Context, userID string, settings *domain.GoalSettings) error {
	if settings == nil {
		return domain.ErrInvalidRequest
	}
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&goalRecord{UserID: userID, Settings: datatypes.JSON(data)}).Error
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*domain.BodyProfile, error) {
	var rec profileRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&rec).Error; err != nil {
		return nil, notFound(err)
	}
	return &domain.BodyProfile{
		Weight:             rec.Weight,
		Height:             rec.Height,
		Age:                rec.Age,
		Gender:             rec.Gender,
		ActivityMultiplier: rec.ActivityMultiplier,
		CalorieOffset:      rec.CalorieOffset,
	}, nil
}

func (r *PostgresRepository) PutProfile(ctx context.Context, userID string, p *domain.BodyProfile) error {
	if p == nil {
		return domain.ErrInvalidRequest
	}
	return r.db.WithContext(ctx).Save(&profileRecord{
		UserID:             userID,
		Weight:             p.Weight,
		Height:             p.Height,
		Age:                p.Age,
		Gender:             p.Gender,
		ActivityMultiplier: p.ActivityMultiplier,
		CalorieOffset:      p.CalorieOffset,
	}).Error
}

func (r *PostgresRepository) ListFavorites(ctx context.Context, userID string) ([]domain.Favorite, error) {
	var recs []favoriteRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("name, id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Favorite, 0, len(recs))
	for _, rec := range recs {
		fav := domain.Favorite{ID: rec.ID, UserID: rec.UserID}
		if err := json.Unmarshal(rec.Food, &fav.Food); err != nil {
			return nil, fmt.Errorf("decoding favorite %s: %w", rec.ID, err)
		}
		out = append(out, fav)
	}
	return out, nil
}

func (r *PostgresRepository) PutFavorite(ctx context.Context, fav *domain.Favorite) error {
	if fav == nil || fav.ID == "" {
		return domain.ErrInvalidRequest
	}
	data, err := json.Marshal(fav.Food)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(&favoriteRecord{
		ID:     fav.ID,
		UserID: fav.UserID,
		Name:   fav.Food.Name,
		Food:   datatypes.JSON(data),
	}).Error
}

func (r *PostgresRepository) DeleteFavorite(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).Delete(&favoriteRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrEntryNotFound
	}
	return err
}

func toEntryRecord(e domain.LogEntry) (entryRecord, error) {
	nutrients, err := json.Marshal(e.Nutrients)
	if err != nil {
		return entryRecord{}, fmt.Errorf("encoding nutrients: %w", err)
	}
	rec := entryRecord{
		ID:         e.ID,
		UserID:     e.UserID,
		Date:       e.Date,
		Timestamp:  e.Timestamp,
		Meal:       e.Meal,
		Name:       e.Name,
		Quantity:   e.Quantity,
		Unit:       string(e.Unit),
		Calories:   e.Macros.Calories,
		Protein:    e.Macros.Protein,
		Carbs:      e.Macros.Carbs,
		Fat:        e.Macros.Fat,
		Nutrients:  datatypes.JSON(nutrients),
		Overridden: e.Overridden,
	}
	if e.Base != nil {
		base, err := json.Marshal(e.Base)
		if err != nil {
			return entryRecord{}, fmt.Errorf("encoding base reference: %w", err)
		}
		rec.Base = datatypes.JSON(base)
	}
	return rec, nil
}

func fromEntryRecord(rec entryRecord) (domain.LogEntry, error) {
	e := domain.LogEntry{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Date:      rec.Date,
		Timestamp: rec.Timestamp,
		Meal:      rec.Meal,
		Name:      rec.Name,
		Quantity:  rec.Quantity,
		Unit:      domain.Unit(rec.Unit),
		Macros: domain.Macros{
			Calories: rec.Calories,
			Protein:  rec.Protein,
			Carbs:    rec.Carbs,
			Fat:      rec.Fat,
		},
		Overridden: rec.Overridden,
	}
	if len(rec.Nutrients) > 0 {
		if err := json.Unmarshal(rec.Nutrients, &e.Nutrients); err != nil {
			return domain.LogEntry{}, fmt.Errorf("decoding nutrients of %s: %w", rec.ID, err)
		}
	}
	if len(rec.Base) > 0 && string(rec.Base) != "null" {
		var base domain.FoodReference
		if err := json.Unmarshal(rec.Base, &base); err != nil {
			return domain.LogEntry{}, fmt.Errorf("decoding base of %s: %w", rec.ID, err)
		}
		e.Base = &base
	}
	return e, nil
}
