package usecase

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodlog/backend/internal/domain"
)

func per100g() domain.FoodReference {
	return domain.FoodReference{
		Name:         "Rolled oats",
		BaseQuantity: 100,
		BaseUnit:     domain.UnitGram,
		Macros:       domain.Macros{Calories: 372, Protein: 13.5, Carbs: 58.7, Fat: 7},
		Nutrients: domain.NutrientVector{
			domain.Fiber:     10,
			domain.Iron:      4.2,
			domain.VitaminB6: 0.12,
		},
		Source: domain.SourceDatabase,
	}
}

func perServing() domain.FoodReference {
	return domain.FoodReference{
		Name:         "Protein bar",
		BaseQuantity: 1,
		BaseUnit:     domain.UnitServing,
		Macros:       domain.Macros{Calories: 210, Protein: 20, Carbs: 18, Fat: 7.5},
		Nutrients:    domain.NutrientVector{domain.Sugar: 2.1},
		Source:       domain.SourceAIEstimate,
	}
}

func relClose(t *testing.T, want, got float64) {
	t.Helper()
	if want == 0 {
		assert.InDelta(t, 0, got, 1e-12)
		return
	}
	assert.LessOrEqual(t, math.Abs(got-want)/math.Abs(want), 1e-6, "want %v, got %v", want, got)
}

func TestScaleFactor(t *testing.T) {
	testCases := []struct {
		name     string
		qty      float64
		unit     domain.Unit
		baseQty  float64
		baseUnit domain.Unit
		want     float64
		wantErr  error
	}{
		{"grams per 100 g", 250, domain.UnitGram, 100, domain.UnitGram, 2.5, nil},
		{"kilograms per 100 g", 0.25, domain.UnitKilogram, 100, domain.UnitGram, 2.5, nil},
		{"litre per 100 ml", 0.5, domain.UnitLitre, 100, domain.UnitMillilitre, 5, nil},
		{"millilitres per 100 g", 250, domain.UnitMillilitre, 100, domain.UnitGram, 2.5, nil},
		{"grams per 30 g", 45, domain.UnitGram, 30, domain.UnitGram, 1.5, nil},
		{"portion uses quantity", 3, domain.UnitServing, 1, domain.UnitServing, 3, nil},
		{"unknown label is a portion", 2, domain.Unit("slice"), 100, domain.UnitGram, 2, nil},
		{"empty unit means base unit", 50, "", 100, domain.UnitGram, 0.5, nil},
		{"zero quantity", 0, domain.UnitGram, 100, domain.UnitGram, 0, nil},
		{"zero continuous base", 40, domain.UnitGram, 0, domain.UnitGram, 0, domain.ErrInvalidRequest},
		{"portion ignores base quantity", 2, domain.UnitServing, 0, domain.UnitServing, 2, nil},
		{"grams against a portion base", 100, domain.UnitGram, 1, domain.UnitServing, 0, domain.ErrIncompatibleUnits},
		{"negative quantity", -1, domain.UnitGram, 100, domain.UnitGram, 0, domain.ErrInvalidRequest},
		{"NaN quantity", math.NaN(), domain.UnitGram, 100, domain.UnitGram, 0, domain.ErrInvalidRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ScaleFactor(tc.qty, tc.unit, tc.baseQty, tc.baseUnit)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestValidateReference(t *testing.T) {
	t.Run("zero continuous base defaults to 100", func(t *testing.T) {
		ref := domain.FoodReference{Name: "Yogurt", BaseUnit: domain.UnitGram, Macros: domain.Macros{Calories: 200}}
		scaled, err := Preview(ref, 150, domain.UnitGram)
		require.NoError(t, err)
		assert.InDelta(t, 300.0, scaled.Macros.Calories, 1e-9)
		assert.False(t, math.IsInf(scaled.Macros.Calories, 0))
	})

	t.Run("zero portion base defaults to 1", func(t *testing.T) {
		ref := domain.FoodReference{Name: "Bagel", BaseUnit: domain.UnitPiece, Macros: domain.Macros{Calories: 250}}
		got, err := ValidateReference(ref)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.BaseQuantity)
	})

	t.Run("missing unit means grams", func(t *testing.T) {
		got, err := ValidateReference(domain.FoodReference{Name: "Rice"})
		require.NoError(t, err)
		assert.Equal(t, domain.UnitGram, got.BaseUnit)
		assert.Equal(t, 100.0, got.BaseQuantity)
	})

	invalid := map[string]func(*domain.FoodReference){
		"negative calories": func(r *domain.FoodReference) { r.Macros.Calories = -50 },
		"NaN protein":       func(r *domain.FoodReference) { r.Macros.Protein = math.NaN() },
		"infinite fat":      func(r *domain.FoodReference) { r.Macros.Fat = math.Inf(1) },
		"negative nutrient": func(r *domain.FoodReference) { r.Nutrients[domain.Iron] = -1 },
		"NaN nutrient":      func(r *domain.FoodReference) { r.Nutrients[domain.Fiber] = math.NaN() },
		"negative base":     func(r *domain.FoodReference) { r.BaseQuantity = -100 },
		"infinite base":     func(r *domain.FoodReference) { r.BaseQuantity = math.Inf(1) },
	}
	for name, mutate := range invalid {
		t.Run(name, func(t *testing.T) {
			ref := per100g()
			mutate(&ref)
			_, err := Preview(ref, 100, domain.UnitGram)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestPreview_ContinuousProperty(t *testing.T) {
	ref := per100g()
	for _, qty := range []float64{0.5, 1, 33.3, 100, 150, 1234.5} {
		scaled, err := Preview(ref, qty, domain.UnitGram)
		require.NoError(t, err)
		relClose(t, ref.Macros.Calories*(qty/100), scaled.Macros.Calories)
		relClose(t, ref.Nutrients[domain.Iron]*(qty/100), scaled.Nutrients[domain.Iron])
	}
}

func TestPreview_PortionProperty(t *testing.T) {
	ref := perServing()
	for _, qty := range []float64{0.5, 1, 2, 7.25} {
		scaled, err := Preview(ref, qty, domain.UnitPiece)
		require.NoError(t, err)
		relClose(t, ref.Macros.Calories*qty, scaled.Macros.Calories)
		relClose(t, ref.Nutrients[domain.Sugar]*qty, scaled.Nutrients[domain.Sugar])
	}
}

func TestPreview_IsPure(t *testing.T) {
	ref := per100g()
	_, err := Preview(ref, 300, domain.UnitGram)
	require.NoError(t, err)
	assert.Equal(t, per100g(), ref)
}

func TestPreview_ZeroQuantity(t *testing.T) {
	scaled, err := Preview(per100g(), 0, domain.UnitGram)
	require.NoError(t, err)
	assert.Equal(t, domain.Macros{}, scaled.Macros)
	assert.Zero(t, scaled.Nutrients[domain.Fiber])
}

func TestCommit(t *testing.T) {
	ts := time.Date(2024, 5, 2, 7, 45, 0, 0, time.UTC)

	t.Run("scales and retains base", func(t *testing.T) {
		ref := per100g()
		entry, err := Commit(ref, CommitRequest{ID: "e1", UserID: "u1", Quantity: 60, Unit: domain.UnitGram, Timestamp: ts})
		require.NoError(t, err)

		assert.Equal(t, "e1", entry.ID)
		assert.Equal(t, "2024-05-02", entry.Date)
		assert.Equal(t, domain.MealSnacks, entry.Meal)
		assert.Equal(t, "Rolled oats", entry.Name)
		assert.InDelta(t, 223.2, entry.Macros.Calories, 1e-9)
		assert.InDelta(t, 6.0, entry.Nutrients[domain.Fiber], 1e-9)
		require.NotNil(t, entry.Base)
		assert.Equal(t, ref, *entry.Base)
		assert.False(t, entry.Overridden)

		// The retained base must not alias the caller's map.
		ref.Nutrients[domain.Fiber] = 99
		assert.Equal(t, 10.0, entry.Base.Nutrients[domain.Fiber])
	})

	t.Run("manual override wins", func(t *testing.T) {
		kcal, fat := 500.0, -2.0
		entry, err := Commit(per100g(), CommitRequest{
			Quantity:  100,
			Unit:      domain.UnitGram,
			Timestamp: ts,
			Meal:      domain.MealBreakfast,
			Override: &EntryOverride{
				Calories:  &kcal,
				Fat:       &fat,
				Nutrients: map[domain.NutrientID]float64{domain.Iron: 5, "not_a_nutrient": 1},
			},
		})
		require.NoError(t, err)

		assert.True(t, entry.Overridden)
		assert.Equal(t, 500.0, entry.Macros.Calories)
		assert.Equal(t, 0.0, entry.Macros.Fat)
		assert.Equal(t, 13.5, entry.Macros.Protein)
		assert.Equal(t, 5.0, entry.Nutrients[domain.Iron])
		_, ok := entry.Nutrients["not_a_nutrient"]
		assert.False(t, ok)
		assert.Equal(t, domain.MealBreakfast, entry.Meal)
	})

	t.Run("incompatible units", func(t *testing.T) {
		_, err := Commit(perServing(), CommitRequest{Quantity: 50, Unit: domain.UnitGram})
		assert.ErrorIs(t, err, domain.ErrIncompatibleUnits)
	})

	t.Run("negative reference macros", func(t *testing.T) {
		ref := per100g()
		ref.Macros.Carbs = -10
		_, err := Commit(ref, CommitRequest{Quantity: 50, Unit: domain.UnitGram})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})

	t.Run("zero base is stored defaulted", func(t *testing.T) {
		ref := per100g()
		ref.BaseQuantity = 0
		entry, err := Commit(ref, CommitRequest{Quantity: 50, Unit: domain.UnitGram, Timestamp: ts})
		require.NoError(t, err)
		assert.InDelta(t, 186.0, entry.Macros.Calories, 1e-9)
		require.NotNil(t, entry.Base)
		assert.Equal(t, 100.0, entry.Base.BaseQuantity)
	})
}

func TestReverse(t *testing.T) {
	t.Run("returns retained base", func(t *testing.T) {
		ref := per100g()
		entry, err := Commit(ref, CommitRequest{Quantity: 45, Unit: domain.UnitGram})
		require.NoError(t, err)

		got, err := Reverse(entry)
		require.NoError(t, err)
		assert.Equal(t, ref, got)
	})

	t.Run("round trip without base, continuous", func(t *testing.T) {
		ref := per100g()
		for _, qty := range []float64{1, 37.5, 250, 0.25} {
			entry, err := Commit(ref, CommitRequest{Quantity: qty, Unit: domain.UnitGram})
			require.NoError(t, err)
			entry.Base = nil

			got, err := Reverse(entry)
			require.NoError(t, err)
			assert.Equal(t, 100.0, got.BaseQuantity)
			assert.Equal(t, domain.UnitGram, got.BaseUnit)
			relClose(t, ref.Macros.Calories, got.Macros.Calories)
			relClose(t, ref.Macros.Fat, got.Macros.Fat)
			for id, v := range ref.Nutrients {
				relClose(t, v, got.Nutrients[id])
			}
		}
	})

	t.Run("round trip without base, kilograms", func(t *testing.T) {
		ref := per100g()
		entry, err := Commit(ref, CommitRequest{Quantity: 0.2, Unit: domain.UnitKilogram})
		require.NoError(t, err)
		entry.Base = nil

		got, err := Reverse(entry)
		require.NoError(t, err)
		relClose(t, ref.Macros.Calories, got.Macros.Calories)
	})

	t.Run("round trip without base, portion", func(t *testing.T) {
		ref := perServing()
		entry, err := Commit(ref, CommitRequest{Quantity: 3, Unit: domain.UnitServing})
		require.NoError(t, err)
		entry.Base = nil

		got, err := Reverse(entry)
		require.NoError(t, err)
		assert.Equal(t, 1.0, got.BaseQuantity)
		assert.Equal(t, domain.UnitServing, got.BaseUnit)
		assert.Equal(t, domain.SourceManual, got.Source)
		relClose(t, ref.Macros.Protein, got.Macros.Protein)
		relClose(t, ref.Nutrients[domain.Sugar], got.Nutrients[domain.Sugar])
	})

	t.Run("zero quantity does not divide by zero", func(t *testing.T) {
		entry := domain.LogEntry{
			Name:     "Water",
			Quantity: 0,
			Unit:     domain.UnitMillilitre,
			Macros:   domain.Macros{Calories: 0},
		}
		got, err := Reverse(entry)
		require.NoError(t, err)
		assert.False(t, math.IsNaN(got.Macros.Calories))
		assert.False(t, math.IsInf(got.Macros.Calories, 0))
		assert.Equal(t, domain.UnitMillilitre, got.BaseUnit)
	})
}
