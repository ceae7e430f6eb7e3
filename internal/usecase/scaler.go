package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/foodlog/backend/internal/domain"
)

// ScaleFactor is the multiplier that turns a reference declared per
// baseQty of baseUnit into totals for qty of unit.
//
// Continuous units (mass, volume) divide the requested amount by the base
// amount after converting both onto one scale; mass and volume meet at
// 1 g/ml. Portion units use qty directly since the base already describes
// one portion. An empty unit means "same unit as the base".
func ScaleFactor(qty float64, unit domain.Unit, baseQty float64, baseUnit domain.Unit) (float64, error) {
	if math.IsNaN(qty) || math.IsInf(qty, 0) || qty < 0 {
		return 0, fmt.Errorf("%w: quantity must be a non-negative number", domain.ErrInvalidRequest)
	}
	if unit == "" {
		unit = baseUnit
	}
	if unit == "" {
		return 0, fmt.Errorf("%w: unit is required", domain.ErrInvalidRequest)
	}

	if !unit.Continuous() {
		return qty, nil
	}
	if !baseUnit.Continuous() {
		return 0, fmt.Errorf("%w: %s against a per-%s reference", domain.ErrIncompatibleUnits, unit, baseUnit)
	}

	amount, _ := unit.ToBase(qty)
	base, _ := baseUnit.ToBase(baseQty)
	if !(base > 0) || math.IsInf(base, 0) {
		return 0, fmt.Errorf("%w: base quantity must be positive", domain.ErrInvalidRequest)
	}
	return amount / base, nil
}

// safeDivisor substitutes 1 for a zero (or invalid) divisor. Only reverse
// scaling divides by a factor.
func safeDivisor(f float64) float64 {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	return f
}

// ValidateReference checks a caller-supplied reference and fills its base
// the way BuildReference does: a missing unit means grams, a zero quantity
// means 100 for continuous units and 1 for portions. Negative or non-finite
// bases, macros and nutrients are rejected.
func ValidateReference(ref domain.FoodReference) (domain.FoodReference, error) {
	if ref.BaseUnit == "" {
		ref.BaseUnit = domain.UnitGram
	}
	switch {
	case !finite(ref.BaseQuantity) || ref.BaseQuantity < 0:
		return domain.FoodReference{}, fmt.Errorf("%w: base quantity must be a positive number", domain.ErrInvalidRequest)
	case ref.BaseQuantity == 0:
		ref.BaseQuantity = 1
		if ref.BaseUnit.Continuous() {
			ref.BaseQuantity = 100
		}
	}

	macros := map[string]float64{
		"calories": ref.Macros.Calories,
		"protein":  ref.Macros.Protein,
		"carbs":    ref.Macros.Carbs,
		"fat":      ref.Macros.Fat,
	}
	for field, v := range macros {
		if !finite(v) || v < 0 {
			return domain.FoodReference{}, fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidRequest, field)
		}
	}
	for id, v := range ref.Nutrients {
		if !finite(v) || v < 0 {
			return domain.FoodReference{}, fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidRequest, id)
		}
	}
	return ref, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Preview scales ref to qty of unit without side effects.
func Preview(ref domain.FoodReference, qty float64, unit domain.Unit) (domain.Scaled, error) {
	ref, err := ValidateReference(ref)
	if err != nil {
		return domain.Scaled{}, err
	}
	return scale(ref, qty, unit)
}

func scale(ref domain.FoodReference, qty float64, unit domain.Unit) (domain.Scaled, error) {
	if unit == "" {
		unit = ref.BaseUnit
	}
	factor, err := ScaleFactor(qty, unit, ref.BaseQuantity, ref.BaseUnit)
	if err != nil {
		return domain.Scaled{}, err
	}
	return domain.Scaled{
		Quantity:  qty,
		Unit:      unit,
		Factor:    factor,
		Macros:    ref.Macros.Scale(factor),
		Nutrients: ref.Nutrients.Scale(factor),
	}, nil
}

// EntryOverride carries values typed by the user over the scaled totals.
// Nil fields keep the scaled value.
type EntryOverride struct {
	Calories  *float64                      `json:"calories,omitempty"`
	Protein   *float64                      `json:"protein,omitempty"`
	Carbs     *float64                      `json:"carbs,omitempty"`
	Fat       *float64                      `json:"fat,omitempty"`
	Nutrients map[domain.NutrientID]float64 `json:"nutrients,omitempty"`
}

// CommitRequest describes the entry being created or replaced.
type CommitRequest struct {
	ID        string
	UserID    string
	Date      string
	Meal      string
	Name      string
	Quantity  float64
	Unit      domain.Unit
	Timestamp time.Time
	Override  *EntryOverride
}

// Commit scales ref and produces a log entry carrying both the totals and
// a copy of ref for later edits.
func Commit(ref domain.FoodReference, req CommitRequest) (domain.LogEntry, error) {
	ref, err := ValidateReference(ref)
	if err != nil {
		return domain.LogEntry{}, err
	}
	scaled, err := scale(ref, req.Quantity, req.Unit)
	if err != nil {
		return domain.LogEntry{}, err
	}

	base := ref
	base.Nutrients = ref.Nutrients.Clone()

	name := req.Name
	if name == "" {
		name = ref.Name
	}
	meal := req.Meal
	if meal == "" {
		meal = domain.MealSnacks
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	date := req.Date
	if date == "" {
		date = ts.Format(domain.DateLayout)
	}

	entry := domain.LogEntry{
		ID:        req.ID,
		UserID:    req.UserID,
		Date:      date,
		Timestamp: ts,
		Meal:      meal,
		Name:      name,
		Quantity:  req.Quantity,
		Unit:      scaled.Unit,
		Macros:    scaled.Macros,
		Nutrients: scaled.Nutrients,
		Base:      &base,
	}
	applyOverride(&entry, req.Override)
	return entry, nil
}

func applyOverride(entry *domain.LogEntry, o *EntryOverride) {
	if o == nil {
		return
	}
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = math.Max(*v, 0)
			entry.Overridden = true
		}
	}
	set(&entry.Macros.Calories, o.Calories)
	set(&entry.Macros.Protein, o.Protein)
	set(&entry.Macros.Carbs, o.Carbs)
	set(&entry.Macros.Fat, o.Fat)

	for id, v := range o.Nutrients {
		if !id.Valid() {
			continue
		}
		if entry.Nutrients == nil {
			entry.Nutrients = domain.NutrientVector{}
		}
		entry.Nutrients[id] = math.Max(v, 0)
		entry.Overridden = true
	}
}

// Reverse recovers the base reference of an entry. The retained base is
// returned when present; legacy entries are inverted from their totals
// against 100 g/ml (continuous) or 1 portion.
func Reverse(entry domain.LogEntry) (domain.FoodReference, error) {
	if entry.Base != nil {
		ref := *entry.Base
		ref.Nutrients = entry.Base.Nutrients.Clone()
		return ref, nil
	}

	baseQty, baseUnit := 1.0, entry.Unit
	switch entry.Unit.Class() {
	case domain.ClassMass:
		baseQty, baseUnit = 100, domain.UnitGram
	case domain.ClassVolume:
		baseQty, baseUnit = 100, domain.UnitMillilitre
	case domain.ClassUnknown:
		baseUnit = domain.UnitServing
	}

	factor, err := ScaleFactor(entry.Quantity, entry.Unit, baseQty, baseUnit)
	if err != nil {
		return domain.FoodReference{}, err
	}
	inv := 1 / safeDivisor(factor)

	return domain.FoodReference{
		Name:         entry.Name,
		BaseQuantity: baseQty,
		BaseUnit:     baseUnit,
		Macros:       entry.Macros.Scale(inv),
		Nutrients:    entry.Nutrients.Scale(inv),
		Source:       domain.SourceManual,
	}, nil
}
