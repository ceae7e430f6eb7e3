package usecase

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/foodlog/backend/internal/domain"
)

const kilojoulesPerKcal = 4.184

// Raw field spellings for the four macros, in priority order.
var (
	calorieKeys  = []string{"calories", "energy-kcal_100g", "energy-kcal", "ENERC_KCAL", "kcal"}
	kilojouleKey = []string{"energy-kj_100g", "energy-kj", "energy_kj", "kj"}
	proteinKeys  = []string{"protein", "proteins_100g", "proteins", "PROCNT"}
	carbKeys     = []string{"carbs", "carbohydrates_100g", "carbohydrates", "carbohydrate", "CHOCDF"}
	fatKeys      = []string{"fat", "fat_100g", "total_fat", "totalFat", "FAT"}
)

// Normalize maps a raw payload onto the canonical nutrient vector. For each
// nutrient the first present spelling wins and is converted from its source
// unit to the canonical one. Every nutrient is present in the result; the
// ones the payload lacks are zero.
func Normalize(raw domain.RawPayload, units domain.SourceUnits) domain.NutrientVector {
	out := make(domain.NutrientVector, len(domain.NutrientIDs()))
	for _, info := range domain.Nutrients() {
		out[info.ID] = 0
		for _, key := range info.Keys {
			v, ok := extractFloat(raw, key)
			if !ok {
				continue
			}
			converted, ok := domain.ConvertMass(v, units.UnitFor(key, info.Unit), info.Unit)
			if !ok {
				// IU and other non-mass units cannot be converted; try the
				// next spelling.
				continue
			}
			out[info.ID] = converted
			break
		}
	}
	return out
}

// NormalizeMacros extracts kcal, protein, carbs and fat. present counts how
// many of the four were actually found; absent ones are zero.
func NormalizeMacros(raw domain.RawPayload) (domain.Macros, int) {
	var m domain.Macros
	present := 0

	if v, ok := firstFloat(raw, calorieKeys); ok {
		m.Calories = v
		present++
	} else if v, ok := firstFloat(raw, kilojouleKey); ok {
		m.Calories = v / kilojoulesPerKcal
		present++
	}
	if v, ok := firstFloat(raw, proteinKeys); ok {
		m.Protein = v
		present++
	}
	if v, ok := firstFloat(raw, carbKeys); ok {
		m.Carbs = v
		present++
	}
	if v, ok := firstFloat(raw, fatKeys); ok {
		m.Fat = v
		present++
	}
	return m, present
}

// BuildReference normalizes a raw payload into a FoodReference declared
// against baseQty of baseUnit. A missing unit means grams; a missing
// quantity means 100 for continuous units and 1 for portions.
func BuildReference(name string, baseQty float64, baseUnit domain.Unit, raw domain.RawPayload, units domain.SourceUnits, source domain.Source) (domain.FoodReference, int) {
	macros, present := NormalizeMacros(raw)
	if baseUnit == "" {
		baseUnit = domain.UnitGram
	}
	if baseQty <= 0 || math.IsNaN(baseQty) || math.IsInf(baseQty, 0) {
		baseQty = 1
		if baseUnit.Continuous() {
			baseQty = 100
		}
	}
	return domain.FoodReference{
		Name:         strings.TrimSpace(name),
		BaseQuantity: baseQty,
		BaseUnit:     baseUnit,
		Macros:       macros,
		Nutrients:    Normalize(raw, units),
		Source:       source,
	}, present
}

func firstFloat(raw domain.RawPayload, keys []string) (float64, bool) {
	for _, k := range keys {
		if v, ok := extractFloat(raw, k); ok {
			return v, true
		}
	}
	return 0, false
}

// extractFloat coerces a payload value to a non-negative float64. Negative
// values are reported as present but zero.
func extractFloat(raw domain.RawPayload, key string) (float64, bool) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, false
	}

	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(x), "<>~≈"))
		parsed, err := strconv.ParseFloat(normalizeSeparators(s), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < 0 {
		return 0, true
	}
	return f, true
}

// normalizeSeparators rewrites a localized number into Go's float syntax.
// With both separators present the last one is the decimal mark. A lone
// separator repeated, or a single comma followed by exactly three digits,
// groups thousands; any other lone comma is a decimal comma.
func normalizeSeparators(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 || (comma > 0 && len(s)-comma-1 == 3) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}
