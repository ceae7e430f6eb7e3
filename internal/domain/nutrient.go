package domain

import (
	"sort"
	"strings"
)

// NutrientID identifies one micronutrient or detail nutrient tracked by the log.
type NutrientID string

const (
	Sugar              NutrientID = "sugar"
	Fiber              NutrientID = "fiber"
	SaturatedFat       NutrientID = "saturated_fat"
	MonounsaturatedFat NutrientID = "monounsaturated_fat"
	PolyunsaturatedFat NutrientID = "polyunsaturated_fat"
	Sodium             NutrientID = "sodium"
	Potassium          NutrientID = "potassium"
	Chloride           NutrientID = "chloride"
	Caffeine           NutrientID = "caffeine"
	Water              NutrientID = "water"

	VitaminA        NutrientID = "vitamin_a"
	Thiamin         NutrientID = "thiamin"
	Riboflavin      NutrientID = "riboflavin"
	VitaminB6       NutrientID = "vitamin_b6"
	VitaminB12      NutrientID = "vitamin_b12"
	Biotin          NutrientID = "biotin"
	FolicAcid       NutrientID = "folic_acid"
	Niacin          NutrientID = "niacin"
	PantothenicAcid NutrientID = "pantothenic_acid"
	VitaminC        NutrientID = "vitamin_c"
	VitaminD        NutrientID = "vitamin_d"
	VitaminE        NutrientID = "vitamin_e"
	VitaminK        NutrientID = "vitamin_k"

	Calcium    NutrientID = "calcium"
	Magnesium  NutrientID = "magnesium"
	Zinc       NutrientID = "zinc"
	Chromium   NutrientID = "chromium"
	Molybdenum NutrientID = "molybdenum"
	Iodine     NutrientID = "iodine"
	Selenium   NutrientID = "selenium"
	Phosphorus NutrientID = "phosphorus"
	Manganese  NutrientID = "manganese"
	Iron       NutrientID = "iron"
	Copper     NutrientID = "copper"
)

// NutrientGroup is the section a nutrient is listed under.
type NutrientGroup string

const (
	GroupDetails  NutrientGroup = "details"
	GroupVitamins NutrientGroup = "vitamins"
	GroupMinerals NutrientGroup = "minerals"
)

// NutrientInfo is one row of the nutrient table.
type NutrientInfo struct {
	ID    NutrientID
	Label string
	Group NutrientGroup
	// Unit is the canonical unit every stored value is expressed in.
	Unit Unit
	// ReferenceIntake is the daily reference in Unit; zero when none is defined.
	ReferenceIntake float64
	// Keys are the raw field spellings that map onto this nutrient, in
	// priority order.
	Keys []string
}

// nutrientTable follows EU nutrient reference values where one exists.
var nutrientTable = []NutrientInfo{
	{Sugar, "Sugar", GroupDetails, UnitGram, 90, []string{"sugars_100g", "sugars", "SUGAR"}},
	{Fiber, "Fiber", GroupDetails, UnitGram, 25, []string{"fiber_100g", "fibre", "FIBTG"}},
	{SaturatedFat, "Saturated fat", GroupDetails, UnitGram, 20, []string{"saturated-fat_100g", "saturated-fat", "FASAT"}},
	{MonounsaturatedFat, "Monounsaturated fat", GroupDetails, UnitGram, 0, []string{"monounsaturated-fat_100g", "monounsaturated-fat", "FAMS"}},
	{PolyunsaturatedFat, "Polyunsaturated fat", GroupDetails, UnitGram, 0, []string{"polyunsaturated-fat_100g", "polyunsaturated-fat", "FAPU"}},
	{Sodium, "Sodium", GroupDetails, UnitMilligram, 2400, []string{"sodium_100g", "NA"}},
	{Potassium, "Potassium", GroupDetails, UnitMilligram, 2000, []string{"potassium_100g", "K"}},
	{Chloride, "Chloride", GroupDetails, UnitMilligram, 800, []string{"chloride_100g"}},
	{Caffeine, "Caffeine", GroupDetails, UnitMilligram, 400, []string{"caffeine_100g"}},
	{Water, "Water", GroupDetails, UnitGram, 2000, []string{"water_100g", "WATER"}},

	{VitaminA, "Vitamin A", GroupVitamins, UnitMicrogram, 800, []string{"vitamin-a_100g", "vitamin-a", "VITA_RAE"}},
	{Thiamin, "Thiamin (B1)", GroupVitamins, UnitMilligram, 1.1, []string{"vitamin_b1", "vitamin-b1_100g", "vitamin-b1", "THIA"}},
	{Riboflavin, "Riboflavin (B2)", GroupVitamins, UnitMilligram, 1.4, []string{"vitamin_b2", "vitamin-b2_100g", "vitamin-b2", "RIBF"}},
	{VitaminB6, "Vitamin B6", GroupVitamins, UnitMilligram, 1.4, []string{"vitamin-b6_100g", "vitamin-b6", "VITB6A"}},
	{VitaminB12, "Vitamin B12", GroupVitamins, UnitMicrogram, 2.5, []string{"vitamin-b12_100g", "vitamin-b12", "VITB12"}},
	{Biotin, "Biotin", GroupVitamins, UnitMicrogram, 50, []string{"biotin_100g"}},
	{FolicAcid, "Folic acid", GroupVitamins, UnitMicrogram, 200, []string{"folate", "folates_100g", "vitamin-b9_100g", "vitamin-b9", "FOLDFE"}},
	{Niacin, "Niacin (B3)", GroupVitamins, UnitMilligram, 16, []string{"vitamin_b3", "vitamin-pp_100g", "vitamin-pp", "NIA"}},
	{PantothenicAcid, "Pantothenic acid", GroupVitamins, UnitMilligram, 6, []string{"pantothenic-acid_100g", "pantothenic-acid"}},
	{VitaminC, "Vitamin C", GroupVitamins, UnitMilligram, 80, []string{"vitamin-c_100g", "vitamin-c", "VITC"}},
	{VitaminD, "Vitamin D", GroupVitamins, UnitMicrogram, 5, []string{"vitamin-d_100g", "vitamin-d", "VITD"}},
	{VitaminE, "Vitamin E", GroupVitamins, UnitMilligram, 12, []string{"vitamin-e_100g", "vitamin-e", "TOCPHA"}},
	{VitaminK, "Vitamin K", GroupVitamins, UnitMicrogram, 75, []string{"vitamin-k_100g", "vitamin-k", "VITK1"}},

	{Calcium, "Calcium", GroupMinerals, UnitMilligram, 800, []string{"calcium_100g", "CA"}},
	{Magnesium, "Magnesium", GroupMinerals, UnitMilligram, 375, []string{"magnesium_100g", "MG"}},
	{Zinc, "Zinc", GroupMinerals, UnitMilligram, 10, []string{"zinc_100g", "ZN"}},
	{Chromium, "Chromium", GroupMinerals, UnitMicrogram, 40, []string{"chromium_100g"}},
	{Molybdenum, "Molybdenum", GroupMinerals, UnitMicrogram, 50, []string{"molybdenum_100g"}},
	{Iodine, "Iodine", GroupMinerals, UnitMicrogram, 150, []string{"iodine_100g"}},
	{Selenium, "Selenium", GroupMinerals, UnitMicrogram, 55, []string{"selenium_100g"}},
	{Phosphorus, "Phosphorus", GroupMinerals, UnitMilligram, 700, []string{"phosphorus_100g", "P"}},
	{Manganese, "Manganese", GroupMinerals, UnitMilligram, 2, []string{"manganese_100g"}},
	{Iron, "Iron", GroupMinerals, UnitMilligram, 14, []string{"iron_100g", "FE"}},
	{Copper, "Copper", GroupMinerals, UnitMilligram, 1, []string{"copper_100g"}},
}

var (
	nutrientIndex = map[NutrientID]int{}
	nutrientKeys  = map[string]NutrientID{}
)

func init() {
	for i := range nutrientTable {
		n := &nutrientTable[i]
		// The identifier itself and its camelCase spelling are always accepted
		// first, ahead of any source-specific spelling.
		n.Keys = append([]string{string(n.ID), camelCase(string(n.ID))}, n.Keys...)
		nutrientIndex[n.ID] = i
		for _, k := range n.Keys {
			if _, dup := nutrientKeys[k]; !dup {
				nutrientKeys[k] = n.ID
			}
		}
	}
}

func camelCase(snake string) string {
	parts := strings.Split(snake, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// Nutrients returns the full table in display order.
func Nutrients() []NutrientInfo {
	out := make([]NutrientInfo, len(nutrientTable))
	copy(out, nutrientTable)
	return out
}

// NutrientIDs returns every identifier in display order.
func NutrientIDs() []NutrientID {
	ids := make([]NutrientID, len(nutrientTable))
	for i, n := range nutrientTable {
		ids[i] = n.ID
	}
	return ids
}

// LookupNutrient returns the table row for id.
func LookupNutrient(id NutrientID) (NutrientInfo, bool) {
	i, ok := nutrientIndex[id]
	if !ok {
		return NutrientInfo{}, false
	}
	return nutrientTable[i], true
}

// ParseNutrientID resolves any known spelling to its identifier.
func ParseNutrientID(key string) (NutrientID, bool) {
	id, ok := nutrientKeys[key]
	return id, ok
}

// Valid reports whether id is a member of the table.
func (id NutrientID) Valid() bool {
	_, ok := nutrientIndex[id]
	return ok
}

// NutrientVector holds nutrient amounts in canonical units. A missing
// nutrient reads as zero.
type NutrientVector map[NutrientID]float64

// Get returns the amount for id, zero when absent.
func (v NutrientVector) Get(id NutrientID) float64 {
	if v == nil {
		return 0
	}
	return v[id]
}

// Scale returns a new vector with every amount multiplied by factor.
func (v NutrientVector) Scale(factor float64) NutrientVector {
	out := make(NutrientVector, len(v))
	for id, amount := range v {
		out[id] = amount * factor
	}
	return out
}

// Clone returns a copy of v.
func (v NutrientVector) Clone() NutrientVector {
	return v.Scale(1)
}

// Keys returns the identifiers present in v, sorted.
func (v NutrientVector) Keys() []NutrientID {
	ids := make([]NutrientID, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
