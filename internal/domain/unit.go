package domain

import "strings"

// Unit is a quantity unit attached to a logged amount or a base reference.
type Unit string

const (
	UnitMicrogram  Unit = "µg"
	UnitMilligram  Unit = "mg"
	UnitGram       Unit = "g"
	UnitKilogram   Unit = "kg"
	UnitOunce      Unit = "oz"
	UnitPound      Unit = "lb"
	UnitMillilitre Unit = "ml"
	UnitLitre      Unit = "l"
	UnitTeaspoon   Unit = "tsp"
	UnitTablespoon Unit = "tbsp"
	UnitCup        Unit = "cup"
	UnitFluidOunce Unit = "fl_oz"
	UnitServing    Unit = "serving"
	UnitPiece      Unit = "piece"
	UnitPortion    Unit = "portion"
)

// UnitClass groups units that can be converted into each other.
type UnitClass int

const (
	ClassUnknown UnitClass = iota
	ClassMass
	ClassVolume
	ClassPortion
)

func (c UnitClass) String() string {
	switch c {
	case ClassMass:
		return "mass"
	case ClassVolume:
		return "volume"
	case ClassPortion:
		return "portion"
	default:
		return "unknown"
	}
}

type unitDef struct {
	class UnitClass
	// toBase converts one unit into grams (mass) or millilitres (volume).
	toBase float64
}

var unitTable = map[Unit]unitDef{
	UnitMicrogram:  {class: ClassMass, toBase: 1e-6},
	UnitMilligram:  {class: ClassMass, toBase: 1e-3},
	UnitGram:       {class: ClassMass, toBase: 1},
	UnitKilogram:   {class: ClassMass, toBase: 1000},
	UnitOunce:      {class: ClassMass, toBase: 28.349523125},
	UnitPound:      {class: ClassMass, toBase: 453.59237},
	UnitMillilitre: {class: ClassVolume, toBase: 1},
	UnitLitre:      {class: ClassVolume, toBase: 1000},
	UnitTeaspoon:   {class: ClassVolume, toBase: 4.92892159375},
	UnitTablespoon: {class: ClassVolume, toBase: 14.78676478125},
	UnitCup:        {class: ClassVolume, toBase: 236.5882365},
	UnitFluidOunce: {class: ClassVolume, toBase: 29.5735295625},
	UnitServing:    {class: ClassPortion, toBase: 1},
	UnitPiece:      {class: ClassPortion, toBase: 1},
	UnitPortion:    {class: ClassPortion, toBase: 1},
}

var unitAliases = map[string]Unit{
	"ug": UnitMicrogram, "mcg": UnitMicrogram, "μg": UnitMicrogram, "microgram": UnitMicrogram, "micrograms": UnitMicrogram,
	"milligram": UnitMilligram, "milligrams": UnitMilligram,
	"gr": UnitGram, "gram": UnitGram, "grams": UnitGram,
	"kilogram": UnitKilogram, "kilograms": UnitKilogram,
	"ounce": UnitOunce, "ounces": UnitOunce,
	"lbs": UnitPound, "pound": UnitPound, "pounds": UnitPound,
	"milliliter": UnitMillilitre, "millilitre": UnitMillilitre, "milliliters": UnitMillilitre, "millilitres": UnitMillilitre,
	"liter": UnitLitre, "litre": UnitLitre, "liters": UnitLitre, "litres": UnitLitre,
	"teaspoon": UnitTeaspoon, "tablespoon": UnitTablespoon, "cups": UnitCup,
	"fl oz": UnitFluidOunce, "fl-oz": UnitFluidOunce, "floz": UnitFluidOunce,
	"servings": UnitServing, "pieces": UnitPiece, "pcs": UnitPiece, "whole": UnitPiece, "item": UnitPiece,
	"portions": UnitPortion,
}

// ParseUnit normalizes a free-form unit label. Labels that are not in the
// unit table are kept verbatim (lowercased) and classify as portions, so
// "slice" or "bar" behave like one discrete item.
func ParseUnit(s string) Unit {
	k := strings.ToLower(strings.TrimSpace(s))
	if k == "" {
		return ""
	}
	if u, ok := unitAliases[k]; ok {
		return u
	}
	return Unit(k)
}

// Class reports which conversion family the unit belongs to.
func (u Unit) Class() UnitClass {
	if u == "" {
		return ClassUnknown
	}
	if def, ok := unitTable[u]; ok {
		return def.class
	}
	return ClassPortion
}

// Continuous reports whether the unit is a mass or volume unit.
func (u Unit) Continuous() bool {
	c := u.Class()
	return c == ClassMass || c == ClassVolume
}

// ToBase converts value in u into grams or millilitres. Mass and volume
// share one scale at a density of 1 g/ml.
func (u Unit) ToBase(value float64) (float64, bool) {
	def, ok := unitTable[u]
	if !ok || def.class == ClassPortion {
		return 0, false
	}
	return value * def.toBase, true
}

// ConvertMass converts a nutrient magnitude between mass units
// (×1000 g→mg, ×1,000,000 g→µg, and so on).
func ConvertMass(value float64, from, to Unit) (float64, bool) {
	if from == to {
		return value, true
	}
	f, ok := unitTable[from]
	if !ok || f.class != ClassMass {
		return 0, false
	}
	t, ok := unitTable[to]
	if !ok || t.class != ClassMass {
		return 0, false
	}
	return value * (f.toBase / t.toBase), true
}
