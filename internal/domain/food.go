package domain

// Source tags where a nutrient profile came from.
type Source string

const (
	SourceDatabase   Source = "Database"
	SourceAIEstimate Source = "AI Estimate"
	SourceVision     Source = "Vision"
	SourceManual     Source = "Manual"
)

// Macros are the four headline values: kcal and grams of protein, carbs, fat.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Scale multiplies every macro by factor.
func (m Macros) Scale(factor float64) Macros {
	return Macros{
		Calories: m.Calories * factor,
		Protein:  m.Protein * factor,
		Carbs:    m.Carbs * factor,
		Fat:      m.Fat * factor,
	}
}

// Add returns the field-wise sum of m and o.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// FoodReference is a nutrient profile declared against BaseQuantity of
// BaseUnit. Every value, macro or nutrient, is relative to that base.
type FoodReference struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name"`
	Brand        string         `json:"brand,omitempty"`
	Code         string         `json:"code,omitempty"`
	BaseQuantity float64        `json:"baseQuantity"`
	BaseUnit     Unit           `json:"baseUnit"`
	Macros       Macros         `json:"macros"`
	Nutrients    NutrientVector `json:"nutrients"`
	Source       Source         `json:"source"`
	// Confidence is the match score (0-100) for fuzzy favorites hits.
	Confidence float64 `json:"confidence,omitempty"`
}

// Scaled is a nutrient profile for one concrete quantity.
type Scaled struct {
	Quantity  float64        `json:"quantity"`
	Unit      Unit           `json:"unit"`
	Factor    float64        `json:"factor"`
	Macros    Macros         `json:"macros"`
	Nutrients NutrientVector `json:"nutrients"`
}

// Mode selects how a query is interpreted.
type Mode string

const (
	ModeBarcode Mode = "barcode"
	ModeText    Mode = "text"
)

// Valid reports whether m is a known lookup mode.
func (m Mode) Valid() bool {
	return m == ModeBarcode || m == ModeText
}

// Query is one resolution request.
type Query struct {
	Text   string
	Mode   Mode
	Region string
	UserID string
}

// RawPayload is a nutrient record exactly as a source returned it: arbitrary
// key spellings, numbers possibly encoded as strings.
type RawPayload map[string]any

// SourceUnits declares the units a raw payload's values are expressed in.
// Keys overrides per raw key; Default applies to every other key. An empty
// Default means the values are already in canonical units.
type SourceUnits struct {
	Default Unit
	Keys    map[string]Unit
}

// CanonicalUnits marks a payload that already uses the canonical units.
var CanonicalUnits = SourceUnits{}

// UnitFor returns the unit a raw key is expressed in, falling back to the
// nutrient's canonical unit.
func (s SourceUnits) UnitFor(key string, canonical Unit) Unit {
	if u, ok := s.Keys[key]; ok && u != "" {
		return u
	}
	if s.Default != "" {
		return s.Default
	}
	return canonical
}

// RawProduct is one structured database hit before normalization.
type RawProduct struct {
	Code         string
	Name         string
	Brand        string
	BaseQuantity float64
	BaseUnit     Unit
	Payload      RawPayload
	Units        SourceUnits
}

// RawEstimate is what the generative estimator returned for a text query.
type RawEstimate struct {
	Name         string
	BaseQuantity float64
	BaseUnit     Unit
	Payload      RawPayload
}

// ImageEstimate is the absolute total for the portion visible in a photo.
type ImageEstimate struct {
	Name            string
	EstimatedWeight float64
	Payload         RawPayload
}
