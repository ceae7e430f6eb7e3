package domain

// NutrientTotal is one nutrient's daily sum and its share of the reference intake.
type NutrientTotal struct {
	ID                 NutrientID    `json:"id"`
	Label              string        `json:"label"`
	Group              NutrientGroup `json:"group"`
	Unit               Unit          `json:"unit"`
	Amount             float64       `json:"amount"`
	ReferenceIntake    float64       `json:"referenceIntake,omitempty"`
	PercentOfReference float64       `json:"percentOfReference"`
}

// MacroProgress is consumption of one macro against its goal.
type MacroProgress struct {
	Consumed      float64 `json:"consumed"`
	Goal          float64 `json:"goal"`
	PercentOfGoal float64 `json:"percentOfGoal"`
}

// DayTotals is the aggregated view of one calendar day.
type DayTotals struct {
	Date       string            `json:"date"`
	EntryCount int               `json:"entryCount"`
	Macros     Macros            `json:"macros"`
	Nutrients  NutrientVector    `json:"nutrients"`
	Micros     []NutrientTotal   `json:"micros"`
	Calories   MacroProgress     `json:"calories"`
	Protein    MacroProgress     `json:"protein"`
	Carbs      MacroProgress     `json:"carbs"`
	Fat        MacroProgress     `json:"fat"`
	Meals      map[string]Macros `json:"meals"`
	Goal       Goal              `json:"goal"`
}
