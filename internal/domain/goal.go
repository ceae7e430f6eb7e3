package domain

// Gender values accepted by the BMR formula.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// BodyProfile is the input to goal computation. Weight in kg, height in cm.
type BodyProfile struct {
	Weight             float64 `json:"weight" validate:"gt=0,lte=500"`
	Height             float64 `json:"height" validate:"gt=0,lte=300"`
	Age                int     `json:"age" validate:"gte=1,lte=130"`
	Gender             string  `json:"gender" validate:"oneof=male female"`
	ActivityMultiplier float64 `json:"activityMultiplier" validate:"gte=1,lte=2.5"`
	CalorieOffset      float64 `json:"calorieOffset" validate:"gte=-2000,lte=2000"`
}

// Goal holds daily targets: kcal and grams of protein, carbs, fat.
type Goal struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	// BMR and TDEE are set when the goal was computed from a profile.
	BMR  float64 `json:"bmr,omitempty"`
	TDEE float64 `json:"tdee,omitempty"`
}

// DefaultGoal is used until a profile or manual override exists.
var DefaultGoal = Goal{Calories: 2000, Protein: 150, Carbs: 250, Fat: 70}

// GoalOverride holds manually set targets. A nil field is not overridden.
type GoalOverride struct {
	Calories *float64 `json:"calories,omitempty" validate:"omitempty,gte=0"`
	Protein  *float64 `json:"protein,omitempty" validate:"omitempty,gte=0"`
	Carbs    *float64 `json:"carbs,omitempty" validate:"omitempty,gte=0"`
	Fat      *float64 `json:"fat,omitempty" validate:"omitempty,gte=0"`
}

// Empty reports whether no field is overridden.
func (o GoalOverride) Empty() bool {
	return o.Calories == nil && o.Protein == nil && o.Carbs == nil && o.Fat == nil
}

// GoalSettings is what gets persisted per user: the computed targets and
// the manual override, kept apart so recomputation never clears an override.
type GoalSettings struct {
	Computed *Goal        `json:"computed,omitempty"`
	Override GoalOverride `json:"override"`
}

// Effective returns the computed goal (or DefaultGoal) with every
// overridden field replaced.
func (s GoalSettings) Effective() Goal {
	g := DefaultGoal
	if s.Computed != nil {
		g = *s.Computed
	}
	if s.Override.Calories != nil {
		g.Calories = *s.Override.Calories
	}
	if s.Override.Protein != nil {
		g.Protein = *s.Override.Protein
	}
	if s.Override.Carbs != nil {
		g.Carbs = *s.Override.Carbs
	}
	if s.Override.Fat != nil {
		g.Fat = *s.Override.Fat
	}
	return g
}
