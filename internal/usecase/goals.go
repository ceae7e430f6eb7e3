package usecase

import (
	"github.com/foodlog/backend/internal/domain"
)

// Default macro split as a share of target calories.
const (
	proteinShare = 0.30
	carbShare    = 0.35
	fatShare     = 0.35

	kcalPerGramProtein = 4.0
	kcalPerGramCarbs   = 4.0
	kcalPerGramFat     = 9.0
)

// ComputeGoals derives daily targets from a body profile using the
// Mifflin-St Jeor BMR.
func ComputeGoals(p domain.BodyProfile) (domain.Goal, error) {
	if err := ValidateProfile(p); err != nil {
		return domain.Goal{}, err
	}

	bmr := 10*p.Weight + 6.25*p.Height - 5*float64(p.Age)
	if p.Gender == domain.GenderMale {
		bmr += 5
	} else {
		bmr -= 161
	}
	tdee := bmr * p.ActivityMultiplier
	target := tdee + p.CalorieOffset
	if target < 0 {
		target = 0
	}

	return domain.Goal{
		Calories: target,
		Protein:  target * proteinShare / kcalPerGramProtein,
		Carbs:    target * carbShare / kcalPerGramCarbs,
		Fat:      target * fatShare / kcalPerGramFat,
		BMR:      bmr,
		TDEE:     tdee,
	}, nil
}

// ApplyProfile recomputes the computed goal of settings from p. The manual
// override is carried over untouched. settings may be nil.
func ApplyProfile(settings *domain.GoalSettings, p domain.BodyProfile) (domain.GoalSettings, error) {
	goal, err := ComputeGoals(p)
	if err != nil {
		return domain.GoalSettings{}, err
	}
	var out domain.GoalSettings
	if settings != nil {
		out.Override = settings.Override
	}
	out.Computed = &goal
	return out, nil
}

// ApplyOverride replaces the manual override of settings wholesale; fields
// left nil fall back to the computed goal.
func ApplyOverride(settings *domain.GoalSettings, o domain.GoalOverride) (domain.GoalSettings, error) {
	if err := ValidateOverride(o); err != nil {
		return domain.GoalSettings{}, err
	}
	var out domain.GoalSettings
	if settings != nil && settings.Computed != nil {
		c := *settings.Computed
		out.Computed = &c
	}
	out.Override = o
	return out, nil
}
