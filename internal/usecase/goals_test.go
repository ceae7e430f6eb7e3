package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodlog/backend/internal/domain"
)

func referenceProfile() domain.BodyProfile {
	return domain.BodyProfile{
		Weight:             70,
		Height:             175,
		Age:                30,
		Gender:             domain.GenderMale,
		ActivityMultiplier: 1.375,
	}
}

func TestComputeGoals(t *testing.T) {
	t.Run("male reference profile", func(t *testing.T) {
		g, err := ComputeGoals(referenceProfile())
		require.NoError(t, err)

		assert.Equal(t, 1648.75, g.BMR)
		assert.InDelta(t, 2267.03, g.TDEE, 0.01)
		assert.InDelta(t, 2267.03, g.Calories, 0.01)
		assert.InDelta(t, 170.0, g.Protein, 0.1)
		assert.InDelta(t, 198.4, g.Carbs, 0.1)
		assert.InDelta(t, 88.2, g.Fat, 0.1)
	})

	t.Run("female with deficit", func(t *testing.T) {
		p := domain.BodyProfile{Weight: 60, Height: 165, Age: 25, Gender: domain.GenderFemale, ActivityMultiplier: 1.2, CalorieOffset: -300}
		g, err := ComputeGoals(p)
		require.NoError(t, err)

		assert.Equal(t, 1345.25, g.BMR)
		assert.InDelta(t, 1614.3, g.TDEE, 1e-9)
		assert.InDelta(t, 1314.3, g.Calories, 1e-9)
	})

	t.Run("macro energy adds up to target", func(t *testing.T) {
		g, err := ComputeGoals(referenceProfile())
		require.NoError(t, err)
		assert.InDelta(t, g.Calories, g.Protein*4+g.Carbs*4+g.Fat*9, 1e-9)
	})
}

func TestComputeGoals_InvalidProfile(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *domain.BodyProfile)
	}{
		{"zero weight", func(p *domain.BodyProfile) { p.Weight = 0 }},
		{"negative height", func(p *domain.BodyProfile) { p.Height = -170 }},
		{"age zero", func(p *domain.BodyProfile) { p.Age = 0 }},
		{"unknown gender", func(p *domain.BodyProfile) { p.Gender = "other" }},
		{"activity below 1", func(p *domain.BodyProfile) { p.ActivityMultiplier = 0.5 }},
		{"absurd offset", func(p *domain.BodyProfile) { p.CalorieOffset = 5000 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := referenceProfile()
			tc.mutate(&p)
			_, err := ComputeGoals(p)
			assert.ErrorIs(t, err, domain.ErrInvalidProfile)
		})
	}
}

func TestValidateProfile_Message(t *testing.T) {
	p := referenceProfile()
	p.Gender = "x"
	p.Age = 0

	err := ValidateProfile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gender must be one of: male female")
	assert.Contains(t, err.Error(), "age must be at least 1")
}

func TestApplyProfile_KeepsOverride(t *testing.T) {
	protein := 180.0
	settings := &domain.GoalSettings{Override: domain.GoalOverride{Protein: &protein}}

	first, err := ApplyProfile(settings, referenceProfile())
	require.NoError(t, err)
	before := first.Effective()
	assert.Equal(t, 180.0, before.Protein)

	heavier := referenceProfile()
	heavier.Weight = 90
	second, err := ApplyProfile(&first, heavier)
	require.NoError(t, err)
	after := second.Effective()

	assert.Equal(t, 180.0, after.Protein, "override survives recompute")
	assert.Greater(t, after.Calories, before.Calories)
	assert.Greater(t, after.Carbs, before.Carbs)
	assert.Greater(t, after.Fat, before.Fat)
}

func TestApplyProfile_NilSettings(t *testing.T) {
	s, err := ApplyProfile(nil, referenceProfile())
	require.NoError(t, err)
	require.NotNil(t, s.Computed)
	assert.True(t, s.Override.Empty())
}

func TestApplyOverride(t *testing.T) {
	computed, err := ApplyProfile(nil, referenceProfile())
	require.NoError(t, err)

	kcal, fat := 2500.0, 80.0
	withKcal, err := ApplyOverride(&computed, domain.GoalOverride{Calories: &kcal})
	require.NoError(t, err)
	assert.Equal(t, 2500.0, withKcal.Effective().Calories)

	t.Run("replaces wholesale", func(t *testing.T) {
		withFat, err := ApplyOverride(&withKcal, domain.GoalOverride{Fat: &fat})
		require.NoError(t, err)
		eff := withFat.Effective()
		assert.Equal(t, 80.0, eff.Fat)
		assert.InDelta(t, 2267.03, eff.Calories, 0.01)
	})

	t.Run("keeps computed goal", func(t *testing.T) {
		cleared, err := ApplyOverride(&withKcal, domain.GoalOverride{})
		require.NoError(t, err)
		require.NotNil(t, cleared.Computed)
		assert.Equal(t, *computed.Computed, cleared.Effective())
	})

	t.Run("rejects negative values", func(t *testing.T) {
		neg := -1.0
		_, err := ApplyOverride(&withKcal, domain.GoalOverride{Protein: &neg})
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	})
}

func TestGoalSettings_EffectiveDefault(t *testing.T) {
	assert.Equal(t, domain.DefaultGoal, domain.GoalSettings{}.Effective())

	carbs := 100.0
	eff := domain.GoalSettings{Override: domain.GoalOverride{Carbs: &carbs}}.Effective()
	assert.Equal(t, 100.0, eff.Carbs)
	assert.Equal(t, domain.DefaultGoal.Calories, eff.Calories)
}
