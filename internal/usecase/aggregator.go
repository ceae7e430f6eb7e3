package usecase

import (
	"sort"

	"github.com/foodlog/backend/internal/domain"
)

// AggregateDay sums every entry filed under date and expresses the totals
// against the goal and the reference intakes. Entries are summed in a fixed
// order (id, timestamp, then content) so any permutation of the input
// yields identical floating-point totals.
func AggregateDay(date string, entries []domain.LogEntry, goal domain.Goal) domain.DayTotals {
	day := make([]domain.LogEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date == date {
			day = append(day, e)
		}
	}
	sortEntries(day)

	totals := domain.DayTotals{
		Date:       date,
		EntryCount: len(day),
		Nutrients:  make(domain.NutrientVector, len(domain.NutrientIDs())),
		Meals:      make(map[string]domain.Macros, len(domain.Meals)),
		Goal:       goal,
	}
	for _, meal := range domain.Meals {
		totals.Meals[meal] = domain.Macros{}
	}

	ids := domain.NutrientIDs()
	for _, e := range day {
		totals.Macros = totals.Macros.Add(e.Macros)
		meal := e.Meal
		if meal == "" {
			meal = domain.MealSnacks
		}
		totals.Meals[meal] = totals.Meals[meal].Add(e.Macros)
		for _, id := range ids {
			// A nil map reads as zero for every nutrient.
			totals.Nutrients[id] += e.Nutrients.Get(id)
		}
	}

	totals.Micros = make([]domain.NutrientTotal, 0, len(ids))
	for _, info := range domain.Nutrients() {
		amount := totals.Nutrients[info.ID]
		totals.Micros = append(totals.Micros, domain.NutrientTotal{
			ID:                 info.ID,
			Label:              info.Label,
			Group:              info.Group,
			Unit:               info.Unit,
			Amount:             amount,
			ReferenceIntake:    info.ReferenceIntake,
			PercentOfReference: percent(amount, info.ReferenceIntake),
		})
	}

	totals.Calories = progress(totals.Macros.Calories, goal.Calories)
	totals.Protein = progress(totals.Macros.Protein, goal.Protein)
	totals.Carbs = progress(totals.Macros.Carbs, goal.Carbs)
	totals.Fat = progress(totals.Macros.Fat, goal.Fat)
	return totals
}

// AggregateRange produces one DayTotals per date, in the order given.
func AggregateRange(dates []string, entries []domain.LogEntry, goal domain.Goal) []domain.DayTotals {
	byDate := make(map[string][]domain.LogEntry, len(dates))
	for _, e := range entries {
		byDate[e.Date] = append(byDate[e.Date], e)
	}
	out := make([]domain.DayTotals, 0, len(dates))
	for _, d := range dates {
		out = append(out, AggregateDay(d, byDate[d], goal))
	}
	return out
}

func progress(consumed, goal float64) domain.MacroProgress {
	return domain.MacroProgress{
		Consumed:      consumed,
		Goal:          goal,
		PercentOfGoal: percent(consumed, goal),
	}
}

// percent is total/target*100, or 0 when no target is defined.
func percent(total, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return total / target * 100
}

func sortEntries(entries []domain.LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Meal != b.Meal {
			return a.Meal < b.Meal
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Quantity != b.Quantity {
			return a.Quantity < b.Quantity
		}
		return a.Macros.Calories < b.Macros.Calories
	})
}
