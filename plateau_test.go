package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entryDaysAgo builds a weight entry dated the given number of days before
// today (UTC).
func entryDaysAgo(daysAgo int, weightKG float64) weightEntry {
	return weightEntry{
		Date:     DateOnly{time.Now().UTC().AddDate(0, 0, -daysAgo)},
		WeightKG: weightKG,
	}
}

// flatHistory produces a weigh-in every other day going back spanDays days,
// all within ±0.1 kg of the base weight. Oldest first, matching the ASC
// ordering the handler fetches.
func flatHistory(spanDays int, baseKG float64) []weightEntry {
	var entries []weightEntry
	wobble := []float64{0, 0.1, -0.1}
	i := 0
	for d := spanDays; d >= 0; d -= 2 {
		entries = append(entries, entryDaysAgo(d, baseKG+wobble[i%len(wobble)]))
		i++
	}
	return entries
}

// mealsAtGoal produces one energy record per day for the last n days, each at
// the given fraction of the calorie goal.
func mealsAtGoal(n, calorieGoal int, fraction float64) []mealEnergyRecord {
	var meals []mealEnergyRecord
	for d := 0; d < n; d++ {
		meals = append(meals, mealEnergyRecord{
			Date:     DateOnly{time.Now().UTC().AddDate(0, 0, -d)},
			Calories: int(float64(calorieGoal) * fraction),
		})
	}
	return meals
}

func float64Ptr(f float64) *float64 { return &f }

/* ─── Insufficient data ──────────────────────────────────────────────── */

func TestDetectPlateau_InsufficientData(t *testing.T) {
	history := []weightEntry{
		entryDaysAgo(40, 85), // outside the 14-day window
		entryDaysAgo(10, 80),
		entryDaysAgo(2, 79.8),
	}
	got := detectPlateau(history, 2000, 500, nil, nil)

	assert.False(t, got.IsPlateaued)
	assert.Equal(t, suggestionKeepGoing, got.Suggestion)
	assert.Equal(t, 100, got.AdherenceScore)
	assert.Contains(t, got.Details, "3 weigh-ins")
}

func TestDetectPlateau_EmptyHistory(t *testing.T) {
	got := detectPlateau(nil, 2000, 500, nil, nil)
	assert.False(t, got.IsPlateaued)
	assert.Equal(t, suggestionKeepGoing, got.Suggestion)
	assert.Zero(t, got.DaysSinceChange)
}

// The early exit must not depend on deficit or body fat inputs.
func TestDetectPlateau_InsufficientDataIgnoresProfile(t *testing.T) {
	history := []weightEntry{entryDaysAgo(3, 80), entryDaysAgo(1, 80)}
	a := detectPlateau(history, 2000, 500, nil, nil)
	b := detectPlateau(history, 2000, 9000, float64Ptr(5), mealsAtGoal(14, 2000, 3))
	assert.Equal(t, a.Suggestion, b.Suggestion)
	assert.Equal(t, a.AdherenceScore, b.AdherenceScore)
}

/* ─── Losing / not plateaued ─────────────────────────────────────────── */

func TestDetectPlateau_CelebrateOnLoss(t *testing.T) {
	history := []weightEntry{
		entryDaysAgo(12, 81.0),
		entryDaysAgo(6, 80.4),
		entryDaysAgo(0, 80.0),
	}
	got := detectPlateau(history, 2000, 500, nil, nil)
	assert.False(t, got.IsPlateaued)
	assert.Equal(t, suggestionCelebrate, got.Suggestion)
}

// A net loss wins even when the window is noisy.
func TestDetectPlateau_CelebrateOverridesVariation(t *testing.T) {
	history := []weightEntry{
		entryDaysAgo(13, 81.0),
		entryDaysAgo(7, 83.5),
		entryDaysAgo(0, 80.2),
	}
	got := detectPlateau(history, 2000, 500, nil, nil)
	assert.Equal(t, suggestionCelebrate, got.Suggestion)
}

func TestDetectPlateau_NoisyWindowNotPlateaued(t *testing.T) {
	// Variation well above tolerance, no net loss: still moving, no plateau.
	history := []weightEntry{
		entryDaysAgo(13, 80.0),
		entryDaysAgo(7, 81.5),
		entryDaysAgo(0, 80.2),
	}
	got := detectPlateau(history, 2000, 500, nil, nil)
	assert.False(t, got.IsPlateaued)
	assert.Equal(t, suggestionKeepGoing, got.Suggestion)
}

/* ─── Plateau interventions ──────────────────────────────────────────── */

func TestDetectPlateau_AdjustMacrosDefault(t *testing.T) {
	history := flatHistory(16, 80)
	meals := mealsAtGoal(14, 2000, 1.0)

	got := detectPlateau(history, 2000, 500, nil, meals)

	assert.True(t, got.IsPlateaued)
	assert.GreaterOrEqual(t, got.DaysSinceChange, 14)
	assert.LessOrEqual(t, got.WeightVariation, stableWeightToleranceKG)
	assert.Equal(t, suggestionAdjustMacros, got.Suggestion)
}

func TestDetectPlateau_CheckLogsFirst(t *testing.T) {
	// Poor adherence outranks both the lean-refeed and deficit checks.
	history := flatHistory(16, 80)
	meals := mealsAtGoal(14, 2000, 1.5)

	got := detectPlateau(history, 2000, 800, float64Ptr(15), meals)

	require.True(t, got.IsPlateaued)
	assert.Equal(t, suggestionCheckLogs, got.Suggestion)
	assert.Less(t, got.AdherenceScore, adherenceThreshold)
	assert.Contains(t, got.Details, "logged days")
}

func TestDetectPlateau_RefeedWhenLean(t *testing.T) {
	history := flatHistory(16, 80)
	meals := mealsAtGoal(14, 2000, 1.0)

	got := detectPlateau(history, 2000, 800, float64Ptr(18), meals)

	require.True(t, got.IsPlateaued)
	assert.Equal(t, suggestionRefeed, got.Suggestion)
}

func TestDetectPlateau_MaintenanceWeekOnAggressiveDeficit(t *testing.T) {
	history := flatHistory(16, 80)
	meals := mealsAtGoal(14, 2000, 1.0)

	cases := []struct {
		name    string
		bodyFat *float64
	}{
		{"body fat unknown", nil},
		{"not lean", float64Ptr(25)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := detectPlateau(history, 2000, 750, tc.bodyFat, meals)
			require.True(t, got.IsPlateaued)
			assert.Equal(t, suggestionMaintenanceWeek, got.Suggestion)
		})
	}
}

func TestDetectPlateau_NoMealLogsNeutralAdherence(t *testing.T) {
	// With no logged meals adherence defaults to neutral and must not trigger
	// the check-logs branch.
	history := flatHistory(16, 80)
	got := detectPlateau(history, 2000, 500, nil, nil)

	require.True(t, got.IsPlateaued)
	assert.Equal(t, adherenceNeutralScore, got.AdherenceScore)
	assert.Equal(t, suggestionAdjustMacros, got.Suggestion)
}

/* ─── daysSinceChange ────────────────────────────────────────────────── */

func TestDaysSinceChange_FindsLastChange(t *testing.T) {
	history := []weightEntry{
		entryDaysAgo(20, 84.0),
		entryDaysAgo(6, 81.0),
		entryDaysAgo(3, 80.1),
		entryDaysAgo(0, 80.0),
	}
	assert.Equal(t, 6, daysSinceChange(history))
}

func TestDaysSinceChange_FallbackToSpan(t *testing.T) {
	// Everything within tolerance of the latest weight: fall back to the
	// full history span.
	history := []weightEntry{
		entryDaysAgo(20, 80.3),
		entryDaysAgo(10, 79.9),
		entryDaysAgo(0, 80.0),
	}
	assert.Equal(t, 20, daysSinceChange(history))
}

func TestDaysSinceChange_TooFewEntries(t *testing.T) {
	assert.Zero(t, daysSinceChange(nil))
	assert.Zero(t, daysSinceChange([]weightEntry{entryDaysAgo(0, 80)}))
}

/* ─── adherenceScore ─────────────────────────────────────────────────── */

func TestAdherenceScore_NoLogs(t *testing.T) {
	assert.Equal(t, adherenceNeutralScore, adherenceScore(nil, 2000))
}

func TestAdherenceScore_AllOnTrack(t *testing.T) {
	assert.Equal(t, 100, adherenceScore(mealsAtGoal(10, 2000, 1.0), 2000))
	// 10% over is still within tolerance.
	assert.Equal(t, 100, adherenceScore(mealsAtGoal(10, 2000, 1.1), 2000))
}

func TestAdherenceScore_AllOffTrack(t *testing.T) {
	assert.Zero(t, adherenceScore(mealsAtGoal(10, 2000, 1.5), 2000))
	assert.Zero(t, adherenceScore(mealsAtGoal(10, 2000, 0.5), 2000))
}

func TestAdherenceScore_Mixed(t *testing.T) {
	meals := append(mealsAtGoal(3, 2000, 1.0), mealEnergyRecord{
		Date:     DateOnly{time.Now().UTC().AddDate(0, 0, -5)},
		Calories: 3200,
	})
	assert.Equal(t, 75, adherenceScore(meals, 2000))
}

func TestAdherenceScore_SumsRecordsPerDay(t *testing.T) {
	today := DateOnly{time.Now().UTC()}
	meals := []mealEnergyRecord{
		{Date: today, Calories: 900},
		{Date: today, Calories: 1100},
	}
	assert.Equal(t, 100, adherenceScore(meals, 2000))
}

/* ─── daysBetween ────────────────────────────────────────────────────── */

func TestDaysBetween(t *testing.T) {
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, daysBetween(base, base))
	assert.Equal(t, 5, daysBetween(base.AddDate(0, 0, 5), base))
	// Time-of-day differences are irrelevant.
	late := time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 5, daysBetween(late, base))
}
