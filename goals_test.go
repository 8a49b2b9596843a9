package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeProfile constructs a fully-populated userSettings pointer for target
// computation tests. Individual tests nil out specific fields to exercise
// missing-field guards.
func makeProfile(sex string, dobYear int, heightCM, weightKG float64, activityLevel string, deficit int) *userSettings {
	dob := DateOnly{time.Date(dobYear, 1, 1, 0, 0, 0, 0, time.UTC)}
	return &userSettings{
		Sex:             &sex,
		DateOfBirth:     &dob,
		HeightCM:        &heightCM,
		CurrentWeightKG: &weightKG,
		ActivityLevel:   &activityLevel,
		DailyDeficit:    deficit,
	}
}

/* ─── estimateTargetDate ─────────────────────────────────────────────── */

func TestEstimateTargetDate_ZeroRateRejected(t *testing.T) {
	_, err := estimateTargetDate(80, 70, 0)
	require.ErrorIs(t, err, errZeroWeeklyGoal)
}

func TestEstimateTargetDate_WeeksRoundUp(t *testing.T) {
	// 10 kg at 1.5 kg/week: 6.67 weeks rounds up to 7, i.e. 49 days out.
	d, err := estimateTargetDate(80, 70, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 49, daysBetween(d, time.Now()))
}

func TestEstimateTargetDate_RateSignIgnored(t *testing.T) {
	// Both direction of travel and rate sign are irrelevant; only magnitudes count.
	losing, err := estimateTargetDate(80, 70, -1)
	require.NoError(t, err)
	gaining, err := estimateTargetDate(70, 80, 1)
	require.NoError(t, err)
	assert.Equal(t, 70, daysBetween(losing, time.Now()))
	assert.Equal(t, 70, daysBetween(gaining, time.Now()))
}

/* ─── calculateWeightProgress ────────────────────────────────────────── */

func TestCalculateWeightProgress(t *testing.T) {
	cases := []struct {
		name                   string
		start, current, target float64
		want                   int
	}{
		{"no progress yet", 80, 80, 70, 0},
		{"goal reached", 80, 70, 70, 100},
		{"halfway", 80, 75, 70, 50},
		{"overshoot saturates at 100", 80, 60, 70, 100},
		{"regression clamps at 0", 80, 83, 70, 0},
		{"already at goal at start", 80, 80, 80, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, calculateWeightProgress(tc.start, tc.current, tc.target))
		})
	}
}

/* ─── generateMilestones ─────────────────────────────────────────────── */

func TestGenerateMilestones_LosingSixteen(t *testing.T) {
	// 90 → 74: halfway (82) interleaves between the 5 kg (85) and 10 kg (80)
	// anchors — ordering is purely by weight value, not milestone type.
	ms := generateMilestones(90, 74)
	require.Len(t, ms, 5)

	weights := make([]float64, len(ms))
	for i, m := range ms {
		weights[i] = m.TargetWeightKG
	}
	assert.Equal(t, []float64{89, 85, 82, 80, 74}, weights)

	assert.Equal(t, "First kilogram", ms[0].Title)
	assert.Equal(t, 50, ms[0].XPReward)
	assert.Equal(t, "Halfway there", ms[2].Title)
	assert.Equal(t, 200, ms[2].XPReward)
	assert.Equal(t, "Goal reached", ms[4].Title)
	assert.Equal(t, 500, ms[4].XPReward)
}

func TestGenerateMilestones_LosingTwenty(t *testing.T) {
	// 90 → 70: the 10 kg anchor and the midpoint coincide at 80; both entries
	// are kept. Order within the tie is unspecified, so check weights only.
	ms := generateMilestones(90, 70)
	require.Len(t, ms, 5)

	weights := make([]float64, len(ms))
	titles := make([]string, len(ms))
	for i, m := range ms {
		weights[i] = m.TargetWeightKG
		titles[i] = m.Title
	}
	assert.Equal(t, []float64{89, 85, 80, 80, 70}, weights)
	assert.ElementsMatch(t,
		[]string{"First kilogram", "5 kg milestone", "Halfway there", "10 kg milestone", "Goal reached"},
		titles)
}

func TestGenerateMilestones_SmallGoal(t *testing.T) {
	// Losing only 2 kg: no 5 kg or 10 kg milestones.
	ms := generateMilestones(70, 68)
	require.Len(t, ms, 3)
	for _, m := range ms {
		assert.NotContains(t, m.Title, "5 kg")
		assert.NotContains(t, m.Title, "10 kg")
	}
	assert.Equal(t, 68.0, ms[len(ms)-1].TargetWeightKG)
}

func TestGenerateMilestones_GainingAscending(t *testing.T) {
	ms := generateMilestones(60, 66)
	require.Len(t, ms, 4) // first-kg, halfway, 5 kg, goal
	weights := make([]float64, len(ms))
	for i, m := range ms {
		weights[i] = m.TargetWeightKG
	}
	assert.Equal(t, []float64{61, 63, 65, 66}, weights)
}

/* ─── computeNutritionalTargets ──────────────────────────────────────── */

func TestComputeNutritionalTargets_MissingFields(t *testing.T) {
	cases := []struct {
		name  string
		mutFn func(s *userSettings)
	}{
		{"nil Sex", func(s *userSettings) { s.Sex = nil }},
		{"nil DateOfBirth", func(s *userSettings) { s.DateOfBirth = nil }},
		{"nil HeightCM", func(s *userSettings) { s.HeightCM = nil }},
		{"nil CurrentWeightKG", func(s *userSettings) { s.CurrentWeightKG = nil }},
		{"nil ActivityLevel", func(s *userSettings) { s.ActivityLevel = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := makeProfile("male", 1990, 175, 80, "sedentary", 500)
			tc.mutFn(s)
			_, _, _, ok := computeNutritionalTargets(s)
			assert.False(t, ok)
		})
	}
}

func TestComputeNutritionalTargets_UnknownActivityLevel(t *testing.T) {
	s := makeProfile("male", 1990, 175, 80, "heroic", 500)
	_, _, _, ok := computeNutritionalTargets(s)
	assert.False(t, ok)
}

func TestComputeNutritionalTargets_ImplausibleAge(t *testing.T) {
	futureDOB := makeProfile("male", time.Now().Year()+1, 175, 80, "sedentary", 500)
	_, _, _, ok := computeNutritionalTargets(futureDOB)
	assert.False(t, ok)

	ancientDOB := makeProfile("male", time.Now().Year()-200, 175, 80, "sedentary", 500)
	_, _, _, ok = computeNutritionalTargets(ancientDOB)
	assert.False(t, ok)
}

// Mifflin-St Jeor with known inputs. Age is computed from DOB at runtime so
// tolerance is ±10 to account for off-by-one when the birthday falls after
// today in the test year.
//
// Inputs: male, born 1990-01-01, 175cm, 80kg, sedentary.
// Expected BMR: 10*80 + 6.25*175 - 5*36 + 5 = 1718.75
func TestComputeNutritionalTargets_MaleBMR(t *testing.T) {
	s := makeProfile("male", 1990, 175, 80, "sedentary", 500)
	bmr, _, _, ok := computeNutritionalTargets(s)
	require.True(t, ok)
	assert.InDelta(t, 1718.75, float64(bmr), 10)
}

// Same inputs with sex="female": -161 instead of +5, BMR ≈ 1552.75.
func TestComputeNutritionalTargets_FemaleBMR(t *testing.T) {
	s := makeProfile("female", 1990, 175, 80, "sedentary", 500)
	bmr, _, _, ok := computeNutritionalTargets(s)
	require.True(t, ok)
	assert.InDelta(t, 1552.75, float64(bmr), 10)
}

func TestComputeNutritionalTargets_WaterAndMacros(t *testing.T) {
	s := makeProfile("male", 1990, 175, 80, "moderate", 500)
	_, tdee, targets, ok := computeNutritionalTargets(s)
	require.True(t, ok)

	// 35 ml per kg of body weight.
	assert.Equal(t, 2800, targets.WaterML)
	// Calorie goal is TDEE minus the deficit.
	assert.InDelta(t, float64(tdee-500), float64(targets.Calories), 1)
	// Macro split: 30/40/30 of calories at 4/4/9 kcal per gram.
	cal := float64(targets.Calories)
	assert.InDelta(t, cal*0.30/4, float64(targets.ProteinG), 1)
	assert.InDelta(t, cal*0.40/4, float64(targets.CarbsG), 1)
	assert.InDelta(t, cal*0.30/9, float64(targets.FatG), 1)
}

func TestComputeNutritionalTargets_DeficitFlooredAtBMR(t *testing.T) {
	// A huge deficit must not drive the calorie goal below resting needs.
	s := makeProfile("female", 1990, 160, 55, "sedentary", 2000)
	bmr, _, targets, ok := computeNutritionalTargets(s)
	require.True(t, ok)
	assert.Equal(t, bmr, targets.Calories)
}

/* ─── Round trip ─────────────────────────────────────────────────────── */

// At the estimated target date, a user who lost weight at exactly the weekly
// rate reads 100% progress.
func TestEstimateAndProgress_RoundTrip(t *testing.T) {
	start, target, weekly := 82.0, 74.0, 1.0

	d, err := estimateTargetDate(start, target, weekly)
	require.NoError(t, err)
	weeksOut := daysBetween(d, time.Now()) / 7

	// Simulate perfect adherence to the weekly rate.
	simulated := start - float64(weeksOut)*weekly
	assert.Equal(t, 100, calculateWeightProgress(start, simulated, target))
}

/* ─── currentMonday ──────────────────────────────────────────────────── */

func TestCurrentMonday_ReturnsMonday(t *testing.T) {
	assert.Equal(t, time.Monday, currentMonday().Weekday())
}

func TestCurrentMonday_MidnightUTC(t *testing.T) {
	monday := currentMonday()
	assert.Zero(t, monday.Hour())
	assert.Zero(t, monday.Minute())
	assert.Zero(t, monday.Second())
	assert.Zero(t, monday.Nanosecond())
	assert.Equal(t, time.UTC, monday.Location())
}
