package main

import (
	"errors"
	"math"
	"sort"
	"time"
)

// activityMultipliers maps activity level strings to their TDEE multiplier.
// This is the single source of truth for valid activity levels — also used for
// input validation in patchUserSettings.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// waterMLPerKG is the daily water target per kilogram of body weight.
const waterMLPerKG = 35

// Macro split of the daily calorie goal: 30% protein, 40% carbs, 30% fat,
// at 4/4/9 kcal per gram.
const (
	proteinCalorieShare = 0.30
	carbsCalorieShare   = 0.40
	fatCalorieShare     = 0.30
)

// errZeroWeeklyGoal is returned by estimateTargetDate when the weekly rate is
// zero. Propagating the raw division would produce Inf/NaN dates downstream.
var errZeroWeeklyGoal = errors.New("weekly goal must be non-zero")

// nutritionalTargets holds the daily targets derived from a user's profile.
type nutritionalTargets struct {
	Calories int
	ProteinG int
	CarbsG   int
	FatG     int
	WaterML  int
}

// computeNutritionalTargets computes BMR (Mifflin-St Jeor), TDEE, and the
// daily calorie/macro/water targets from user profile settings.
// Returns ok=false when any required profile field is nil or age is implausible.
func computeNutritionalTargets(s *userSettings) (bmr, tdee int, targets nutritionalTargets, ok bool) {
	if s.Sex == nil || s.DateOfBirth == nil || s.HeightCM == nil ||
		s.CurrentWeightKG == nil || s.ActivityLevel == nil {
		return 0, 0, nutritionalTargets{}, false
	}

	// Age derived from date of birth
	today := time.Now()
	age := today.Year() - s.DateOfBirth.Year()
	if today.Before(s.DateOfBirth.AddDate(age, 0, 0)) {
		age--
	}
	// Guard against implausible ages (e.g. DOB in the future, or over 130 years ago)
	if age < 0 || age > 130 {
		return 0, 0, nutritionalTargets{}, false
	}

	// BMR via Mifflin-St Jeor: different constant for male vs female
	weightKG := *s.CurrentWeightKG
	bmrF := 10*weightKG + 6.25**s.HeightCM - 5*float64(age)
	if *s.Sex == "male" {
		bmrF += 5
	} else {
		bmrF -= 161
	}

	// TDEE: multiply BMR by activity level multiplier
	mult, found := activityMultipliers[*s.ActivityLevel]
	if !found {
		return 0, 0, nutritionalTargets{}, false
	}
	tdeeF := bmrF * mult

	// Daily calorie goal = TDEE minus the configured deficit, floored at BMR
	// so the suggested intake never drops below resting needs.
	caloriesF := tdeeF - float64(s.DailyDeficit)
	if caloriesF < bmrF {
		caloriesF = bmrF
	}

	targets = nutritionalTargets{
		Calories: int(math.Round(caloriesF)),
		ProteinG: int(math.Round(caloriesF * proteinCalorieShare / 4)),
		CarbsG:   int(math.Round(caloriesF * carbsCalorieShare / 4)),
		FatG:     int(math.Round(caloriesF * fatCalorieShare / 9)),
		WaterML:  int(math.Round(weightKG * waterMLPerKG)),
	}
	return int(math.Round(bmrF)), int(math.Round(tdeeF)), targets, true
}

// populateComputedTargets fills the computed-only fields on s from the user's
// profile. No-ops for targets if any required profile field is missing; the
// estimated target date is filled independently when the goal trio is present.
func populateComputedTargets(s *userSettings) {
	if bmr, tdee, t, ok := computeNutritionalTargets(s); ok {
		s.ComputedBMR = &bmr
		s.ComputedTDEE = &tdee
		s.ComputedCalorieGoal = &t.Calories
		s.ComputedWaterML = &t.WaterML
	}
	if s.CurrentWeightKG != nil && s.TargetWeightKG != nil && s.WeeklyGoalKG != nil {
		if d, err := estimateTargetDate(*s.CurrentWeightKG, *s.TargetWeightKG, *s.WeeklyGoalKG); err == nil {
			s.EstimatedTargetDate = &DateOnly{d}
		}
	}
}

/* ─── Weight goal arithmetic ─────────────────────────────────────────── */

// estimateTargetDate projects the date the user reaches targetWeight from
// currentWeight at weeklyGoal kg/week. The rate is sign-agnostic; partial
// weeks round up. A zero rate returns errZeroWeeklyGoal.
func estimateTargetDate(currentWeight, targetWeight, weeklyGoal float64) (time.Time, error) {
	if weeklyGoal == 0 {
		return time.Time{}, errZeroWeeklyGoal
	}
	weeksNeeded := math.Ceil(math.Abs(currentWeight-targetWeight) / math.Abs(weeklyGoal))
	return time.Now().AddDate(0, 0, int(weeksNeeded)*7), nil
}

// calculateWeightProgress returns the percentage of the start→target journey
// already covered, as an integer clamped to [0, 100]. Overshooting the goal
// still reports 100 — a deliberate saturation policy. A start weight already
// at the target reports 100.
func calculateWeightProgress(startWeight, currentWeight, targetWeight float64) int {
	totalChange := startWeight - targetWeight
	if totalChange == 0 {
		return 100
	}
	progress := int(math.Round((startWeight - currentWeight) / totalChange * 100))
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}

// weightMilestone is an intermediate weight target carrying an XP reward,
// consumed by the gamification layer.
type weightMilestone struct {
	TargetWeightKG float64 `json:"target_weight_kg"`
	Title          string  `json:"title"`
	XPReward       int     `json:"xp_reward"`
}

// generateMilestones builds the milestone ladder for a start→target weight
// goal. The first-kilogram, halfway, and goal milestones always exist; the
// 5 kg and 10 kg marks are added only when the total change is large enough.
// The final list is sorted purely by weight value in the direction of travel
// (descending when losing, ascending when gaining), so the halfway point
// interleaves with the fixed anchors wherever its weight falls.
func generateMilestones(startWeight, targetWeight float64) []weightMilestone {
	totalChange := math.Abs(startWeight - targetWeight)
	// direction: -1 when losing weight, +1 when gaining
	dir := 1.0
	if startWeight > targetWeight {
		dir = -1.0
	}

	milestones := []weightMilestone{
		{TargetWeightKG: startWeight + dir*1, Title: "First kilogram", XPReward: 50},
		{TargetWeightKG: (startWeight + targetWeight) / 2, Title: "Halfway there", XPReward: 200},
		{TargetWeightKG: targetWeight, Title: "Goal reached", XPReward: 500},
	}
	if totalChange >= 5 {
		milestones = append(milestones, weightMilestone{TargetWeightKG: startWeight + dir*5, Title: "5 kg milestone", XPReward: 150})
	}
	if totalChange >= 10 {
		milestones = append(milestones, weightMilestone{TargetWeightKG: startWeight + dir*10, Title: "10 kg milestone", XPReward: 300})
	}

	// Sort by weight only, walking toward the goal.
	sort.Slice(milestones, func(i, j int) bool {
		if dir < 0 {
			return milestones[i].TargetWeightKG > milestones[j].TargetWeightKG
		}
		return milestones[i].TargetWeightKG < milestones[j].TargetWeightKG
	})
	return milestones
}

// currentMonday returns the Monday of the current week at midnight UTC.
// Uses AddDate to safely handle month/year boundaries — direct day subtraction
// can produce day=0 or negative, which time.Date normalizes but is confusing.
func currentMonday() time.Time {
	now := time.Now().UTC()
	weekday := int(now.Weekday()) // 0=Sun
	if weekday == 0 {
		weekday = 7 // treat Sunday as day 7 so Mon=1..Sun=7
	}
	daysBack := weekday - 1
	return now.AddDate(0, 0, -daysBack).Truncate(24 * time.Hour)
}
