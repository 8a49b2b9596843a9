package main

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Intervention suggestions a plateau analysis can carry. reduce_cardio is a
// valid value with message templates but no automatic trigger; it is reserved
// for manually-issued advice.
type plateauSuggestion string

const (
	suggestionRefeed          plateauSuggestion = "refeed"
	suggestionMaintenanceWeek plateauSuggestion = "maintenance_week"
	suggestionAdjustMacros    plateauSuggestion = "adjust_macros"
	suggestionReduceCardio    plateauSuggestion = "reduce_cardio"
	suggestionCheckLogs       plateauSuggestion = "check_logs"
	suggestionKeepGoing       plateauSuggestion = "keep_going"
	suggestionCelebrate       plateauSuggestion = "celebrate"
)

// Plateau classification thresholds. A plateau is a ≥14-day stretch where the
// total weight swing stays within 0.5 kg; a net loss beyond 0.5 kg over the
// window always counts as active progress.
const (
	plateauWindowDays       = 14
	plateauMinEntries       = 3
	stableWeightToleranceKG = 0.5
	leanBodyFatPct          = 20.0
	aggressiveDeficitKcal   = 750
	adherenceThreshold      = 80
	adherenceNeutralScore   = 80
	onTrackTolerance        = 0.10
)

// plateauAnalysis is the value object returned by detectPlateau. Constructed
// fresh on every call; never cached.
type plateauAnalysis struct {
	IsPlateaued     bool              `json:"is_plateaued"`
	DaysSinceChange int               `json:"days_since_change"`
	WeightVariation float64           `json:"weight_variation_kg"`
	AdherenceScore  int               `json:"adherence_score"`
	Suggestion      plateauSuggestion `json:"suggestion"`
	Message         string            `json:"message"`
	Details         string            `json:"details"`
}

// suggestionMessages is the user-facing headline for each suggestion.
// One template per suggestion; these strings are part of the API contract.
var suggestionMessages = map[plateauSuggestion]string{
	suggestionKeepGoing:       "No plateau detected — keep going.",
	suggestionCelebrate:       "Great work, the scale is moving!",
	suggestionCheckLogs:       "Double-check your food logging.",
	suggestionRefeed:          "Try a refeed day.",
	suggestionMaintenanceWeek: "Take a maintenance week.",
	suggestionAdjustMacros:    "Adjust your macros.",
	suggestionReduceCardio:    "Reduce your cardio volume.",
}

// suggestionDetails renders the explanatory text for a suggestion. Details may
// interpolate the deficit and adherence score where relevant.
func suggestionDetails(s plateauSuggestion, currentDeficit, adherenceScore int) string {
	switch s {
	case suggestionKeepGoing:
		return "Keep weighing in regularly and logging your meals so your trend stays visible. Consistency beats perfection."
	case suggestionCelebrate:
		return "Your weight dropped more than half a kilogram over the last two weeks. Whatever you are doing is working — stay on plan."
	case suggestionCheckLogs:
		return fmt.Sprintf("Only %d%% of your logged days landed within 10%% of your calorie goal. Tighten up portion estimates and log everything for a week before changing your plan.", adherenceScore)
	case suggestionRefeed:
		return "With body fat under 20%, a single day eating at maintenance calories can reset hunger hormones and break the stall. Return to your deficit the next day."
	case suggestionMaintenanceWeek:
		return fmt.Sprintf("A %d kcal daily deficit is aggressive to hold for long. Eat at maintenance for 5-7 days to recover, then resume the deficit.", currentDeficit)
	case suggestionAdjustMacros:
		return "Hold calories steady but raise protein and trim carbs slightly. Higher protein preserves muscle and increases satiety through a stall."
	case suggestionReduceCardio:
		return "Excess cardio can drive compensatory hunger and fatigue. Swap a session or two for rest or light walking."
	default:
		return ""
	}
}

// detectPlateau classifies a weight-history series as plateaued or not and
// picks an intervention. Pure and side-effect free: the caller supplies the
// full recorded history (day-granular, kg), the active calorie goal and
// deficit, an optional body-fat percentage, and meal logs for adherence
// scoring. Safe to call concurrently.
func detectPlateau(history []weightEntry, calorieGoal, currentDeficit int, bodyFatPct *float64, meals []mealEnergyRecord) plateauAnalysis {
	today := time.Now()

	// Trailing 14-day window, ordered chronologically.
	window := make([]weightEntry, 0, len(history))
	for _, e := range history {
		if daysBetween(today, e.Date.Time) <= plateauWindowDays {
			window = append(window, e)
		}
	}
	sort.Slice(window, func(i, j int) bool {
		return window[i].Date.Time.Before(window[j].Date.Time)
	})

	if len(window) < plateauMinEntries {
		// Not enough recent weigh-ins to say anything. Designed terminal
		// state, not an error.
		return plateauAnalysis{
			IsPlateaued:    false,
			AdherenceScore: 100,
			Suggestion:     suggestionKeepGoing,
			Message:        suggestionMessages[suggestionKeepGoing],
			Details:        "We need at least 3 weigh-ins in the last 14 days to analyze your trend. Keep stepping on the scale.",
		}
	}

	minW, maxW := window[0].WeightKG, window[0].WeightKG
	for _, e := range window[1:] {
		if e.WeightKG < minW {
			minW = e.WeightKG
		}
		if e.WeightKG > maxW {
			maxW = e.WeightKG
		}
	}
	weightVariation := maxW - minW
	weightChange := window[len(window)-1].WeightKG - window[0].WeightKG
	days := daysSinceChange(history)
	score := adherenceScore(meals, calorieGoal)

	// Active progress always overrides plateau classification, regardless of
	// how noisy the window was.
	if weightChange < -stableWeightToleranceKG {
		return plateauAnalysis{
			IsPlateaued:     false,
			DaysSinceChange: days,
			WeightVariation: weightVariation,
			AdherenceScore:  score,
			Suggestion:      suggestionCelebrate,
			Message:         suggestionMessages[suggestionCelebrate],
			Details:         suggestionDetails(suggestionCelebrate, currentDeficit, score),
		}
	}

	plateaued := weightVariation <= stableWeightToleranceKG && days >= plateauWindowDays
	if !plateaued {
		return plateauAnalysis{
			IsPlateaued:     false,
			DaysSinceChange: days,
			WeightVariation: weightVariation,
			AdherenceScore:  score,
			Suggestion:      suggestionKeepGoing,
			Message:         suggestionMessages[suggestionKeepGoing],
			Details:         suggestionDetails(suggestionKeepGoing, currentDeficit, score),
		}
	}

	// Plateaued: pick the intervention. Adherence issues are ruled out before
	// any metabolic intervention is suggested.
	var suggestion plateauSuggestion
	switch {
	case score < adherenceThreshold:
		suggestion = suggestionCheckLogs
	case bodyFatPct != nil && *bodyFatPct < leanBodyFatPct:
		suggestion = suggestionRefeed
	case currentDeficit >= aggressiveDeficitKcal:
		suggestion = suggestionMaintenanceWeek
	default:
		suggestion = suggestionAdjustMacros
	}

	return plateauAnalysis{
		IsPlateaued:     true,
		DaysSinceChange: days,
		WeightVariation: weightVariation,
		AdherenceScore:  score,
		Suggestion:      suggestion,
		Message:         suggestionMessages[suggestion],
		Details:         suggestionDetails(suggestion, currentDeficit, score),
	}
}

// daysSinceChange walks the full history from the most recent entry backward
// and returns the day-gap to the first earlier entry whose weight differs from
// the latest by more than 0.5 kg. If every recorded weight is within
// tolerance, it returns the span of the whole history ("stable for the entire
// recorded period").
func daysSinceChange(history []weightEntry) int {
	if len(history) < 2 {
		return 0
	}
	sorted := make([]weightEntry, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Time.After(sorted[j].Date.Time)
	})

	latest := sorted[0]
	for _, e := range sorted[1:] {
		if math.Abs(e.WeightKG-latest.WeightKG) > stableWeightToleranceKG {
			return daysBetween(latest.Date.Time, e.Date.Time)
		}
	}
	oldest := sorted[len(sorted)-1]
	return daysBetween(latest.Date.Time, oldest.Date.Time)
}

// adherenceScore returns the percentage of logged days whose calorie total
// falls within ±10% of the goal. With no logs at all it returns a neutral 80
// rather than penalizing absence of data.
func adherenceScore(meals []mealEnergyRecord, calorieGoal int) int {
	if len(meals) == 0 {
		return adherenceNeutralScore
	}

	perDay := make(map[string]int)
	for _, m := range meals {
		perDay[m.Date.Time.Format("2006-01-02")] += m.Calories
	}

	tolerance := onTrackTolerance * float64(calorieGoal)
	onTrack := 0
	for _, total := range perDay {
		if math.Abs(float64(total-calorieGoal)) <= tolerance {
			onTrack++
		}
	}
	return int(math.Round(float64(onTrack) / float64(len(perDay)) * 100))
}

// daysBetween returns the calendar-day gap a−b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(au.Sub(bu).Hours() / 24)
}
