package main

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// ScanDate implements pgtype.DateScanner so pgx can scan PostgreSQL date
// columns (OID 1082) into DateOnly. NULL values zero the time and return nil
// so that *DateOnly pointer fields can be set to nil by pgx's NULL handling.
func (d *DateOnly) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		d.Time = time.Time{}
		return nil
	}
	d.Time = v.Time
	return nil
}

/* ─── Domain structs ─────────────────────────────────────────────────── */

// user maps to the users table. AuthToken and Password are hidden from JSON responses.
type user struct {
	ID        int        `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	Email     string     `json:"email" db:"email"`
	AuthToken string     `json:"-" db:"auth_token"`
	Password  string     `json:"-" db:"password"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// weightEntry maps to weight_log. Weights are always kilograms. Source is
// "manual" for user-entered weigh-ins and "synced" for wearable imports.
// Entries are append-only from the app's point of view; UNIQUE(user_id, date)
// keeps one weigh-in per calendar day.
type weightEntry struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	WeightKG  float64    `json:"weight_kg" db:"weight_kg"`
	Note      *string    `json:"note" db:"note"`
	Source    string     `json:"source" db:"source"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// mealLogItem maps to meal_log_items. Nullable numeric fields use pointers
// so pgx can scan NULLs and JSON omits them naturally. Exercise entries share
// the table; the type column determines whether calories add or subtract.
type mealLogItem struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	ItemName  string     `json:"item_name" db:"item_name"`
	Type      string     `json:"type" db:"type"`
	Qty       *float64   `json:"qty" db:"qty"`
	Uom       *string    `json:"uom" db:"uom"`
	Calories  int        `json:"calories" db:"calories"`
	ProteinG  *float64   `json:"protein_g" db:"protein_g"`
	CarbsG    *float64   `json:"carbs_g" db:"carbs_g"`
	FatG      *float64   `json:"fat_g" db:"fat_g"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// mealEnergyRecord is the slim day/calories shape the plateau analyzer
// consumes for adherence scoring. Multiple records per day are summed.
type mealEnergyRecord struct {
	Date     DateOnly `json:"date" db:"date"`
	Calories int      `json:"calories" db:"calories"`
}

// waterEvent maps to water_log. AmountML may be negative to undo an
// over-logged glass; daily totals never go below zero in responses.
type waterEvent struct {
	ID        int        `json:"id" db:"id"`
	UserID    int        `json:"user_id" db:"user_id"`
	Date      DateOnly   `json:"date" db:"date"`
	AmountML  int        `json:"amount_ml" db:"amount_ml"`
	CreatedAt *time.Time `json:"created_at" db:"created_at"`
}

// userSettings maps to user_settings. One row per user with the daily
// calorie/macro/water targets plus the body-profile and weight-goal fields
// used for auto target computation and plateau analysis.
type userSettings struct {
	UserID         int `json:"user_id"          db:"user_id"`
	CalorieGoal    int `json:"calorie_goal"     db:"calorie_goal"`
	ProteinTargetG int `json:"protein_target_g" db:"protein_target_g"`
	CarbsTargetG   int `json:"carbs_target_g"   db:"carbs_target_g"`
	FatTargetG     int `json:"fat_target_g"     db:"fat_target_g"`
	WaterTargetML  int `json:"water_target_ml"  db:"water_target_ml"`
	DailyDeficit   int `json:"daily_deficit"    db:"daily_deficit"`

	// Profile fields — all nullable; zero-knowledge rows still work.
	Sex             *string   `json:"sex"               db:"sex"`
	DateOfBirth     *DateOnly `json:"date_of_birth"     db:"date_of_birth"`
	HeightCM        *float64  `json:"height_cm"         db:"height_cm"`
	CurrentWeightKG *float64  `json:"current_weight_kg" db:"current_weight_kg"`
	BodyFatPct      *float64  `json:"body_fat_pct"      db:"body_fat_pct"`
	ActivityLevel   *string   `json:"activity_level"    db:"activity_level"`
	StartWeightKG   *float64  `json:"start_weight_kg"   db:"start_weight_kg"`
	TargetWeightKG  *float64  `json:"target_weight_kg"  db:"target_weight_kg"`
	WeeklyGoalKG    *float64  `json:"weekly_goal_kg"    db:"weekly_goal_kg"`
	Units           string    `json:"units"             db:"units"`
	TargetsAuto     bool      `json:"targets_auto"      db:"targets_auto"`
	SetupComplete   bool      `json:"setup_complete"    db:"setup_complete"`

	// Computed fields — populated server-side from the profile; not stored.
	// db:"-" tells RowToStructByName to skip these during scanning.
	ComputedBMR         *int      `json:"computed_bmr,omitempty"          db:"-"`
	ComputedTDEE        *int      `json:"computed_tdee,omitempty"         db:"-"`
	ComputedCalorieGoal *int      `json:"computed_calorie_goal,omitempty" db:"-"`
	ComputedWaterML     *int      `json:"computed_water_ml,omitempty"     db:"-"`
	EstimatedTargetDate *DateOnly `json:"estimated_target_date,omitempty" db:"-"`
}

// dayTotalsDBRow is the shape of each row returned by the per-day GROUP BY
// queries. Used only for scanning; responses use dayMealSummary.
type dayTotalsDBRow struct {
	Date             DateOnly `db:"date"`
	CaloriesFood     int      `db:"calories_food"`
	CaloriesExercise int      `db:"calories_exercise"`
	ProteinG         float64  `db:"protein_g"`
	CarbsG           float64  `db:"carbs_g"`
	FatG             float64  `db:"fat_g"`
}

// dayMealSummary is one day's entry in the week-summary and progress
// responses. Days with no logged items have HasData=false and zero totals.
type dayMealSummary struct {
	Date             DateOnly `json:"date"`
	CalorieGoal      int      `json:"calorie_goal"`
	CaloriesFood     int      `json:"calories_food"`
	CaloriesExercise int      `json:"calories_exercise"`
	NetCalories      int      `json:"net_calories"`
	CaloriesLeft     int      `json:"calories_left"`
	ProteinG         float64  `json:"protein_g"`
	CarbsG           float64  `json:"carbs_g"`
	FatG             float64  `json:"fat_g"`
	HasData          bool     `json:"has_data"`
}

// adherenceStats aggregates the per-day summaries in the meal progress response.
type adherenceStats struct {
	DaysTracked         int `json:"days_tracked"`
	DaysOnBudget        int `json:"days_on_budget"`
	AvgCaloriesFood     int `json:"avg_calories_food"`
	AvgCaloriesExercise int `json:"avg_calories_exercise"`
	AvgNetCalories      int `json:"avg_net_calories"`
	TotalCaloriesLeft   int `json:"total_calories_left"`
}

// mealProgressResponse is the response shape for GET /meal-log/progress.
type mealProgressResponse struct {
	Days  []dayMealSummary `json:"days"`
	Stats adherenceStats   `json:"stats"`
}

// dailyMealSummary is the response shape for GET /meal-log/daily.
type dailyMealSummary struct {
	Date             string        `json:"date"`
	CalorieGoal      int           `json:"calorie_goal"`
	CaloriesFood     int           `json:"calories_food"`
	CaloriesExercise int           `json:"calories_exercise"`
	NetCalories      int           `json:"net_calories"`
	CaloriesLeft     int           `json:"calories_left"`
	ProteinG         float64       `json:"protein_g"`
	CarbsG           float64       `json:"carbs_g"`
	FatG             float64       `json:"fat_g"`
	Items            []mealLogItem `json:"items"`
	Settings         userSettings  `json:"settings"`
}

// dailyWaterSummary is the response shape for GET /water-log/daily.
type dailyWaterSummary struct {
	Date          string       `json:"date"`
	TotalML       int          `json:"total_ml"`
	WaterTargetML int          `json:"water_target_ml"`
	TargetMet     bool         `json:"target_met"`
	Events        []waterEvent `json:"events"`
}

// weightProgressResponse is the response shape for GET /weight-log/progress.
// EstimatedTargetDate is omitted when the weekly goal is missing or zero.
type weightProgressResponse struct {
	StartWeightKG       float64       `json:"start_weight_kg"`
	CurrentWeightKG     float64       `json:"current_weight_kg"`
	TargetWeightKG      float64       `json:"target_weight_kg"`
	ProgressPct         int           `json:"progress_pct"`
	EstimatedTargetDate *DateOnly     `json:"estimated_target_date,omitempty"`
	Recent              []weightEntry `json:"recent"`
}

// createMealLogItemRequest is the request body for POST /api/meal-log/items.
type createMealLogItemRequest struct {
	Date     string   `json:"date"`
	ItemName string   `json:"item_name"`
	Type     string   `json:"type"`
	Qty      *float64 `json:"qty"`
	Uom      *string  `json:"uom"`
	Calories int      `json:"calories"`
	ProteinG *float64 `json:"protein_g"`
	CarbsG   *float64 `json:"carbs_g"`
	FatG     *float64 `json:"fat_g"`
}

// patchUserSettingsRequest is the request body for PATCH /api/user-settings.
// All fields are pointers — only non-nil fields get written to the database.
type patchUserSettingsRequest struct {
	CalorieGoal     *int     `json:"calorie_goal"`
	ProteinTargetG  *int     `json:"protein_target_g"`
	CarbsTargetG    *int     `json:"carbs_target_g"`
	FatTargetG      *int     `json:"fat_target_g"`
	WaterTargetML   *int     `json:"water_target_ml"`
	DailyDeficit    *int     `json:"daily_deficit"`
	Sex             *string  `json:"sex"`
	DateOfBirth     *string  `json:"date_of_birth"` // YYYY-MM-DD string, stored as date
	HeightCM        *float64 `json:"height_cm"`
	CurrentWeightKG *float64 `json:"current_weight_kg"`
	BodyFatPct      *float64 `json:"body_fat_pct"`
	ActivityLevel   *string  `json:"activity_level"`
	StartWeightKG   *float64 `json:"start_weight_kg"`
	TargetWeightKG  *float64 `json:"target_weight_kg"`
	WeeklyGoalKG    *float64 `json:"weekly_goal_kg"`
	Units           *string  `json:"units"`
	TargetsAuto     *bool    `json:"targets_auto"`
	SetupComplete   *bool    `json:"setup_complete"`
}
