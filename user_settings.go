package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// getUserSettings returns the settings row for the authenticated user.
// Computed target fields (bmr, tdee, calorie goal, water, estimated target
// date) are populated when the relevant profile fields are present.
// GET /api/user-settings.
func (h *Handler) getUserSettings(c *gin.Context) {
	userID := c.GetInt("user_id")

	s, err := queryOne[userSettings](h.db, c,
		"SELECT * FROM user_settings WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusNotFound, "settings not found")
		return
	}

	populateComputedTargets(&s)

	c.JSON(http.StatusOK, s)
}

// patchUserSettings updates only the provided settings fields.
// PATCH /api/user-settings. Uses pointer fields in the request body to
// distinguish "not provided" from zero — only non-nil fields get updated.
// When targets_auto is true after the update, the stored calorie/macro/water
// targets are overwritten with the profile-derived values if the profile is
// complete enough to compute them.
func (h *Handler) patchUserSettings(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body patchUserSettingsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	// Validate activity_level before saving — an unknown level silently breaks
	// all future auto-target calculations with no visible error.
	if body.ActivityLevel != nil {
		if _, ok := activityMultipliers[*body.ActivityLevel]; !ok {
			apiError(c, http.StatusBadRequest, "activity_level must be one of: sedentary, light, moderate, active, very_active")
			return
		}
	}
	// A zero weekly rate would make the estimated target date undefined
	// (division by zero) — reject it at the boundary.
	if body.WeeklyGoalKG != nil && *body.WeeklyGoalKG == 0 {
		apiError(c, http.StatusBadRequest, "weekly_goal_kg must be non-zero")
		return
	}
	if body.DateOfBirth != nil {
		if _, err := time.Parse("2006-01-02", *body.DateOfBirth); err != nil {
			apiError(c, http.StatusBadRequest, "invalid date_of_birth, expected YYYY-MM-DD")
			return
		}
	}
	if body.BodyFatPct != nil && (*body.BodyFatPct < 0 || *body.BodyFatPct > 75) {
		apiError(c, http.StatusBadRequest, "body_fat_pct must be between 0 and 75")
		return
	}

	// Build SET clause dynamically — only update fields the client actually sent
	setClauses := []string{}
	args := pgx.NamedArgs{"userID": userID}

	if body.CalorieGoal != nil {
		setClauses = append(setClauses, "calorie_goal = @calorieGoal")
		args["calorieGoal"] = *body.CalorieGoal
	}
	if body.ProteinTargetG != nil {
		setClauses = append(setClauses, "protein_target_g = @proteinTargetG")
		args["proteinTargetG"] = *body.ProteinTargetG
	}
	if body.CarbsTargetG != nil {
		setClauses = append(setClauses, "carbs_target_g = @carbsTargetG")
		args["carbsTargetG"] = *body.CarbsTargetG
	}
	if body.FatTargetG != nil {
		setClauses = append(setClauses, "fat_target_g = @fatTargetG")
		args["fatTargetG"] = *body.FatTargetG
	}
	if body.WaterTargetML != nil {
		setClauses = append(setClauses, "water_target_ml = @waterTargetML")
		args["waterTargetML"] = *body.WaterTargetML
	}
	if body.DailyDeficit != nil {
		setClauses = append(setClauses, "daily_deficit = @dailyDeficit")
		args["dailyDeficit"] = *body.DailyDeficit
	}
	if body.Sex != nil {
		setClauses = append(setClauses, "sex = @sex")
		args["sex"] = *body.Sex
	}
	if body.DateOfBirth != nil {
		setClauses = append(setClauses, "date_of_birth = @dateOfBirth")
		args["dateOfBirth"] = *body.DateOfBirth
	}
	if body.HeightCM != nil {
		setClauses = append(setClauses, "height_cm = @heightCM")
		args["heightCM"] = *body.HeightCM
	}
	if body.CurrentWeightKG != nil {
		setClauses = append(setClauses, "current_weight_kg = @currentWeightKG")
		args["currentWeightKG"] = *body.CurrentWeightKG
	}
	if body.BodyFatPct != nil {
		setClauses = append(setClauses, "body_fat_pct = @bodyFatPct")
		args["bodyFatPct"] = *body.BodyFatPct
	}
	if body.ActivityLevel != nil {
		setClauses = append(setClauses, "activity_level = @activityLevel")
		args["activityLevel"] = *body.ActivityLevel
	}
	if body.StartWeightKG != nil {
		setClauses = append(setClauses, "start_weight_kg = @startWeightKG")
		args["startWeightKG"] = *body.StartWeightKG
	}
	if body.TargetWeightKG != nil {
		setClauses = append(setClauses, "target_weight_kg = @targetWeightKG")
		args["targetWeightKG"] = *body.TargetWeightKG
	}
	if body.WeeklyGoalKG != nil {
		setClauses = append(setClauses, "weekly_goal_kg = @weeklyGoalKG")
		args["weeklyGoalKG"] = *body.WeeklyGoalKG
	}
	if body.Units != nil {
		setClauses = append(setClauses, "units = @units")
		args["units"] = *body.Units
	}
	if body.TargetsAuto != nil {
		setClauses = append(setClauses, "targets_auto = @targetsAuto")
		args["targetsAuto"] = *body.TargetsAuto
	}
	if body.SetupComplete != nil {
		setClauses = append(setClauses, "setup_complete = @setupComplete")
		args["setupComplete"] = *body.SetupComplete
	}

	if len(setClauses) == 0 {
		apiError(c, http.StatusBadRequest, "no fields to update")
		return
	}

	query := "UPDATE user_settings SET " +
		strings.Join(setClauses, ", ") +
		" WHERE user_id = @userID RETURNING *"

	s, err := queryOne[userSettings](h.db, c, query, args)
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to update settings")
		return
	}

	// If targets_auto is on, compute targets and persist the derived values.
	if s.TargetsAuto {
		if _, _, t, ok := computeNutritionalTargets(&s); ok {
			updated, err := queryOne[userSettings](h.db, c,
				`UPDATE user_settings SET
					calorie_goal     = @calorieGoal,
					protein_target_g = @proteinTargetG,
					carbs_target_g   = @carbsTargetG,
					fat_target_g     = @fatTargetG,
					water_target_ml  = @waterTargetML
				 WHERE user_id = @userID RETURNING *`,
				pgx.NamedArgs{
					"calorieGoal": t.Calories, "proteinTargetG": t.ProteinG,
					"carbsTargetG": t.CarbsG, "fatTargetG": t.FatG,
					"waterTargetML": t.WaterML, "userID": userID,
				})
			if err != nil {
				log.Printf("[patchUserSettings] auto-target update failed for user %d: %v", userID, err)
			} else {
				s = updated
			}
		}
	}

	populateComputedTargets(&s)

	c.JSON(http.StatusOK, s)
}
