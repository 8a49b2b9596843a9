package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// validWeightSources is the set of allowed values for the weight_source enum.
// "manual" is a user weigh-in; "synced" comes from a wearable import.
var validWeightSources = map[string]bool{
	"manual": true,
	"synced": true,
}

// getWeightLog returns weight entries for the authenticated user within [start, end].
// GET /api/weight-log?start=YYYY-MM-DD&end=YYYY-MM-DD. Both params required.
// Returns an empty array (not null) if no entries exist in the range.
func (h *Handler) getWeightLog(c *gin.Context) {
	userID := c.GetInt("user_id")
	start := c.Query("start")
	end := c.Query("end")

	if start == "" || end == "" {
		apiError(c, http.StatusBadRequest, "start and end query params are required")
		return
	}
	if _, err := time.Parse("2006-01-02", start); err != nil {
		apiError(c, http.StatusBadRequest, "invalid start, expected YYYY-MM-DD")
		return
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		apiError(c, http.StatusBadRequest, "invalid end, expected YYYY-MM-DD")
		return
	}
	if start > end {
		apiError(c, http.StatusBadRequest, "start must not be after end")
		return
	}

	entries, err := queryMany[weightEntry](h.db, c,
		`SELECT * FROM weight_log
		 WHERE user_id = @userID AND date >= @start AND date <= @end
		 ORDER BY date ASC`,
		pgx.NamedArgs{"userID": userID, "start": start, "end": end})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch weight log")
		return
	}
	// Ensure empty array (not null) in JSON
	if entries == nil {
		entries = []weightEntry{}
	}

	c.JSON(http.StatusOK, entries)
}

// upsertWeightEntry creates or updates the weight entry for the given date.
// POST /api/weight-log. Body: { "date": "YYYY-MM-DD", "weight_kg": 84.3, "note"?, "source"? }.
// The UNIQUE(user_id, date) constraint means posting the same date updates in place.
// Also mirrors the weight into user_settings.current_weight_kg when the entry
// is for today, so target computations track the latest weigh-in.
func (h *Handler) upsertWeightEntry(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date     string  `json:"date"`
		WeightKG float64 `json:"weight_kg"`
		Note     *string `json:"note"`
		Source   *string `json:"source"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date == "" {
		apiError(c, http.StatusBadRequest, "date is required")
		return
	}
	if _, err := time.Parse("2006-01-02", body.Date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if body.WeightKG <= 0 || body.WeightKG > 999.9 {
		apiError(c, http.StatusBadRequest, "weight_kg must be between 0 and 999.9")
		return
	}
	source := "manual"
	if body.Source != nil {
		if !validWeightSources[*body.Source] {
			apiError(c, http.StatusBadRequest, "source must be one of: manual, synced")
			return
		}
		source = *body.Source
	}

	entry, err := queryOne[weightEntry](h.db, c,
		`INSERT INTO weight_log (user_id, date, weight_kg, note, source)
		 VALUES (@userID, @date, @weightKG, @note, @source)
		 ON CONFLICT (user_id, date) DO UPDATE
		   SET weight_kg = EXCLUDED.weight_kg,
		       note      = EXCLUDED.note,
		       source    = EXCLUDED.source
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "date": body.Date, "weightKG": body.WeightKG,
			"note": body.Note, "source": source})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to upsert weight entry")
		return
	}

	if body.Date == time.Now().Format("2006-01-02") {
		if _, err := h.db.Exec(c,
			"UPDATE user_settings SET current_weight_kg = @weightKG WHERE user_id = @userID",
			pgx.NamedArgs{"weightKG": body.WeightKG, "userID": userID}); err != nil {
			// Non-fatal: the entry itself was stored.
			apiError(c, http.StatusInternalServerError, "failed to sync current weight")
			return
		}
	}

	c.JSON(http.StatusCreated, entry)
}

// updateWeightEntry partially updates an existing weight entry.
// PUT /api/weight-log/:id. Body: { "date"?, "weight_kg"?, "note"? }.
// Uses COALESCE so omitted fields keep their current values (same pattern as updateMealLogItem).
func (h *Handler) updateWeightEntry(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	var body struct {
		Date     *string  `json:"date"`
		WeightKG *float64 `json:"weight_kg"`
		Note     *string  `json:"note"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Date != nil {
		if _, err := time.Parse("2006-01-02", *body.Date); err != nil {
			apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}
	if body.WeightKG != nil && (*body.WeightKG <= 0 || *body.WeightKG > 999.9) {
		apiError(c, http.StatusBadRequest, "weight_kg must be between 0 and 999.9")
		return
	}

	entry, err := queryOne[weightEntry](h.db, c,
		`UPDATE weight_log SET
			date      = COALESCE(@date, date),
			weight_kg = COALESCE(@weightKG, weight_kg),
			note      = COALESCE(@note, note)
		 WHERE id = @id AND user_id = @userID
		 RETURNING *`,
		pgx.NamedArgs{"id": id, "userID": userID, "date": body.Date,
			"weightKG": body.WeightKG, "note": body.Note})
	if err != nil {
		// Distinguish a missing row from a real DB failure so callers get an
		// actionable status code rather than a misleading 404.
		if errors.Is(err, pgx.ErrNoRows) {
			apiError(c, http.StatusNotFound, "weight entry not found")
		} else {
			apiError(c, http.StatusInternalServerError, "failed to update weight entry")
		}
		return
	}

	c.JSON(http.StatusOK, entry)
}

// deleteWeightEntry removes a weight log entry by ID.
// DELETE /api/weight-log/:id. Returns 204 on success, 404 if not found.
// Ownership is enforced by requiring both id and user_id to match.
func (h *Handler) deleteWeightEntry(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	result, err := h.db.Exec(c,
		"DELETE FROM weight_log WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete weight entry")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "weight entry not found")
		return
	}

	c.Status(http.StatusNoContent)
}

/* ─── Analysis endpoints ──────────────────────────────────────────────── */

// getPlateauAnalysis runs the plateau detector over the user's full weight
// history, with per-item meal calories from the trailing 14 days feeding the
// adherence score. Exercise entries are excluded — adherence measures intake.
// GET /api/weight-log/plateau.
func (h *Handler) getPlateauAnalysis(c *gin.Context) {
	userID := c.GetInt("user_id")

	settings, err := queryOne[userSettings](h.db, c,
		"SELECT * FROM user_settings WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch settings")
		return
	}

	history, err := queryMany[weightEntry](h.db, c,
		"SELECT * FROM weight_log WHERE user_id = @userID ORDER BY date ASC",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch weight log")
		return
	}

	since := time.Now().AddDate(0, 0, -plateauWindowDays).Format("2006-01-02")
	meals, err := queryMany[mealEnergyRecord](h.db, c,
		`SELECT date, calories FROM meal_log_items
		 WHERE user_id = @userID AND date >= @since AND type != 'exercise'`,
		pgx.NamedArgs{"userID": userID, "since": since})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch meal log")
		return
	}

	analysis := detectPlateau(history, settings.CalorieGoal, settings.DailyDeficit, settings.BodyFatPct, meals)
	c.JSON(http.StatusOK, analysis)
}

// getWeightProgress returns the start→target progress percentage, the
// estimated goal date, and the most recent weigh-ins.
// GET /api/weight-log/progress. Requires start and target weights in settings.
func (h *Handler) getWeightProgress(c *gin.Context) {
	userID := c.GetInt("user_id")

	settings, err := queryOne[userSettings](h.db, c,
		"SELECT * FROM user_settings WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch settings")
		return
	}
	if settings.StartWeightKG == nil || settings.TargetWeightKG == nil {
		apiError(c, http.StatusBadRequest, "start_weight_kg and target_weight_kg must be set")
		return
	}

	recent, err := queryMany[weightEntry](h.db, c,
		`SELECT * FROM weight_log WHERE user_id = @userID
		 ORDER BY date DESC LIMIT 30`,
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch weight log")
		return
	}
	if recent == nil {
		recent = []weightEntry{}
	}

	// Latest weigh-in wins; fall back to the profile's current weight, then
	// to the start weight for brand-new users with no data at all.
	current := *settings.StartWeightKG
	if settings.CurrentWeightKG != nil {
		current = *settings.CurrentWeightKG
	}
	if len(recent) > 0 {
		current = recent[0].WeightKG
	}

	resp := weightProgressResponse{
		StartWeightKG:   *settings.StartWeightKG,
		CurrentWeightKG: current,
		TargetWeightKG:  *settings.TargetWeightKG,
		ProgressPct:     calculateWeightProgress(*settings.StartWeightKG, current, *settings.TargetWeightKG),
		Recent:          recent,
	}
	if settings.WeeklyGoalKG != nil {
		if d, err := estimateTargetDate(current, *settings.TargetWeightKG, *settings.WeeklyGoalKG); err == nil {
			resp.EstimatedTargetDate = &DateOnly{d}
		}
	}

	c.JSON(http.StatusOK, resp)
}
