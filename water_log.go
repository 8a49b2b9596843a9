package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// getDailyWater returns the day's water events, the running total, and the
// user's water target (stored value, or the weight-derived computed one when
// targets_auto is on and the profile supports it).
// GET /api/water-log/daily?date=YYYY-MM-DD (defaults to today).
func (h *Handler) getDailyWater(c *gin.Context) {
	userID := c.GetInt("user_id")
	date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))

	if _, err := time.Parse("2006-01-02", date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	events, err := queryMany[waterEvent](h.db, c,
		`SELECT * FROM water_log
		 WHERE user_id = @userID AND date = @date
		 ORDER BY created_at`,
		pgx.NamedArgs{"userID": userID, "date": date})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch water log")
		return
	}
	if events == nil {
		events = []waterEvent{}
	}

	settings, err := queryOne[userSettings](h.db, c,
		"SELECT * FROM user_settings WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to fetch settings")
		return
	}
	populateComputedTargets(&settings)

	target := settings.WaterTargetML
	if settings.TargetsAuto && settings.ComputedWaterML != nil {
		target = *settings.ComputedWaterML
	}

	total := 0
	for _, e := range events {
		total += e.AmountML
	}
	// Negative events can drag the total below zero; clamp for display.
	if total < 0 {
		total = 0
	}

	c.JSON(http.StatusOK, dailyWaterSummary{
		Date:          date,
		TotalML:       total,
		WaterTargetML: target,
		TargetMet:     target > 0 && total >= target,
		Events:        events,
	})
}

// createWaterEvent records a water intake event. Negative amounts undo an
// over-logged glass, same semantics as a delta.
// POST /api/water-log. Body: { "date"?: "YYYY-MM-DD", "amount_ml": 250 }.
func (h *Handler) createWaterEvent(c *gin.Context) {
	userID := c.GetInt("user_id")

	var body struct {
		Date     string `json:"date"`
		AmountML int    `json:"amount_ml"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.AmountML == 0 || body.AmountML < -5000 || body.AmountML > 5000 {
		apiError(c, http.StatusBadRequest, "amount_ml must be non-zero and within [-5000, 5000]")
		return
	}
	if body.Date == "" {
		body.Date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", body.Date); err != nil {
		apiError(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	event, err := queryOne[waterEvent](h.db, c,
		`INSERT INTO water_log (user_id, date, amount_ml)
		 VALUES (@userID, @date, @amountML)
		 RETURNING *`,
		pgx.NamedArgs{"userID": userID, "date": body.Date, "amountML": body.AmountML})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to record water event")
		return
	}

	c.JSON(http.StatusCreated, event)
}

// deleteWaterEvent removes a water event by ID. Returns 204 on success.
// DELETE /api/water-log/:id.
func (h *Handler) deleteWaterEvent(c *gin.Context) {
	userID := c.GetInt("user_id")
	id := c.Param("id")

	result, err := h.db.Exec(c,
		"DELETE FROM water_log WHERE id = @id AND user_id = @userID",
		pgx.NamedArgs{"id": id, "userID": userID})
	if err != nil {
		apiError(c, http.StatusInternalServerError, "failed to delete water event")
		return
	}
	if result.RowsAffected() == 0 {
		apiError(c, http.StatusNotFound, "water event not found")
		return
	}

	c.Status(http.StatusNoContent)
}
