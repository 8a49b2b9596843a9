package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// getMilestones returns the milestone ladder for the user's current weight
// goal, ordered from soonest-reached to goal. Consumed by the gamification
// layer to award XP as each target weight is crossed.
// GET /api/goals/milestones.
func (h *Handler) getMilestones(c *gin.Context) {
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

	c.JSON(http.StatusOK, gin.H{
		"milestones": generateMilestones(*settings.StartWeightKG, *settings.TargetWeightKG),
	})
}
