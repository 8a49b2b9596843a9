package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

/* ─── Request / Response types ───────────────────────────────────────── */

// analyzeRequest is the request body for POST /api/meal-log/analyze.
type analyzeRequest struct {
	Description string `json:"description"`
	Type        string `json:"type"`
}

// mealAnalysisResponse is the structured nutrition data returned by the AI.
// For exercise entries, only ItemName and Calories are populated.
// Confidence is 1-5 indicating how accurate the estimate is.
type mealAnalysisResponse struct {
	ItemName   string  `json:"item_name"`
	Qty        float64 `json:"qty"`
	Uom        string  `json:"uom"`
	Calories   int     `json:"calories"`
	ProteinG   float64 `json:"protein_g"`
	CarbsG     float64 `json:"carbs_g"`
	FatG       float64 `json:"fat_g"`
	Confidence int     `json:"confidence"`
}

/* ─── OpenAI prompt constants ────────────────────────────────────────── */

const foodSystemPrompt = `You are a nutrition assistant. Parse the meal description and return a JSON object with:
- "item_name" (string, cleaned up title case)
- "qty" (number)
- "uom" (one of: each, g, ml, minutes)
- "calories" (integer, total for the full quantity)
- "protein_g" (integer, total for the full quantity)
- "carbs_g" (integer, total for the full quantity)
- "fat_g" (integer, total for the full quantity)
- "confidence" (integer 1-5: 5=exact known nutritional data, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Always provide your best estimate, even for unfamiliar or vague items. Use your knowledge of similar foods to approximate. Only return {"error": "unrecognized"} if the input is not food at all (e.g. random characters, non-food objects).
Return only valid JSON, no explanation.`

// exerciseSystemPromptTemplate includes placeholders for the user's body stats
// so the AI can estimate calories burned more accurately.
const exerciseSystemPromptTemplate = `You are a fitness calorie-burn estimator. The user is:
- Sex: %s
- Age: %d years
- Weight: %.1f kg
- Height: %.0f cm

Parse the exercise description and estimate calories burned. Return a JSON object with:
- "item_name" (string, cleaned up title case)
- "qty" (number, duration or distance)
- "uom" (one of: each, g, ml, minutes)
- "calories" (integer, estimated calories burned)
- "protein_g" (always 0)
- "carbs_g" (always 0)
- "fat_g" (always 0)
- "confidence" (integer 1-5: 5=well-studied exercise with known MET values, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Always provide your best estimate, even for unusual activities. Only return {"error": "unrecognized"} if the input is not an exercise at all.
Return only valid JSON, no explanation.`

// exerciseSystemPromptFallback is used when the user has no body stats saved.
const exerciseSystemPromptFallback = `You are a fitness calorie-burn estimator. No body stats are available — use averages for an adult.

Parse the exercise description and estimate calories burned. Return a JSON object with:
- "item_name" (string, cleaned up title case)
- "qty" (number, duration or distance)
- "uom" (one of: each, g, ml, minutes)
- "calories" (integer, estimated calories burned)
- "protein_g" (always 0)
- "carbs_g" (always 0)
- "fat_g" (always 0)
- "confidence" (integer 1-5: 5=well-studied exercise with known MET values, 4=very close estimate, 3=reasonable estimate, 2=rough guess, 1=very uncertain)

Always provide your best estimate, even for unusual activities. Only return {"error": "unrecognized"} if the input is not an exercise at all.
Return only valid JSON, no explanation.`

// adviceSystemPrompt asks for coaching advice as a single JSON field so the
// response format stays machine-checkable.
const adviceSystemPrompt = `You are a supportive nutrition coach. Given a summary of the user's current weight trend, calorie targets, and plateau analysis, write 2-4 sentences of practical, encouraging advice. Do not repeat the numbers back verbatim. Return a JSON object with a single field "advice" (string). Return only valid JSON, no explanation.`

/* ─── OpenAI HTTP client ─────────────────────────────────────────────── */

// openAIMessage is a single message in the OpenAI chat completions request.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIRequest is the request body for the OpenAI chat completions API.
type openAIRequest struct {
	Model          string                 `json:"model"`
	Messages       []openAIMessage        `json:"messages"`
	Temperature    float64                `json:"temperature"`
	ResponseFormat map[string]interface{} `json:"response_format"`
}

// callOpenAI sends a chat completions request and returns the raw content string
// from the first choice. Uses raw net/http to avoid pulling in the OpenAI SDK.
func callOpenAI(ctx context.Context, messages []openAIMessage, baseURL string) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	reqBody := openAIRequest{
		Model:       "gpt-4o-mini",
		Messages:    messages,
		Temperature: 0,
		ResponseFormat: map[string]interface{}{
			"type": "json_object",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBytes))
	}

	// Parse the response to extract choices[0].message.content
	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}

/* ─── Handlers ───────────────────────────────────────────────────────── */

// analyzeMealDescription handles POST /api/meal-log/analyze.
// Accepts a meal or exercise description, calls OpenAI to parse it into
// structured nutrition data, and returns the estimate.
func (h *Handler) analyzeMealDescription(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		apiError(c, http.StatusBadRequest, "description is required")
		return
	}

	// Build the system prompt based on entry type
	var systemPrompt string
	if req.Type == "exercise" {
		systemPrompt = h.buildExercisePrompt(c)
	} else {
		systemPrompt = foodSystemPrompt
	}

	messages := []openAIMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: req.Description},
	}

	content, err := callOpenAI(c.Request.Context(), messages, h.openAIBaseURL)
	if err != nil {
		log.Printf("[analyze] OpenAI error: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	// Check if the AI returned an "unrecognized" error
	var errorResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(content), &errorResp); err != nil {
		log.Printf("[analyze] Failed to parse OpenAI response: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}
	if errorResp.Error == "unrecognized" {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}

	// Parse the estimate
	var analysis mealAnalysisResponse
	if err := json.Unmarshal([]byte(content), &analysis); err != nil {
		log.Printf("[analyze] Failed to parse analysis JSON: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	// Validate that we got a usable response (at minimum, item_name and calories)
	if analysis.ItemName == "" || analysis.Calories == 0 {
		c.JSON(http.StatusOK, gin.H{"error": "unrecognized"})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// buildExercisePrompt loads the user's body stats from the DB and builds
// the exercise system prompt. Falls back to a generic prompt if stats are missing.
func (h *Handler) buildExercisePrompt(c *gin.Context) string {
	if h.db == nil {
		return exerciseSystemPromptFallback
	}
	userID, _ := c.Get("user_id")
	settings, err := queryOne[userSettings](h.db, c,
		"SELECT * FROM user_settings WHERE user_id = @userID",
		pgx.NamedArgs{"userID": userID})
	if err != nil {
		return exerciseSystemPromptFallback
	}

	// Need sex, DOB, weight, and height for a personalized estimate
	if settings.Sex == nil || settings.DateOfBirth == nil || settings.CurrentWeightKG == nil || settings.HeightCM == nil {
		return exerciseSystemPromptFallback
	}

	age := time.Now().Year() - settings.DateOfBirth.Time.Year()
	return fmt.Sprintf(exerciseSystemPromptTemplate,
		*settings.Sex, age, *settings.CurrentWeightKG, *settings.HeightCM)
}

// getAdvice handles GET /api/advice. Runs the plateau detector, summarizes
// the result alongside the user's targets, and asks the model for a short
// piece of coaching advice. The deterministic analysis is returned with the
// advice so the frontend can render both.
func (h *Handler) getAdvice(c *gin.Context) {
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

	summary := fmt.Sprintf(
		"Calorie goal: %d kcal. Daily deficit: %d kcal. Plateaued: %t. Days since last weight change: %d. Weight variation over two weeks: %.1f kg. Logging adherence: %d%%. Suggested intervention: %s.",
		settings.CalorieGoal, settings.DailyDeficit, analysis.IsPlateaued,
		analysis.DaysSinceChange, analysis.WeightVariation, analysis.AdherenceScore,
		analysis.Suggestion)

	messages := []openAIMessage{
		{Role: "system", Content: adviceSystemPrompt},
		{Role: "user", Content: summary},
	}

	content, err := callOpenAI(c.Request.Context(), messages, h.openAIBaseURL)
	if err != nil {
		log.Printf("[advice] OpenAI error: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	var adviceResp struct {
		Advice string `json:"advice"`
	}
	if err := json.Unmarshal([]byte(content), &adviceResp); err != nil || adviceResp.Advice == "" {
		log.Printf("[advice] Failed to parse OpenAI response: %v", err)
		apiError(c, http.StatusInternalServerError, "openai request failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"advice": adviceResp.Advice, "analysis": analysis})
}
