package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// AIHandler exposes the text-generation features.
type AIHandler struct {
	aiService services.AIServicer
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(aiService services.AIServicer) *AIHandler {
	return &AIHandler{aiService: aiService}
}

// CategorizeRequest represents a categorization request.
type CategorizeRequest struct {
	Description string                 `json:"description" binding:"required,max=500"`
	Amount      decimal.Decimal        `json:"amount" swaggertype:"string"`
	Type        models.TransactionType `json:"type" binding:"omitempty,transaction_type"`
}

// InsightsRequest selects the month to summarize.
type InsightsRequest struct {
	Month int `json:"month" binding:"required,min=1,max=12"`
	Year  int `json:"year" binding:"required,min=1"`
}

// Categorize handles category suggestion.
// @Summary     Suggest a category
// @Description Suggest a category for a transaction description
// @Tags        ai
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CategorizeRequest true "Description"
// @Success     200 {object} map[string]string "Suggested category"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Upstream error"
// @Failure     503 {object} ErrorResponse "AI not configured"
// @Router      /ai/categorize [post]
func (h *AIHandler) Categorize(c *gin.Context) {
	if _, err := getUserID(c); err != nil {
		respondWithError(c, err)
		return
	}

	var req CategorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	category, err := h.aiService.Categorize(c.Request.Context(), req.Description, req.Amount, req.Type)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// Insights handles monthly insight generation.
// @Summary     Generate insights
// @Description Summarize a month of transactions and generate spending observations
// @Tags        ai
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body InsightsRequest true "Period"
// @Success     200 {object} services.Insights "Insights"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     502 {object} ErrorResponse "Upstream error"
// @Failure     503 {object} ErrorResponse "AI not configured"
// @Router      /ai/insights [post]
func (h *AIHandler) Insights(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req InsightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	insights, err := h.aiService.GenerateInsights(c.Request.Context(), userID, models.Period{Month: req.Month, Year: req.Year})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"insights": insights})
}
