package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
)

// CategoryHandler serves the fixed category vocabulary.
type CategoryHandler struct{}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

// GetCategories lists the categories transactions can use.
// @Summary     List categories
// @Description List the category vocabulary, optionally for one transaction type
// @Tags        categories
// @Produce     json
// @Param       type query string false "Transaction type (income, expense)"
// @Success     200 {object} map[string][]models.Category "Categories"
// @Failure     400 {object} ErrorResponse "Invalid type"
// @Router      /categories [get]
func (h *CategoryHandler) GetCategories(c *gin.Context) {
	v := c.Query("type")
	if v == "" {
		c.JSON(http.StatusOK, gin.H{
			"expense": models.ExpenseCategories,
			"income":  models.IncomeCategories,
		})
		return
	}

	txType := models.TransactionType(v)
	if !txType.IsValid() {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid type, must be income or expense"))
		return
	}

	c.JSON(http.StatusOK, gin.H{v: models.CategoriesFor(txType)})
}
