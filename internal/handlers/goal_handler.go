package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "fintrack/internal/errors"
	"fintrack/internal/models"
	"fintrack/internal/services"
)

// GoalHandler handles savings goal requests.
type GoalHandler struct {
	goalService  services.GoalServicer
	auditService services.AuditServicer
	now          func() time.Time
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goalService services.GoalServicer, auditService services.AuditServicer) *GoalHandler {
	return &GoalHandler{goalService: goalService, auditService: auditService, now: time.Now}
}

// CreateGoalRequest represents the request payload for creating a goal.
type CreateGoalRequest struct {
	Name          string              `json:"name" binding:"required,min=1,max=100"`
	TargetAmount  decimal.Decimal     `json:"target_amount" swaggertype:"string" example:"10000.00"`
	CurrentAmount decimal.Decimal     `json:"current_amount" swaggertype:"string" example:"0"`
	Deadline      string              `json:"deadline" binding:"required"`
	Category      models.GoalCategory `json:"category" binding:"omitempty,goal_category"`
	Icon          string              `json:"icon" binding:"max=50"`
}

// UpdateGoalRequest represents the request payload for updating a goal.
type UpdateGoalRequest struct {
	Name         *string              `json:"name" binding:"omitempty,min=1,max=100"`
	TargetAmount *decimal.Decimal     `json:"target_amount" swaggertype:"string"`
	Deadline     *string              `json:"deadline"`
	Category     *models.GoalCategory `json:"category" binding:"omitempty,goal_category"`
	Icon         *string              `json:"icon" binding:"omitempty,max=50"`
	Status       *models.GoalStatus   `json:"status" binding:"omitempty,goal_status"`
}

// AddAmountRequest represents a contribution to a goal.
type AddAmountRequest struct {
	Amount decimal.Decimal `json:"amount" swaggertype:"string" example:"250.00"`
}

// CreateGoal handles the creation of a savings goal.
// @Summary     Create a goal
// @Description Create a savings goal. A goal created at or above its target is completed immediately.
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateGoalRequest true "Goal details"
// @Success     201 {object} models.GoalView "Goal created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [post]
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	deadline, err := parseFlexibleTime(req.Deadline)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.CreateGoal(c.Request.Context(), userID, services.CreateGoalInput{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      deadline,
		Category:      req.Category,
		Icon:          req.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, services.AuditEntry{
		UserID:       userID,
		Action:       "CREATE_GOAL",
		ResourceType: "goal",
		ResourceID:   goal.ID,
		Changes:      map[string]interface{}{"name": goal.Name, "target_amount": goal.TargetAmount.String()},
	})

	c.JSON(http.StatusCreated, gin.H{"goal": models.NewGoalView(*goal, h.now())})
}

// GetGoals handles listing goals.
// @Summary     Get goals
// @Description List the user's savings goals, nearest deadline first
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       status query string false "Filter by status (active, completed, cancelled)"
// @Success     200 {array}  models.GoalView "Goals"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals [get]
func (h *GoalHandler) GetGoals(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var status *models.GoalStatus
	if v := c.Query("status"); v != "" {
		s := models.GoalStatus(v)
		status = &s
	}

	goals, err := h.goalService.GetUserGoals(c.Request.Context(), userID, status)
	if err != nil {
		respondWithError(c, err)
		return
	}

	now := h.now()
	views := make([]models.GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, models.NewGoalView(g, now))
	}

	c.JSON(http.StatusOK, gin.H{"goals": views})
}

// GetGoal handles retrieving a specific goal.
// @Summary     Get goal by ID
// @Description Get a savings goal with its progress figures
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} models.GoalView "Goal details"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [get]
func (h *GoalHandler) GetGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	goal, err := h.goalService.GetGoalByID(c.Request.Context(), userID, goalID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"goal": models.NewGoalView(*goal, h.now())})
}

// UpdateGoal handles updating a goal.
// @Summary     Update goal
// @Description Edit a goal. Setting status to cancelled is the only accepted status change, and only for active goals.
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Goal ID"
// @Param       request body UpdateGoalRequest true "Fields to update"
// @Success     200 {object} models.GoalView "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     409 {object} ErrorResponse "Goal is not active"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [put]
func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	input := services.UpdateGoalInput{
		Name:         req.Name,
		TargetAmount: req.TargetAmount,
		Category:     req.Category,
		Icon:         req.Icon,
		Status:       req.Status,
	}
	if req.Deadline != nil {
		deadline, parseErr := parseFlexibleTime(*req.Deadline)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, parseErr.Error()))
			return
		}
		input.Deadline = &deadline
	}

	goal, err := h.goalService.UpdateGoal(c.Request.Context(), userID, goalID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, services.AuditEntry{
		UserID:       userID,
		Action:       "UPDATE_GOAL",
		ResourceType: "goal",
		ResourceID:   goalID,
		Changes:      map[string]interface{}{"status": goal.Status},
	})

	c.JSON(http.StatusOK, gin.H{"goal": models.NewGoalView(*goal, h.now())})
}

// DeleteGoal handles deleting a goal.
// @Summary     Delete goal
// @Description Delete a savings goal
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Goal ID"
// @Success     200 {object} MessageResponse "Goal deleted"
// @Failure     400 {object} ErrorResponse "Invalid goal ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id} [delete]
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.goalService.DeleteGoal(c.Request.Context(), userID, goalID); err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, services.AuditEntry{
		UserID:       userID,
		Action:       "DELETE_GOAL",
		ResourceType: "goal",
		ResourceID:   goalID,
	})

	c.JSON(http.StatusOK, gin.H{"message": "Goal deleted successfully"})
}

// AddAmount handles a contribution to a goal.
// @Summary     Add to goal
// @Description Add a positive amount to a goal. An active goal that reaches its target is completed.
// @Tags        goals
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string           true "Goal ID"
// @Param       request body AddAmountRequest true "Contribution"
// @Success     200 {object} models.GoalView "Updated goal"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Goal not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /goals/{id}/add [post]
func (h *GoalHandler) AddAmount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	goalID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	goal, err := h.goalService.AddAmount(c.Request.Context(), userID, goalID, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordAudit(c, h.auditService, services.AuditEntry{
		UserID:       userID,
		Action:       "ADD_GOAL_AMOUNT",
		ResourceType: "goal",
		ResourceID:   goalID,
		Changes:      map[string]interface{}{"amount": req.Amount.String()},
	})

	c.JSON(http.StatusOK, gin.H{"goal": models.NewGoalView(*goal, h.now())})
}
