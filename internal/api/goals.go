package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/internal/nutrition"
	"github.com/pageza/macrotrack/backend/internal/service"
	"github.com/pageza/macrotrack/backend/internal/types"
)

type GoalHandler struct {
	goalService *service.GoalService
	logger      *zap.Logger
}

func NewGoalHandler(goalService *service.GoalService, logger *zap.Logger) *GoalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalHandler{
		goalService: goalService,
		logger:      logger,
	}
}

func (h *GoalHandler) ListGoals(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	goals, err := h.goalService.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

func (h *GoalHandler) GetGoal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	goal, err := h.goalService.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.GoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.goalService.Create(c.Request.Context(), user.ID, goalInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, goal)
}

func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req types.GoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.goalService.Update(c.Request.Context(), user.ID, id, goalInput(req))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.goalService.Delete(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleGoal flips is_active. Activating a goal deactivates the others.
func (h *GoalHandler) ToggleGoal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	goal, err := h.goalService.Toggle(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, goal)
}

// CalculateGoal asks the model for daily targets. Nothing is stored.
func (h *GoalHandler) CalculateGoal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.CalculateGoalRequest
	if !bindJSON(c, &req) {
		return
	}
	targetDate, err := parseDate("target_date", req.TargetDate)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	targets, err := h.goalService.Calculate(c.Request.Context(), user, nutrition.GoalRequest{
		HeightCm:        req.Height,
		CurrentWeightKg: req.CurrentWeight,
		TargetWeightKg:  req.TargetWeight,
		TargetDate:      targetDate,
		DailyActivity:   req.DailyActivity,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, targets)
}

func goalInput(req types.GoalRequest) service.GoalInput {
	return service.GoalInput{
		CurrentWeight:     req.CurrentWeight,
		TargetWeight:      req.TargetWeight,
		DailyGoalCalories: req.DailyGoalCalories,
		DailyGoalProtein:  req.DailyGoalProtein,
		DailyGoalCarb:     req.DailyGoalCarb,
		DailyGoalFat:      req.DailyGoalFat,
		IsActive:          req.IsActive,
	}
}
