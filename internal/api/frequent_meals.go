package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/internal/service"
	"github.com/pageza/macrotrack/backend/internal/types"
)

type FrequentMealHandler struct {
	frequentMealService *service.FrequentMealService
	logger              *zap.Logger
}

func NewFrequentMealHandler(frequentMealService *service.FrequentMealService, logger *zap.Logger) *FrequentMealHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrequentMealHandler{
		frequentMealService: frequentMealService,
		logger:              logger,
	}
}

func (h *FrequentMealHandler) ListFrequentMeals(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	meals, err := h.frequentMealService.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frequent_meals": meals})
}

// CreateFrequentMeal parses the description once and saves the result.
func (h *FrequentMealHandler) CreateFrequentMeal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.CreateFrequentMealRequest
	if !bindJSON(c, &req) {
		return
	}

	meal, err := h.frequentMealService.Create(c.Request.Context(), user, req.RawInput)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

func (h *FrequentMealHandler) UpdateFrequentMeal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req types.UpdateFrequentMealRequest
	if !bindJSON(c, &req) {
		return
	}

	meal, err := h.frequentMealService.Update(c.Request.Context(), user.ID, id, service.FrequentMealInput{
		MealName: req.MealName,
		Calories: req.Calories,
		Protein:  req.Protein,
		Carbs:    req.Carbs,
		Fat:      req.Fat,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

func (h *FrequentMealHandler) DeleteFrequentMeal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.frequentMealService.Delete(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LogFrequentMeal records a meal entry from the saved values without an inference call.
func (h *FrequentMealHandler) LogFrequentMeal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	entry, err := h.frequentMealService.Log(c.Request.Context(), user.ID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}
