package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/macrotrack/backend/internal/service"
	"github.com/pageza/macrotrack/backend/internal/types"
)

type MealHandler struct {
	mealService    *service.MealService
	insightService *service.InsightService
	logger         *zap.Logger
}

func NewMealHandler(mealService *service.MealService, insightService *service.InsightService, logger *zap.Logger) *MealHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealHandler{
		mealService:    mealService,
		insightService: insightService,
		logger:         logger,
	}
}

// LogMeal parses a free-text description and stores it as a meal entry.
func (h *MealHandler) LogMeal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.LogMealRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.mealService.LogMeal(c.Request.Context(), user, req.RawInput)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *MealHandler) DeleteMeal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.mealService.DeleteMeal(c.Request.Context(), user.ID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MealHandler) GetInsight(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	insight, cached, err := h.insightService.GetOrCreate(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, InsightResponse{
		MealID:    insight.MealEntryID,
		Insight:   insight.Insight,
		Cached:    cached,
		CreatedAt: insight.CreatedAt,
	})
}

func (h *MealHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	dashboard, err := h.mealService.Dashboard(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *MealHandler) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	days, err := h.mealService.History(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, HistoryResponse{Timezone: user.Location().String(), Days: days})
}
