package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/internal/database"
	"github.com/pageza/macrotrack/backend/internal/models"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
)

type InsightService struct {
	db       *gorm.DB
	meals    *MealService
	goals    *GoalService
	pipeline NutritionPipeline
	keys     KeyResolver
	logger   *zap.Logger
}

func NewInsightService(db *gorm.DB, meals *MealService, goals *GoalService, pipeline NutritionPipeline, keys KeyResolver, logger *zap.Logger) *InsightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightService{
		db:       db,
		meals:    meals,
		goals:    goals,
		pipeline: pipeline,
		keys:     keys,
		logger:   logger,
	}
}

// GetOrCreate returns the cached insight for a meal, generating it on first
// request. The bool reports whether the insight came from the cache.
func (s *InsightService) GetOrCreate(ctx context.Context, user *models.User, mealID uuid.UUID) (*models.MealInsight, bool, error) {
	meal, err := s.meals.GetMeal(ctx, user.ID, mealID)
	if err != nil {
		return nil, false, err
	}

	if cached, err := s.cached(ctx, meal.ID); err != nil || cached != nil {
		return cached, cached != nil, err
	}

	apiKey, err := s.keys.APIKey(user)
	if err != nil {
		return nil, false, err
	}
	goal, err := s.goals.Active(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}

	text, err := s.pipeline.GenerateInsight(ctx, apiKey, nutrition.MealSummary{
		Name:     meal.MealName,
		Calories: meal.Calories,
		Protein:  meal.Protein,
		Carbs:    meal.Carbs,
		Fat:      meal.Fat,
	}, Targets(goal))
	if err != nil {
		return nil, false, fmt.Errorf("generate insight: %w", err)
	}

	insight := models.MealInsight{MealEntryID: meal.ID, Insight: text}
	if err := s.db.WithContext(ctx).Create(&insight).Error; err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, false, err
		}
		// A concurrent request stored one first
		s.logger.Debug("insight already stored, re-reading", zap.String("meal_id", meal.ID.String()))
		existing, err := s.cached(ctx, meal.ID)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, ErrNotFound
		}
		return existing, true, nil
	}
	return &insight, false, nil
}

func (s *InsightService) cached(ctx context.Context, mealID uuid.UUID) (*models.MealInsight, error) {
	var insight models.MealInsight
	err := s.db.WithContext(ctx).Where("meal_entry_id = ?", mealID).First(&insight).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &insight, nil
}
