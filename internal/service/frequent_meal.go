package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/internal/database"
	"github.com/pageza/macrotrack/backend/internal/models"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
)

const (
	MaxMealCalories   = nutrition.MaxCalories
	MaxMealMacroGrams = nutrition.MaxMacroGrams
)

// FrequentMealInput holds manually edited values.
type FrequentMealInput struct {
	MealName string
	Calories int
	Protein  float64
	Carbs    float64
	Fat      float64
}

func (in FrequentMealInput) validate() error {
	name := strings.TrimSpace(in.MealName)
	switch {
	case name == "":
		return invalid("meal_name", "is required")
	case utf8.RuneCountInString(name) > nutrition.MaxMealNameLength:
		return invalid("meal_name", fmt.Sprintf("must be at most %d characters", nutrition.MaxMealNameLength))
	case in.Calories < 0 || in.Calories > MaxMealCalories:
		return invalid("calories", fmt.Sprintf("must be between 0 and %d", MaxMealCalories))
	case in.Protein < 0 || in.Protein > MaxMealMacroGrams:
		return invalid("protein", fmt.Sprintf("must be between 0 and %d", MaxMealMacroGrams))
	case in.Carbs < 0 || in.Carbs > MaxMealMacroGrams:
		return invalid("carbs", fmt.Sprintf("must be between 0 and %d", MaxMealMacroGrams))
	case in.Fat < 0 || in.Fat > MaxMealMacroGrams:
		return invalid("fat", fmt.Sprintf("must be between 0 and %d", MaxMealMacroGrams))
	}
	return nil
}

type FrequentMealService struct {
	db       *gorm.DB
	pipeline NutritionPipeline
	keys     KeyResolver
	logger   *zap.Logger
	now      func() time.Time
}

func NewFrequentMealService(db *gorm.DB, pipeline NutritionPipeline, keys KeyResolver, logger *zap.Logger) *FrequentMealService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrequentMealService{
		db:       db,
		pipeline: pipeline,
		keys:     keys,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns the user's saved meals alphabetically.
func (s *FrequentMealService) List(ctx context.Context, userID uuid.UUID) ([]models.FrequentMeal, error) {
	meals := []models.FrequentMeal{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("meal_name ASC").Find(&meals).Error; err != nil {
		return nil, err
	}
	return meals, nil
}

// Create parses the description and saves it as a frequent meal.
func (s *FrequentMealService) Create(ctx context.Context, user *models.User, rawInput string) (*models.FrequentMeal, error) {
	count, err := s.count(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if count >= models.MaxFrequentMeals {
		return nil, ErrFrequentMealLimit
	}

	apiKey, err := s.keys.APIKey(user)
	if err != nil {
		return nil, err
	}
	result, err := s.pipeline.ParseMeal(ctx, apiKey, rawInput)
	if err != nil {
		return nil, fmt.Errorf("parse meal: %w", err)
	}

	if err := s.ensureUniqueName(ctx, user.ID, uuid.Nil, result.MealName); err != nil {
		return nil, err
	}

	meal := models.FrequentMeal{
		UserID:   user.ID,
		MealName: result.MealName,
		RawInput: rawInput,
		Calories: result.Calories,
		Protein:  result.Protein,
		Carbs:    result.Carbs,
		Fat:      result.Fat,
	}
	if err := s.db.WithContext(ctx).Create(&meal).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateMealName
		}
		return nil, err
	}
	return &meal, nil
}

// Update overwrites the stored values with manually edited ones.
func (s *FrequentMealService) Update(ctx context.Context, userID, id uuid.UUID, in FrequentMealInput) (*models.FrequentMeal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	meal, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.MealName)
	if err := s.ensureUniqueName(ctx, userID, meal.ID, name); err != nil {
		return nil, err
	}

	meal.MealName = name
	meal.Calories = in.Calories
	meal.Protein = round2(in.Protein)
	meal.Carbs = round2(in.Carbs)
	meal.Fat = round2(in.Fat)

	err = s.db.WithContext(ctx).Model(meal).
		Select("MealName", "Calories", "Protein", "Carbs", "Fat").
		Updates(meal).Error
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrDuplicateMealName
		}
		return nil, err
	}
	return meal, nil
}

func (s *FrequentMealService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	meal, err := s.find(ctx, userID, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(meal).Error
}

// Log records a meal entry from the saved values without calling the model.
func (s *FrequentMealService) Log(ctx context.Context, userID, id uuid.UUID) (*models.MealEntry, error) {
	meal, err := s.find(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	entry := models.MealEntry{
		UserID:   userID,
		LoggedAt: s.now().UTC(),
		RawInput: meal.RawInput,
		MealName: meal.MealName,
		Calories: meal.Calories,
		Protein:  meal.Protein,
		Carbs:    meal.Carbs,
		Fat:      meal.Fat,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *FrequentMealService) find(ctx context.Context, userID, id uuid.UUID) (*models.FrequentMeal, error) {
	var meal models.FrequentMeal
	if err := s.db.WithContext(ctx).First(&meal, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if meal.UserID != userID {
		return nil, ErrForbidden
	}
	return &meal, nil
}

func (s *FrequentMealService) count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FrequentMeal{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// The unique index is the final word; this check gives a clean error first.
func (s *FrequentMealService) ensureUniqueName(ctx context.Context, userID, exclude uuid.UUID, name string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FrequentMeal{}).
		Where("user_id = ? AND meal_name = ? AND id <> ?", userID, name, exclude).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateMealName
	}
	return nil
}
