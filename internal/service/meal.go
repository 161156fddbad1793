package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/internal/models"
)

// HistoryDays is the window shown on the history page, today included.
const HistoryDays = 7

// Totals sums a set of meals. Macros are rounded to two places.
type Totals struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Dashboard is today's view for a user, in their own timezone.
type Dashboard struct {
	Date       string             `json:"date"`
	Timezone   string             `json:"timezone"`
	Meals      []models.MealEntry `json:"meals"`
	Totals     Totals             `json:"totals"`
	ActiveGoal *models.Goal       `json:"active_goal"`
	HasAPIKey  bool               `json:"has_api_key"`
}

// DaySummary groups one local day of history.
type DaySummary struct {
	Date   string             `json:"date"`
	Totals Totals             `json:"totals"`
	Meals  []models.MealEntry `json:"meals"`
}

type MealService struct {
	db       *gorm.DB
	pipeline NutritionPipeline
	keys     KeyResolver
	goals    *GoalService
	logger   *zap.Logger
	now      func() time.Time
}

func NewMealService(db *gorm.DB, pipeline NutritionPipeline, keys KeyResolver, goals *GoalService, logger *zap.Logger) *MealService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealService{
		db:       db,
		pipeline: pipeline,
		keys:     keys,
		goals:    goals,
		logger:   logger,
		now:      time.Now,
	}
}

// LogMeal parses a free-text description and stores the resulting entry.
func (s *MealService) LogMeal(ctx context.Context, user *models.User, rawInput string) (*models.MealEntry, error) {
	apiKey, err := s.keys.APIKey(user)
	if err != nil {
		return nil, err
	}

	result, err := s.pipeline.ParseMeal(ctx, apiKey, rawInput)
	if err != nil {
		return nil, fmt.Errorf("parse meal: %w", err)
	}

	entry := models.MealEntry{
		UserID:   user.ID,
		LoggedAt: s.now().UTC(),
		RawInput: rawInput,
		MealName: result.MealName,
		Calories: result.Calories,
		Protein:  result.Protein,
		Carbs:    result.Carbs,
		Fat:      result.Fat,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, err
	}

	s.logger.Info("meal logged", zap.String("user_id", user.ID.String()), zap.String("meal_id", entry.ID.String()))
	return &entry, nil
}

// GetMeal loads a meal owned by userID.
func (s *MealService) GetMeal(ctx context.Context, userID, mealID uuid.UUID) (*models.MealEntry, error) {
	var entry models.MealEntry
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", mealID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, ErrForbidden
	}
	return &entry, nil
}

// DeleteMeal removes a meal and its cached insight.
func (s *MealService) DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error {
	entry, err := s.GetMeal(ctx, userID, mealID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meal_entry_id = ?", entry.ID).Delete(&models.MealInsight{}).Error; err != nil {
			return err
		}
		return tx.Delete(entry).Error
	})
}

// Dashboard returns today's meals and totals in the user's timezone.
func (s *MealService) Dashboard(ctx context.Context, user *models.User) (*Dashboard, error) {
	loc := user.Location()
	start := startOfDay(s.now(), loc)

	meals, err := s.mealsBetween(ctx, user.ID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	goal, err := s.goals.Active(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Date:       start.Format(time.DateOnly),
		Timezone:   loc.String(),
		Meals:      meals,
		Totals:     sumMeals(meals),
		ActiveGoal: goal,
		HasAPIKey:  user.HasAPIKey(),
	}, nil
}

// History returns the last HistoryDays local days, newest first. Days
// without meals are included with zero totals.
func (s *MealService) History(ctx context.Context, user *models.User) ([]DaySummary, error) {
	loc := user.Location()
	today := startOfDay(s.now(), loc)
	from := today.AddDate(0, 0, -(HistoryDays - 1))

	meals, err := s.mealsBetween(ctx, user.ID, from, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	byDate := make(map[string][]models.MealEntry, HistoryDays)
	for _, m := range meals {
		date := m.LoggedAt.In(loc).Format(time.DateOnly)
		byDate[date] = append(byDate[date], m)
	}

	days := make([]DaySummary, 0, HistoryDays)
	for i := 0; i < HistoryDays; i++ {
		date := today.AddDate(0, 0, -i).Format(time.DateOnly)
		dayMeals := byDate[date]
		if dayMeals == nil {
			dayMeals = []models.MealEntry{}
		}
		days = append(days, DaySummary{Date: date, Totals: sumMeals(dayMeals), Meals: dayMeals})
	}
	return days, nil
}

func (s *MealService) mealsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.MealEntry, error) {
	meals := []models.MealEntry{}
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND logged_at >= ? AND logged_at < ?", userID, from.UTC(), to.UTC()).
		Order("logged_at DESC").
		Find(&meals).Error
	if err != nil {
		return nil, err
	}
	return meals, nil
}

func sumMeals(meals []models.MealEntry) Totals {
	var calories int
	protein, carbs, fat := decimal.Zero, decimal.Zero, decimal.Zero
	for _, m := range meals {
		calories += m.Calories
		protein = protein.Add(decimal.NewFromFloat(m.Protein))
		carbs = carbs.Add(decimal.NewFromFloat(m.Carbs))
		fat = fat.Add(decimal.NewFromFloat(m.Fat))
	}
	return Totals{
		Calories: calories,
		Protein:  protein.Round(2).InexactFloat64(),
		Carbs:    carbs.Round(2).InexactFloat64(),
		Fat:      fat.Round(2).InexactFloat64(),
	}
}
