package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/internal/crypto"
	"github.com/pageza/macrotrack/backend/internal/models"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
)

const (
	MinGoalWeightKg   = 20
	MaxGoalWeightKg   = 500
	MaxGoalCalories   = nutrition.MaxCalories
	MaxGoalMacroGrams = nutrition.MaxMacroGrams
)

// GoalInput is a create or update request. A nil IsActive means active on
// create and unchanged on update.
type GoalInput struct {
	CurrentWeight     float64
	TargetWeight      float64
	DailyGoalCalories int
	DailyGoalProtein  float64
	DailyGoalCarb     float64
	DailyGoalFat      float64
	IsActive          *bool
}

func (in GoalInput) validate() error {
	switch {
	case in.CurrentWeight < MinGoalWeightKg || in.CurrentWeight > MaxGoalWeightKg:
		return invalid("current_weight", fmt.Sprintf("must be between %d and %d", MinGoalWeightKg, MaxGoalWeightKg))
	case in.TargetWeight < MinGoalWeightKg || in.TargetWeight > MaxGoalWeightKg:
		return invalid("target_weight", fmt.Sprintf("must be between %d and %d", MinGoalWeightKg, MaxGoalWeightKg))
	case in.DailyGoalCalories < 0 || in.DailyGoalCalories > MaxGoalCalories:
		return invalid("daily_goal_calories", fmt.Sprintf("must be between 0 and %d", MaxGoalCalories))
	case in.DailyGoalProtein < 0 || in.DailyGoalProtein > MaxGoalMacroGrams:
		return invalid("daily_goal_protein", fmt.Sprintf("must be between 0 and %d", MaxGoalMacroGrams))
	case in.DailyGoalCarb < 0 || in.DailyGoalCarb > MaxGoalMacroGrams:
		return invalid("daily_goal_carb", fmt.Sprintf("must be between 0 and %d", MaxGoalMacroGrams))
	case in.DailyGoalFat < 0 || in.DailyGoalFat > MaxGoalMacroGrams:
		return invalid("daily_goal_fat", fmt.Sprintf("must be between 0 and %d", MaxGoalMacroGrams))
	}
	return nil
}

type GoalService struct {
	db        *gorm.DB
	pipeline  NutritionPipeline
	keys      KeyResolver
	encryptor *crypto.Encryptor
	logger    *zap.Logger
}

func NewGoalService(db *gorm.DB, pipeline NutritionPipeline, keys KeyResolver, encryptor *crypto.Encryptor, logger *zap.Logger) *GoalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalService{
		db:        db,
		pipeline:  pipeline,
		keys:      keys,
		encryptor: encryptor,
		logger:    logger,
	}
}

// List returns the user's goals, newest first.
func (s *GoalService) List(ctx context.Context, userID uuid.UUID) ([]models.Goal, error) {
	goals := []models.Goal{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&goals).Error; err != nil {
		return nil, err
	}
	for i := range goals {
		if err := s.open(&goals[i]); err != nil {
			return nil, err
		}
	}
	return goals, nil
}

// Get loads a goal owned by userID.
func (s *GoalService) Get(ctx context.Context, userID, goalID uuid.UUID) (*models.Goal, error) {
	goal, err := s.find(s.db.WithContext(ctx), userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := s.open(goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// Active returns the user's active goal, or nil when there is none.
func (s *GoalService) Active(ctx context.Context, userID uuid.UUID) (*models.Goal, error) {
	var goals []models.Goal
	if err := s.db.WithContext(ctx).Where("user_id = ? AND is_active = ?", userID, true).Order("updated_at DESC").Limit(1).Find(&goals).Error; err != nil {
		return nil, err
	}
	if len(goals) == 0 {
		return nil, nil
	}
	if err := s.open(&goals[0]); err != nil {
		return nil, err
	}
	return &goals[0], nil
}

func (s *GoalService) Create(ctx context.Context, userID uuid.UUID, in GoalInput) (*models.Goal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	goal := &models.Goal{UserID: userID, IsActive: in.IsActive == nil || *in.IsActive}
	if err := s.apply(goal, in); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if goal.IsActive {
			if err := deactivateGoals(tx, userID, uuid.Nil); err != nil {
				return err
			}
		}
		return tx.Create(goal).Error
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *GoalService) Update(ctx context.Context, userID, goalID uuid.UUID, in GoalInput) (*models.Goal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	var goal *models.Goal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if goal, err = s.find(tx, userID, goalID); err != nil {
			return err
		}
		if in.IsActive != nil {
			goal.IsActive = *in.IsActive
		}
		if err := s.apply(goal, in); err != nil {
			return err
		}
		return s.save(tx, goal)
	})
	if err != nil {
		return nil, err
	}
	return goal, nil
}

// Toggle flips is_active. Activating a goal deactivates the others.
func (s *GoalService) Toggle(ctx context.Context, userID, goalID uuid.UUID) (*models.Goal, error) {
	var goal *models.Goal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if goal, err = s.find(tx, userID, goalID); err != nil {
			return err
		}
		goal.IsActive = !goal.IsActive
		return s.save(tx, goal)
	})
	if err != nil {
		return nil, err
	}
	if err := s.open(goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID uuid.UUID) error {
	goal, err := s.find(s.db.WithContext(ctx), userID, goalID)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(goal).Error
}

// Calculate asks the model for daily targets. The result is not stored.
func (s *GoalService) Calculate(ctx context.Context, user *models.User, req nutrition.GoalRequest) (nutrition.GoalTargets, error) {
	apiKey, err := s.keys.APIKey(user)
	if err != nil {
		return nutrition.GoalTargets{}, err
	}
	targets, err := s.pipeline.CalculateGoal(ctx, apiKey, req)
	if err != nil {
		return nutrition.GoalTargets{}, fmt.Errorf("calculate goal: %w", err)
	}
	return targets, nil
}

func (s *GoalService) save(tx *gorm.DB, goal *models.Goal) error {
	if goal.IsActive {
		if err := deactivateGoals(tx, goal.UserID, goal.ID); err != nil {
			return err
		}
	}
	return tx.Select("*").Omit("created_at").Updates(goal).Error
}

func (s *GoalService) find(db *gorm.DB, userID, goalID uuid.UUID) (*models.Goal, error) {
	var goal models.Goal
	if err := db.First(&goal, "id = ?", goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if goal.UserID != userID {
		return nil, ErrForbidden
	}
	return &goal, nil
}

// apply copies the input onto goal and seals the weights.
func (s *GoalService) apply(goal *models.Goal, in GoalInput) error {
	goal.CurrentWeight = round2(in.CurrentWeight)
	goal.TargetWeight = round2(in.TargetWeight)
	goal.DailyGoalCalories = in.DailyGoalCalories
	goal.DailyGoalProtein = round2(in.DailyGoalProtein)
	goal.DailyGoalCarb = round2(in.DailyGoalCarb)
	goal.DailyGoalFat = round2(in.DailyGoalFat)

	var err error
	if goal.CurrentWeightEncrypted, err = s.encryptor.EncryptFloat(goal.CurrentWeight); err != nil {
		return fmt.Errorf("failed to encrypt weight: %w", err)
	}
	if goal.TargetWeightEncrypted, err = s.encryptor.EncryptFloat(goal.TargetWeight); err != nil {
		return fmt.Errorf("failed to encrypt weight: %w", err)
	}
	return nil
}

// open fills the transient plain weights.
func (s *GoalService) open(goal *models.Goal) error {
	var err error
	if goal.CurrentWeight, err = s.encryptor.DecryptFloat(goal.CurrentWeightEncrypted); err != nil {
		return fmt.Errorf("failed to decrypt weight: %w", err)
	}
	if goal.TargetWeight, err = s.encryptor.DecryptFloat(goal.TargetWeightEncrypted); err != nil {
		return fmt.Errorf("failed to decrypt weight: %w", err)
	}
	return nil
}

// deactivateGoals clears is_active on every goal of the user except keep.
func deactivateGoals(tx *gorm.DB, userID, keep uuid.UUID) error {
	return tx.Model(&models.Goal{}).
		Where("user_id = ? AND id <> ? AND is_active = ?", userID, keep, true).
		Update("is_active", false).Error
}

// Targets converts a goal into the figures the insight prompt uses.
func Targets(goal *models.Goal) *nutrition.GoalTargets {
	if goal == nil {
		return nil
	}
	return &nutrition.GoalTargets{
		DailyGoalCalories: goal.DailyGoalCalories,
		DailyGoalProtein:  goal.DailyGoalProtein,
		DailyGoalCarb:     goal.DailyGoalCarb,
		DailyGoalFat:      goal.DailyGoalFat,
	}
}
