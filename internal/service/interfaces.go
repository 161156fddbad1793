package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/pageza/macrotrack/backend/internal/models"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
	"github.com/pageza/macrotrack/backend/internal/types"
)

// NutritionPipeline is the inference surface the services depend on.
type NutritionPipeline interface {
	ParseMeal(ctx context.Context, apiKey, rawInput string) (nutrition.NutritionResult, error)
	CalculateGoal(ctx context.Context, apiKey string, req nutrition.GoalRequest) (nutrition.GoalTargets, error)
	GenerateInsight(ctx context.Context, apiKey string, meal nutrition.MealSummary, goal *nutrition.GoalTargets) (string, error)
}

var _ NutritionPipeline = (*nutrition.Pipeline)(nil)

// KeyResolver hands out a user's decrypted inference key.
type KeyResolver interface {
	APIKey(user *models.User) (string, error)
}

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
	GenerateToken(userID uuid.UUID) (string, error)
}
