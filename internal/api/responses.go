package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/pageza/macrotrack/backend/internal/models"
	"github.com/pageza/macrotrack/backend/internal/service"
)

// UserResponse is the public view of a user. The API key and the photo's
// object key never leave the server.
type UserResponse struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	DateOfBirth         *string   `json:"date_of_birth"`
	Gender              *string   `json:"gender"`
	Height              *float64  `json:"height"`
	Timezone            string    `json:"timezone"`
	HasAPIKey           bool      `json:"has_api_key"`
	HasCompletedProfile bool      `json:"has_completed_profile"`
	PhotoURL            string    `json:"photo_url,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func newUserResponse(user *models.User, photoURL string) UserResponse {
	resp := UserResponse{
		ID:                  user.ID,
		Name:                user.Name,
		Email:               user.Email,
		Gender:              user.Gender,
		Height:              user.Height,
		Timezone:            user.Timezone,
		HasAPIKey:           user.HasAPIKey(),
		HasCompletedProfile: user.HasCompletedProfile(),
		PhotoURL:            photoURL,
		CreatedAt:           user.CreatedAt,
	}
	if user.DateOfBirth != nil {
		dob := user.DateOfBirth.Format(time.DateOnly)
		resp.DateOfBirth = &dob
	}
	return resp
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type InsightResponse struct {
	MealID    uuid.UUID `json:"meal_id"`
	Insight   string    `json:"insight"`
	Cached    bool      `json:"cached"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryResponse struct {
	Timezone string               `json:"timezone"`
	Days     []service.DaySummary `json:"days"`
}
