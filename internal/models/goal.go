package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Goal holds daily targets. Body weights are stored sealed; the plain values
// live in the transient fields and are filled by the goal service.
type Goal struct {
	ID                     uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID                 uuid.UUID `gorm:"type:varchar(36);not null;index" json:"user_id"`
	CurrentWeightEncrypted string    `gorm:"column:current_weight;type:text;not null" json:"-"`
	TargetWeightEncrypted  string    `gorm:"column:target_weight;type:text;not null" json:"-"`
	CurrentWeight          float64   `gorm:"-" json:"current_weight"`
	TargetWeight           float64   `gorm:"-" json:"target_weight"`
	DailyGoalCalories      int       `gorm:"not null" json:"daily_goal_calories"`
	DailyGoalProtein       float64   `gorm:"type:decimal(8,2);not null" json:"daily_goal_protein"`
	DailyGoalCarb          float64   `gorm:"type:decimal(8,2);not null" json:"daily_goal_carb"`
	DailyGoalFat           float64   `gorm:"type:decimal(8,2);not null" json:"daily_goal_fat"`
	IsActive               bool      `gorm:"not null" json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// All lists every model for auto-migration.
func All() []any {
	return []any{&User{}, &MealEntry{}, &MealInsight{}, &FrequentMeal{}, &Goal{}}
}
