package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxFrequentMeals caps the saved meals per user.
const MaxFrequentMeals = 100

// MealEntry is one logged meal with the nutrition estimate it was parsed into.
type MealEntry struct {
	ID        uuid.UUID    `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:varchar(36);not null;index:idx_meal_entries_user_logged,priority:1" json:"user_id"`
	LoggedAt  time.Time    `gorm:"not null;index:idx_meal_entries_user_logged,priority:2" json:"logged_at"`
	RawInput  string       `gorm:"size:1000;not null" json:"raw_input"`
	MealName  string       `gorm:"size:255;not null" json:"meal_name"`
	Calories  int          `gorm:"not null" json:"calories"`
	Protein   float64      `gorm:"type:decimal(8,2);not null" json:"protein"`
	Carbs     float64      `gorm:"type:decimal(8,2);not null" json:"carbs"`
	Fat       float64      `gorm:"type:decimal(8,2);not null" json:"fat"`
	Insight   *MealInsight `gorm:"foreignKey:MealEntryID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (m *MealEntry) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MealInsight caches the generated feedback for a meal. One row per meal.
type MealInsight struct {
	ID          uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	MealEntryID uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex" json:"meal_entry_id"`
	Insight     string    `gorm:"type:text;not null" json:"insight"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (m *MealInsight) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// FrequentMeal is a saved meal that can be logged again without inference.
type FrequentMeal struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_frequent_meals_user_name,priority:1" json:"user_id"`
	MealName  string    `gorm:"size:255;not null;uniqueIndex:idx_frequent_meals_user_name,priority:2" json:"meal_name"`
	RawInput  string    `gorm:"size:1000;not null" json:"raw_input"`
	Calories  int       `gorm:"not null" json:"calories"`
	Protein   float64   `gorm:"type:decimal(8,2);not null" json:"protein"`
	Carbs     float64   `gorm:"type:decimal(8,2);not null" json:"carbs"`
	Fat       float64   `gorm:"type:decimal(8,2);not null" json:"fat"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (f *FrequentMeal) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
