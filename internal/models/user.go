package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Genders accepted at registration and on profile completion.
var Genders = []string{"male", "female", "other", "prefer_not_to_say"}

// DefaultTimezone is stored for users who never sent one.
const DefaultTimezone = "UTC"

type User struct {
	ID               uuid.UUID  `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	Email            string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash     string     `gorm:"not null" json:"-"`
	DateOfBirth      *time.Time `gorm:"type:date" json:"date_of_birth"`
	Gender           *string    `gorm:"size:20" json:"gender"`
	Height           *float64   `gorm:"type:decimal(5,2)" json:"height"`
	Timezone         string     `gorm:"size:64;not null;default:'UTC'" json:"timezone"`
	EncryptedAPIKey  string     `gorm:"column:openai_api_key;type:text" json:"-"`
	ProfilePhotoPath string     `gorm:"size:255" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// HasAPIKey reports whether an inference key is stored.
func (u *User) HasAPIKey() bool {
	return u.EncryptedAPIKey != ""
}

// HasCompletedProfile gates the meal, goal and frequent meal features.
func (u *User) HasCompletedProfile() bool {
	return u.DateOfBirth != nil && u.Gender != nil && *u.Gender != "" && u.Height != nil && u.HasAPIKey()
}

// Location resolves the stored timezone, falling back to UTC.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidGender reports whether g is one of Genders.
func ValidGender(g string) bool {
	for _, v := range Genders {
		if v == g {
			return true
		}
	}
	return false
}
