package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/config"
	"github.com/pageza/macrotrack/backend/internal/crypto"
	"github.com/pageza/macrotrack/backend/internal/database"
	"github.com/pageza/macrotrack/backend/internal/logging"
	"github.com/pageza/macrotrack/backend/internal/models"
)

const (
	demoEmail    = "demo@macrotrack.dev"
	demoPassword = "demo-password"
	seedDays     = 7
)

type mealTemplate struct {
	name     string
	raw      string
	calories int
	protein  float64
	carbs    float64
	fat      float64
}

var breakfasts = []mealTemplate{
	{"Oatmeal with Berries", "a bowl of oatmeal with blueberries", 320, 12, 58, 6},
	{"Masala Omelette", "two egg masala omelette with toast", 380, 22, 24, 20},
	{"Greek Yogurt Parfait", "greek yogurt with granola and honey", 290, 18, 40, 7},
}

var lunches = []mealTemplate{
	{"Grilled Chicken Salad", "grilled chicken salad with vinaigrette", 420, 38, 28, 16},
	{"Rajma Chawal", "a plate of rajma with rice", 510, 17, 86, 9},
	{"Turkey Sandwich", "turkey and cheese sandwich on whole wheat", 450, 30, 42, 17},
}

var dinners = []mealTemplate{
	{"Salmon with Quinoa", "baked salmon with quinoa and broccoli", 560, 40, 45, 22},
	{"Paneer Tikka with Roti", "paneer tikka and two rotis", 610, 28, 52, 31},
	{"Vegetable Stir Fry", "tofu vegetable stir fry with rice", 470, 20, 68, 13},
}

var snacks = []mealTemplate{
	{"Banana", "one banana", 105, 1.3, 27, 0.4},
	{"Almonds", "a handful of almonds", 164, 6, 6.1, 14.2},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(string(cfg.Environment), cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := seed(context.Background(), cfg, logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func seed(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.Open(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(ctx, db, logger); err != nil {
		return err
	}

	key, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return err
	}
	encryptor, err := crypto.NewEncryptor(key)
	if err != nil {
		return err
	}

	var existing models.User
	err = db.WithContext(ctx).Where("email = ?", demoEmail).First(&existing).Error
	if err == nil {
		logger.Info("demo user already exists, skipping", zap.String("email", demoEmail))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	dob := time.Date(1994, 6, 15, 0, 0, 0, 0, time.UTC)
	gender := "prefer_not_to_say"
	height := 170.0
	user := models.User{
		Name:         "Demo User",
		Email:        demoEmail,
		PasswordHash: string(hashedPassword),
		DateOfBirth:  &dob,
		Gender:       &gender,
		Height:       &height,
		Timezone:     models.DefaultTimezone,
	}

	// The demo account only gets inference features when a key is supplied
	if apiKey := os.Getenv("SEED_OPENAI_API_KEY"); apiKey != "" {
		sealed, err := encryptor.Encrypt(apiKey)
		if err != nil {
			return err
		}
		user.EncryptedAPIKey = sealed
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		current, err := encryptor.EncryptFloat(72.5)
		if err != nil {
			return err
		}
		target, err := encryptor.EncryptFloat(68)
		if err != nil {
			return err
		}
		goal := models.Goal{
			UserID:                 user.ID,
			CurrentWeightEncrypted: current,
			TargetWeightEncrypted:  target,
			DailyGoalCalories:      1900,
			DailyGoalProtein:       120,
			DailyGoalCarb:          200,
			DailyGoalFat:           60,
			IsActive:               true,
		}
		if err := tx.Create(&goal).Error; err != nil {
			return err
		}

		entries := sampleMeals(user.ID, time.Now().UTC())
		if err := tx.CreateInBatches(entries, 50).Error; err != nil {
			return err
		}

		logger.Info("seeded demo user",
			zap.String("email", demoEmail),
			zap.String("password", demoPassword),
			zap.Int("meals", len(entries)),
			zap.Bool("has_api_key", user.HasAPIKey()),
		)
		return nil
	})
}

// sampleMeals rotates through the templates so each day differs. Today only
// gets the meals whose time has already passed.
func sampleMeals(userID uuid.UUID, now time.Time) []models.MealEntry {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var entries []models.MealEntry
	for day := 0; day < seedDays; day++ {
		date := today.AddDate(0, 0, -day)
		plan := []struct {
			at   time.Duration
			meal mealTemplate
		}{
			{8 * time.Hour, breakfasts[day%len(breakfasts)]},
			{13 * time.Hour, lunches[(day+1)%len(lunches)]},
			{16*time.Hour + 30*time.Minute, snacks[day%len(snacks)]},
			{20 * time.Hour, dinners[(day+2)%len(dinners)]},
		}
		for _, p := range plan {
			loggedAt := date.Add(p.at)
			if loggedAt.After(now) {
				continue
			}
			entries = append(entries, models.MealEntry{
				UserID:   userID,
				LoggedAt: loggedAt,
				RawInput: p.meal.raw,
				MealName: p.meal.name,
				Calories: p.meal.calories,
				Protein:  p.meal.protein,
				Carbs:    p.meal.carbs,
				Fat:      p.meal.fat,
			})
		}
	}
	return entries
}
