package service

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pageza/macrotrack/backend/internal/crypto"
	"github.com/pageza/macrotrack/backend/internal/mocks"
	"github.com/pageza/macrotrack/backend/internal/models"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
	"github.com/pageza/macrotrack/backend/internal/testhelpers"
)

// 15:00 in Asia/Kolkata
var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

type fixture struct {
	db        *gorm.DB
	inferrer  *mocks.MockInferrer
	photos    *mocks.MockPhotoStore
	encryptor *crypto.Encryptor
	profiles  *ProfileService
	goals     *GoalService
	meals     *MealService
	insights  *InsightService
	frequent  *FrequentMealService
	user      *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testhelpers.SetupTestDB(t)
	enc, err := crypto.NewEncryptor(bytes.Repeat([]byte{7}, crypto.KeySize))
	require.NoError(t, err)

	clock := func() time.Time { return fixedNow }
	inferrer := new(mocks.MockInferrer)
	photos := new(mocks.MockPhotoStore)
	pipeline := nutrition.NewPipeline(inferrer, nil, nutrition.WithClock(clock))

	profiles := NewProfileService(db, enc, photos, nil)
	profiles.now = clock
	goals := NewGoalService(db, pipeline, profiles, enc, nil)
	meals := NewMealService(db, pipeline, profiles, goals, nil)
	meals.now = clock
	frequent := NewFrequentMealService(db, pipeline, profiles, nil)
	frequent.now = clock

	f := &fixture{
		db:        db,
		inferrer:  inferrer,
		photos:    photos,
		encryptor: enc,
		profiles:  profiles,
		goals:     goals,
		meals:     meals,
		insights:  NewInsightService(db, meals, goals, pipeline, profiles, nil),
		frequent:  frequent,
	}
	f.user = f.createUser(t, "asha@example.com", "Asia/Kolkata")
	return f
}

// createUser stores a user with a complete profile and the key "sk-asha".
func (f *fixture) createUser(t *testing.T, email, tz string) *models.User {
	t.Helper()

	sealed, err := f.encryptor.Encrypt("sk-asha")
	require.NoError(t, err)

	dob := time.Date(1992, 4, 12, 0, 0, 0, 0, time.UTC)
	gender := "female"
	height := 162.5
	user := &models.User{
		Name:            "Asha",
		Email:           email,
		PasswordHash:    "unused",
		DateOfBirth:     &dob,
		Gender:          &gender,
		Height:          &height,
		Timezone:        tz,
		EncryptedAPIKey: sealed,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) addMeal(t *testing.T, user *models.User, name string, at time.Time, calories int, protein, carbs, fat float64) *models.MealEntry {
	t.Helper()
	entry := &models.MealEntry{
		UserID:   user.ID,
		LoggedAt: at.UTC(),
		RawInput: name,
		MealName: name,
		Calories: calories,
		Protein:  protein,
		Carbs:    carbs,
		Fat:      fat,
	}
	require.NoError(t, f.db.Create(entry).Error)
	return entry
}

func mealJSON(name string, calories int, protein, carbs, fat float64) string {
	return fmt.Sprintf(`{"meal_name":%q,"calories":%d,"protein":%g,"carbs":%g,"fat":%g}`, name, calories, protein, carbs, fat)
}
