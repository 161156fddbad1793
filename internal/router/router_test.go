package router_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/macrotrack/backend/internal/api"
	"github.com/pageza/macrotrack/backend/internal/crypto"
	"github.com/pageza/macrotrack/backend/internal/middleware"
	"github.com/pageza/macrotrack/backend/internal/mocks"
	"github.com/pageza/macrotrack/backend/internal/nutrition"
	"github.com/pageza/macrotrack/backend/internal/router"
	"github.com/pageza/macrotrack/backend/internal/service"
	"github.com/pageza/macrotrack/backend/internal/storage"
	"github.com/pageza/macrotrack/backend/internal/testhelpers"
)

type testApp struct {
	router   *gin.Engine
	inferrer *mocks.MockInferrer
	photos   *mocks.MockPhotoStore
}

func newTestApp(t *testing.T, withPhotos bool) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDB(t)
	enc, err := crypto.NewEncryptor(bytes.Repeat([]byte{3}, crypto.KeySize))
	require.NoError(t, err)

	inferrer := new(mocks.MockInferrer)
	photos := new(mocks.MockPhotoStore)
	pipeline := nutrition.NewPipeline(inferrer, nil)

	var store storage.PhotoStore
	if withPhotos {
		store = photos
	}

	auth := service.NewAuthService(db, "test-secret", time.Hour)
	profiles := service.NewProfileService(db, enc, store, nil)
	goals := service.NewGoalService(db, pipeline, profiles, enc, nil)
	meals := service.NewMealService(db, pipeline, profiles, goals, nil)
	insights := service.NewInsightService(db, meals, goals, pipeline, profiles, nil)
	frequent := service.NewFrequentMealService(db, pipeline, profiles, nil)

	r := router.SetupRouter(router.Handlers{
		Auth:          api.NewAuthHandler(auth, nil),
		Profile:       api.NewProfileHandler(profiles, nil),
		Meals:         api.NewMealHandler(meals, insights, nil),
		Goals:         api.NewGoalHandler(goals, nil),
		FrequentMeals: api.NewFrequentMealHandler(frequent, nil),
		Health:        api.NewHealthHandler(db, nil),
	}, router.Options{
		Tokens:  auth,
		Users:   profiles,
		Limiter: middleware.NewMemoryRateLimiter(middleware.RateLimitConfig{Window: time.Minute, Limit: 3, KeyPrefix: "test"}),
	})

	return &testApp{router: r, inferrer: inferrer, photos: photos}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// register creates an account and returns its token.
func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name":          "Ravi",
		"email":         email,
		"password":      "correct-horse",
		"date_of_birth": "1990-05-01",
		"gender":        "male",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[api.AuthResponse](t, w).Token
}

// onboard registers and completes the profile.
func (a *testApp) onboard(t *testing.T, email string) string {
	t.Helper()
	token := a.register(t, email)
	w := a.do(t, http.MethodPut, "/api/v1/profile", token, gin.H{
		"date_of_birth":  "1990-05-01",
		"gender":         "male",
		"height":         178,
		"openai_api_key": "sk-ravi",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return token
}

func (a *testApp) expectInfer(output string, err error) *mock.Call {
	return a.inferrer.On("Infer", mock.Anything, "sk-ravi", mock.Anything, mock.Anything).Return(output, err).Once()
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"up"}`, w.Body.String())
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, false)
	app.register(t, "ravi@example.com")

	t.Run("duplicate email", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"name": "Ravi", "email": "RAVI@example.com", "password": "correct-horse",
			"date_of_birth": "1990-05-01", "gender": "male",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "user_exists", decode[middleware.ErrorResponse](t, w).Error)
	})

	t.Run("field errors use json names", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"name": "Ravi", "email": "not-an-email", "password": "short",
			"date_of_birth": "1990-05-01", "gender": "robot",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		resp := decode[middleware.ErrorResponse](t, w)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Equal(t, "must be a valid email address", resp.Fields["email"])
		assert.Equal(t, "must be at least 8 characters", resp.Fields["password"])
		assert.Contains(t, resp.Fields["gender"], "prefer_not_to_say")
	})

	t.Run("bad date", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"name": "Meera", "email": "meera@example.com", "password": "correct-horse",
			"date_of_birth": "01/05/1990", "gender": "female",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decode[middleware.ErrorResponse](t, w).Fields, "date_of_birth")
	})

	t.Run("login", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ravi@example.com", "password": "correct-horse"})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.AuthResponse](t, w)
		assert.NotEmpty(t, resp.Token)
		assert.False(t, resp.User.HasCompletedProfile)

		w = app.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "ravi@example.com", "password": "wrong-horse"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid_credentials", decode[middleware.ErrorResponse](t, w).Error)
	})

	t.Run("protected routes need a token", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/v1/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = app.do(t, http.MethodGet, "/api/v1/profile", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestProfile(t *testing.T) {
	app := newTestApp(t, false)
	token := app.register(t, "ravi@example.com")

	t.Run("incomplete profile blocks meals but not the dashboard", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/meals", token, gin.H{"raw_input": "poha"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "profile_incomplete", decode[middleware.ErrorResponse](t, w).Error)

		w = app.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[service.Dashboard](t, w).HasAPIKey)
	})

	t.Run("completing the profile never echoes the key", func(t *testing.T) {
		w := app.do(t, http.MethodPut, "/api/v1/profile", token, gin.H{
			"date_of_birth":  "1990-05-01",
			"gender":         "male",
			"height":         178.456,
			"openai_api_key": "sk-ravi",
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "sk-ravi")

		resp := decode[api.UserResponse](t, w)
		assert.True(t, resp.HasAPIKey)
		assert.True(t, resp.HasCompletedProfile)
		assert.Equal(t, 178.46, *resp.Height)
		assert.Equal(t, "1990-05-01", *resp.DateOfBirth)
	})

	t.Run("clearing the key", func(t *testing.T) {
		w := app.do(t, http.MethodPut, "/api/v1/profile/api-key", token, gin.H{"openai_api_key": ""})
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, decode[api.UserResponse](t, w).HasCompletedProfile)
	})

	t.Run("timezone header updates the profile", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(middleware.TimezoneHeader, "Asia/Kolkata")
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Asia/Kolkata", decode[api.UserResponse](t, w).Timezone)
	})

	t.Run("photo routes without storage", func(t *testing.T) {
		w := app.do(t, http.MethodDelete, "/api/v1/profile/photo", token, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "storage_disabled", decode[middleware.ErrorResponse](t, w).Error)
	})
}

func TestProfilePhotoUpload(t *testing.T) {
	app := newTestApp(t, true)
	token := app.register(t, "ravi@example.com")

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	app.photos.On("Put", mock.Anything, mock.AnythingOfType("string"), png, "image/png").Return(nil).Once()
	app.photos.On("URL", mock.Anything, mock.AnythingOfType("string")).Return("https://photos.example.com/signed", nil)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("photo", "me.png")
	require.NoError(t, err)
	_, err = part.Write(png)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/profile/photo", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "https://photos.example.com/signed", decode[api.UserResponse](t, w).PhotoURL)
	app.photos.AssertExpectations(t)

	t.Run("missing file", func(t *testing.T) {
		w := app.do(t, http.MethodPut, "/api/v1/profile/photo", token, nil)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "is required", decode[middleware.ErrorResponse](t, w).Fields["photo"])
	})
}

func TestMealLifecycle(t *testing.T) {
	app := newTestApp(t, false)
	token := app.onboard(t, "ravi@example.com")

	app.expectInfer(`{"meal_name":"Masala Dosa","calories":387,"protein":7.5,"carbs":54.25,"fat":15.1}`, nil)
	w := app.do(t, http.MethodPost, "/api/v1/meals", token, gin.H{"raw_input": "one masala dosa with chutney"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	meal := decode[map[string]any](t, w)
	mealID := meal["id"].(string)
	assert.Equal(t, "Masala Dosa", meal["meal_name"])

	w = app.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dashboard := decode[service.Dashboard](t, w)
	require.Len(t, dashboard.Meals, 1)
	assert.Equal(t, service.Totals{Calories: 387, Protein: 7.5, Carbs: 54.25, Fat: 15.1}, dashboard.Totals)
	assert.Nil(t, dashboard.ActiveGoal)
	assert.True(t, dashboard.HasAPIKey)

	w = app.do(t, http.MethodGet, "/api/v1/history", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[api.HistoryResponse](t, w)
	require.Len(t, history.Days, service.HistoryDays)
	assert.Equal(t, 387, history.Days[0].Totals.Calories)

	app.expectInfer("Good protein balance. Add a side of sambar for fibre.", nil)
	w = app.do(t, http.MethodGet, "/api/v1/meals/"+mealID+"/insight", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[api.InsightResponse](t, w)
	assert.False(t, first.Cached)
	assert.Equal(t, "Good protein balance. Add a side of sambar for fibre.", first.Insight)

	w = app.do(t, http.MethodGet, "/api/v1/meals/"+mealID+"/insight", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[api.InsightResponse](t, w).Cached)

	t.Run("other users cannot touch the meal", func(t *testing.T) {
		other := app.onboard(t, "meera@example.com")
		w := app.do(t, http.MethodDelete, "/api/v1/meals/"+mealID, other, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	w = app.do(t, http.MethodDelete, "/api/v1/meals/"+mealID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/meals/"+mealID+"/insight", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodDelete, "/api/v1/meals/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	app.inferrer.AssertExpectations(t)
}

func TestMealErrors(t *testing.T) {
	app := newTestApp(t, false)
	token := app.onboard(t, "ravi@example.com")

	t.Run("missing raw input", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/meals", token, gin.H{})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "is required", decode[middleware.ErrorResponse](t, w).Fields["raw_input"])
	})

	t.Run("undecodable body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/goals", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		app.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("provider unavailable", func(t *testing.T) {
		app.expectInfer("", &nutrition.UpstreamError{StatusCode: http.StatusTooManyRequests, Message: "quota"})
		w := app.do(t, http.MethodPost, "/api/v1/meals", token, gin.H{"raw_input": "rice"})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, decode[middleware.ErrorResponse](t, w).Message, "try again later")
	})

	t.Run("unparseable answer", func(t *testing.T) {
		app.expectInfer("About 300 calories.", nil)
		w := app.do(t, http.MethodPost, "/api/v1/meals", token, gin.H{"raw_input": "rice"})
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, false)
	token := app.onboard(t, "ravi@example.com")

	app.inferrer.On("Infer", mock.Anything, "sk-ravi", mock.Anything, mock.Anything).
		Return(`{"daily_goal_calories":2200,"daily_goal_protein":150,"daily_goal_carb":220,"daily_goal_fat":70}`, nil)

	body := gin.H{
		"height":         178,
		"current_weight": 82,
		"target_weight":  75,
		"target_date":    time.Now().AddDate(0, 3, 0).Format(time.DateOnly),
		"daily_activity": "moderate",
	}
	for i := 0; i < 3; i++ {
		w := app.do(t, http.MethodPost, "/api/v1/goals/calculate", token, body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	}

	w := app.do(t, http.MethodPost, "/api/v1/goals/calculate", token, body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// Unlimited routes are unaffected
	w = app.do(t, http.MethodGet, "/api/v1/goals", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGoals(t *testing.T) {
	app := newTestApp(t, false)
	token := app.onboard(t, "ravi@example.com")

	goal := gin.H{
		"current_weight":      82.5,
		"target_weight":       75,
		"daily_goal_calories": 2100,
		"daily_goal_protein":  140,
		"daily_goal_carb":     210,
		"daily_goal_fat":      65,
	}

	w := app.do(t, http.MethodPost, "/api/v1/goals", token, goal)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[map[string]any](t, w)
	assert.Equal(t, true, first["is_active"])
	assert.Equal(t, 82.5, first["current_weight"])

	w = app.do(t, http.MethodPost, "/api/v1/goals", token, goal)
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[map[string]any](t, w)

	w = app.do(t, http.MethodGet, "/api/v1/goals/"+first["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode[map[string]any](t, w)["is_active"])

	w = app.do(t, http.MethodPost, "/api/v1/goals/"+first["id"].(string)+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["is_active"])

	w = app.do(t, http.MethodGet, "/api/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	active := decode[service.Dashboard](t, w).ActiveGoal
	require.NotNil(t, active)
	assert.Equal(t, first["id"], active.ID.String())

	goal["daily_goal_calories"] = 10001
	w = app.do(t, http.MethodPut, "/api/v1/goals/"+second["id"].(string), token, goal)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[middleware.ErrorResponse](t, w).Fields, "daily_goal_calories")

	w = app.do(t, http.MethodDelete, "/api/v1/goals/"+second["id"].(string), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/goals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]any](t, w)["goals"], 1)

	t.Run("calculate rejects a past target date", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/v1/goals/calculate", token, gin.H{
			"height": 178, "current_weight": 82, "target_weight": 75,
			"target_date": "2020-01-01", "daily_activity": "sedentary",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode[middleware.ErrorResponse](t, w)
		assert.Equal(t, "invalid_input", resp.Error)
		assert.Contains(t, resp.Fields, "target_date")
	})
}

func TestFrequentMeals(t *testing.T) {
	app := newTestApp(t, false)
	token := app.onboard(t, "ravi@example.com")

	parsed := `{"meal_name":"Overnight Oats","calories":350,"protein":14,"carbs":55,"fat":9}`
	app.expectInfer(parsed, nil)
	w := app.do(t, http.MethodPost, "/api/v1/frequent-meals", token, gin.H{"raw_input": "overnight oats with chia"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saved := decode[map[string]any](t, w)
	id := saved["id"].(string)

	app.expectInfer(parsed, nil)
	w = app.do(t, http.MethodPost, "/api/v1/frequent-meals", token, gin.H{"raw_input": "oats again"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodPut, "/api/v1/frequent-meals/"+id, token, gin.H{
		"meal_name": "Oats (large)", "calories": 480, "protein": 18, "carbs": 70, "fat": 12,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Oats (large)", decode[map[string]any](t, w)["meal_name"])

	w = app.do(t, http.MethodPost, "/api/v1/frequent-meals/"+id+"/log", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	entry := decode[map[string]any](t, w)
	assert.Equal(t, "Oats (large)", entry["meal_name"])
	assert.Equal(t, float64(480), entry["calories"])

	w = app.do(t, http.MethodGet, "/api/v1/frequent-meals", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]any](t, w)["frequent_meals"], 1)

	w = app.do(t, http.MethodDelete, "/api/v1/frequent-meals/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodPost, "/api/v1/frequent-meals/"+id+"/log", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	app.inferrer.AssertExpectations(t)
}
