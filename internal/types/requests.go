package types

// RegisterRequest represents the request body for creating an account
type RegisterRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	DateOfBirth string `json:"date_of_birth" binding:"required"`
	Gender      string `json:"gender" binding:"required,oneof=male female other prefer_not_to_say"`
	Timezone    string `json:"timezone" binding:"omitempty,max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CompleteProfileRequest fills in everything the inference features need
type CompleteProfileRequest struct {
	DateOfBirth  string  `json:"date_of_birth" binding:"required"`
	Gender       string  `json:"gender" binding:"required,oneof=male female other prefer_not_to_say"`
	Height       float64 `json:"height" binding:"gte=0,lte=300"`
	OpenAIAPIKey string  `json:"openai_api_key" binding:"required,max=255"`
}

// APIKeyRequest sets the inference key; an empty key clears it
type APIKeyRequest struct {
	OpenAIAPIKey string `json:"openai_api_key" binding:"max=255"`
}

type LogMealRequest struct {
	RawInput string `json:"raw_input" binding:"required,max=1000"`
}

type GoalRequest struct {
	CurrentWeight     float64 `json:"current_weight" binding:"gte=20,lte=500"`
	TargetWeight      float64 `json:"target_weight" binding:"gte=20,lte=500"`
	DailyGoalCalories int     `json:"daily_goal_calories" binding:"gte=0,lte=10000"`
	DailyGoalProtein  float64 `json:"daily_goal_protein" binding:"gte=0,lte=1000"`
	DailyGoalCarb     float64 `json:"daily_goal_carb" binding:"gte=0,lte=1000"`
	DailyGoalFat      float64 `json:"daily_goal_fat" binding:"gte=0,lte=1000"`
	IsActive          *bool   `json:"is_active"`
}

// CalculateGoalRequest asks the model for daily targets. Nothing is stored.
type CalculateGoalRequest struct {
	Height        float64 `json:"height" binding:"gte=100,lte=250"`
	CurrentWeight float64 `json:"current_weight" binding:"gte=20,lte=500"`
	TargetWeight  float64 `json:"target_weight" binding:"gte=20,lte=500"`
	TargetDate    string  `json:"target_date" binding:"required"`
	DailyActivity string  `json:"daily_activity" binding:"max=500"`
}

type CreateFrequentMealRequest struct {
	RawInput string `json:"raw_input" binding:"required,max=1000"`
}

type UpdateFrequentMealRequest struct {
	MealName string  `json:"meal_name" binding:"required,max=255"`
	Calories int     `json:"calories" binding:"gte=0,lte=10000"`
	Protein  float64 `json:"protein" binding:"gte=0,lte=1000"`
	Carbs    float64 `json:"carbs" binding:"gte=0,lte=1000"`
	Fat      float64 `json:"fat" binding:"gte=0,lte=1000"`
}
