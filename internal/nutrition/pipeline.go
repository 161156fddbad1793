package nutrition

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Domain bounds enforced before a goal calculation reaches the prompt.
const (
	MinHeightCm          = 100
	MaxHeightCm          = 250
	MinWeightKg          = 20
	MaxWeightKg          = 500
	MaxActivityLength    = 500
	MaxRawMealInputChars = MaxInputLength
)

// GoalRequest carries the measurements used to calculate daily goals.
type GoalRequest struct {
	HeightCm        float64
	CurrentWeightKg float64
	TargetWeightKg  float64
	TargetDate      time.Time
	DailyActivity   string
}

// MealSummary is the stored meal an insight is generated for. Name comes from an
// earlier model response and is treated as untrusted.
type MealSummary struct {
	Name     string
	Calories int
	Protein  float64
	Carbs    float64
	Fat      float64
}

// Pipeline runs sanitize, build, infer and parse for each task. It keeps no state
// between calls and never persists anything.
type Pipeline struct {
	client Inferrer
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the clock used to validate target dates.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a new Pipeline instance
func NewPipeline(client Inferrer, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{client: client, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseMeal estimates the nutrition of a free-text meal description.
func (p *Pipeline) ParseMeal(ctx context.Context, apiKey, rawInput string) (NutritionResult, error) {
	if err := requireText("raw_input", rawInput, MaxRawMealInputChars); err != nil {
		return NutritionResult{}, err
	}
	if Sanitize(rawInput) == "" {
		return NutritionResult{}, &InputError{Field: "raw_input", Reason: "contains no usable text"}
	}

	out, err := p.run(ctx, apiKey, MealParseTemplate, rawInput, nil)
	if err != nil {
		return NutritionResult{}, err
	}

	result, err := ParseNutrition(out)
	if err != nil {
		p.logger.Warn("meal parse response rejected", zap.Error(err))
		return NutritionResult{}, err
	}
	return result, nil
}

// CalculateGoal derives daily calorie and macro goals.
func (p *Pipeline) CalculateGoal(ctx context.Context, apiKey string, req GoalRequest) (GoalTargets, error) {
	params, err := p.goalParams(req)
	if err != nil {
		return GoalTargets{}, err
	}

	out, err := p.run(ctx, apiKey, GoalCalculateTemplate, req.DailyActivity, params)
	if err != nil {
		return GoalTargets{}, err
	}

	targets, err := ParseGoalTargets(out)
	if err != nil {
		p.logger.Warn("goal calculation response rejected", zap.Error(err))
		return GoalTargets{}, err
	}
	return targets, nil
}

func (p *Pipeline) goalParams(req GoalRequest) ([]Param, error) {
	height, err := SanitizeNumeric(req.HeightCm, MinHeightCm, MaxHeightCm)
	if err != nil {
		return nil, withField(err, "height")
	}
	current, err := SanitizeNumeric(req.CurrentWeightKg, MinWeightKg, MaxWeightKg)
	if err != nil {
		return nil, withField(err, "current_weight")
	}
	target, err := SanitizeNumeric(req.TargetWeightKg, MinWeightKg, MaxWeightKg)
	if err != nil {
		return nil, withField(err, "target_weight")
	}
	if req.TargetDate.IsZero() {
		return nil, &InputError{Field: "target_date", Reason: "is required"}
	}
	if !dateOnly(req.TargetDate).After(dateOnly(p.now().In(req.TargetDate.Location()))) {
		return nil, &InputError{Field: "target_date", Reason: "must be after today"}
	}
	if err := requireText("daily_activity", req.DailyActivity, MaxActivityLength); err != nil {
		return nil, err
	}

	return []Param{
		{Key: "Height (cm)", Value: height},
		{Key: "Current Weight (kg)", Value: current},
		{Key: "Target Weight (kg)", Value: target},
		{Key: "Target Date", Value: req.TargetDate},
	}, nil
}

// GenerateInsight writes a short coaching comment about one meal. goal may be nil.
func (p *Pipeline) GenerateInsight(ctx context.Context, apiKey string, meal MealSummary, goal *GoalTargets) (string, error) {
	params := []Param{
		{Key: "Calories", Value: meal.Calories},
		{Key: "Protein (g)", Value: meal.Protein},
		{Key: "Carbs (g)", Value: meal.Carbs},
		{Key: "Fat (g)", Value: meal.Fat},
	}
	if goal != nil {
		params = append(params,
			Param{Key: "Daily Goal Calories", Value: goal.DailyGoalCalories},
			Param{Key: "Daily Goal Protein (g)", Value: goal.DailyGoalProtein},
			Param{Key: "Daily Goal Carbs (g)", Value: goal.DailyGoalCarb},
			Param{Key: "Daily Goal Fat (g)", Value: goal.DailyGoalFat},
		)
	}

	// The meal name goes through the same sanitizer as fresh input.
	out, err := p.run(ctx, apiKey, MealInsightTemplate, meal.Name, params)
	if err != nil {
		return "", err
	}

	insight := strings.TrimSpace(out)
	if insight == "" {
		return "", ErrEmptyResponse
	}
	return insight, nil
}

func (p *Pipeline) run(ctx context.Context, apiKey string, t Template, rawInput string, params []Param) (string, error) {
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	prompt, err := t.Build(rawInput, params)
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := p.client.Infer(ctx, apiKey, prompt, t.MaxTokens)
	if err != nil {
		p.logger.Warn("inference failed",
			zap.String("task", t.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	p.logger.Info("inference succeeded",
		zap.String("task", t.Name),
		zap.Int("prompt_chars", len(prompt.System)+len(prompt.Instructions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func requireText(field, s string, maxChars int) error {
	if strings.TrimSpace(s) == "" {
		return &InputError{Field: field, Reason: "is required"}
	}
	if utf8.RuneCountInString(s) > maxChars {
		return &InputError{Field: field, Reason: "is too long"}
	}
	return nil
}

func withField(err error, field string) error {
	if ie, ok := err.(*InputError); ok {
		return &InputError{Field: field, Reason: ie.Reason}
	}
	return err
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
