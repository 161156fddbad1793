package nutrition

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldKind is the canonical type a response field is coerced to.
type FieldKind int

const (
	// StringField must be a non-empty JSON string.
	StringField FieldKind = iota
	// IntegerField accepts a number or numeric string and truncates toward zero.
	IntegerField
	// DecimalField accepts a number or numeric string and rounds half-up to 2 places.
	DecimalField
)

// Field is one required member of a response object. A positive Max is the
// largest value accepted after rounding.
type Field struct {
	Name string
	Kind FieldKind
	Max  float64
}

// Schema lists required fields in the order they are checked. Decoding stops at the
// first violated field.
type Schema []Field

// Values holds a fully validated response: string, int64 or float64 per field kind.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Int(name string) int {
	i, _ := v[name].(int64)
	return int(i)
}

func (v Values) Float(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:json)?")
	trailingFence = regexp.MustCompile("```$")

	maxInteger = decimal.NewFromInt(math.MaxInt32)
)

// Parse strips a markdown fence from raw model output, decodes the JSON object and
// coerces every schema field. It returns either a complete Values or an error wrapping
// ErrMalformedResponse or ErrMissingField.
func Parse(raw string, schema Schema) (Values, error) {
	doc := stripFence(raw)
	if doc == "" {
		return nil, &MalformedError{Err: errors.New("empty document")}
	}

	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &MalformedError{Err: err}
	}
	if obj == nil {
		return nil, &MalformedError{Err: errors.New("expected a JSON object, got null")}
	}
	if dec.More() {
		return nil, &MalformedError{Err: errors.New("unexpected data after JSON object")}
	}

	values := make(Values, len(schema))
	for _, f := range schema {
		v, err := coerce(f, obj[f.Name])
		if err != nil {
			return nil, err
		}
		values[f.Name] = v
	}
	return values, nil
}

func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func coerce(f Field, v any) (any, error) {
	if v == nil {
		return nil, &FieldError{Field: f.Name, Reason: "missing"}
	}

	if f.Kind == StringField {
		s, ok := v.(string)
		if !ok {
			return nil, &FieldError{Field: f.Name, Reason: "not a string"}
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, &FieldError{Field: f.Name, Reason: "empty"}
		}
		return s, nil
	}

	var d decimal.Decimal
	var ok bool
	switch n := v.(type) {
	case json.Number:
		d, ok = stringDecimal(n.String())
	case string:
		d, ok = stringDecimal(n)
	}
	if !ok {
		return nil, &FieldError{Field: f.Name, Reason: "not numeric"}
	}
	if d.IsNegative() {
		return nil, &FieldError{Field: f.Name, Reason: "negative"}
	}

	if f.Kind == IntegerField {
		d = d.Truncate(0)
	} else {
		d = d.Round(2)
	}
	if d.GreaterThan(maxInteger) || (f.Max > 0 && d.GreaterThan(decimal.NewFromFloat(f.Max))) {
		return nil, &FieldError{Field: f.Name, Reason: "out of range"}
	}

	if f.Kind == IntegerField {
		return d.IntPart(), nil
	}
	return d.InexactFloat64(), nil
}

// NutritionResult is a validated meal estimate.
type NutritionResult struct {
	MealName string  `json:"meal_name"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// GoalTargets is a validated set of daily goals.
type GoalTargets struct {
	DailyGoalCalories int     `json:"daily_goal_calories"`
	DailyGoalProtein  float64 `json:"daily_goal_protein"`
	DailyGoalCarb     float64 `json:"daily_goal_carb"`
	DailyGoalFat      float64 `json:"daily_goal_fat"`
}

const (
	// MaxMealNameLength bounds a stored meal name.
	MaxMealNameLength = 255
	// MaxCalories and MaxMacroGrams bound every estimate the model may return.
	// Stored meals and goals stay inside the range the insight prompt accepts.
	MaxCalories   = 10000
	MaxMacroGrams = 1000
)

// MealSchema is the meal-parse response.
var MealSchema = Schema{
	{Name: "meal_name", Kind: StringField},
	{Name: "calories", Kind: IntegerField, Max: MaxCalories},
	{Name: "protein", Kind: DecimalField, Max: MaxMacroGrams},
	{Name: "carbs", Kind: DecimalField, Max: MaxMacroGrams},
	{Name: "fat", Kind: DecimalField, Max: MaxMacroGrams},
}

// GoalSchema is the goal-calculate response.
var GoalSchema = Schema{
	{Name: "daily_goal_calories", Kind: IntegerField, Max: MaxCalories},
	{Name: "daily_goal_protein", Kind: DecimalField, Max: MaxMacroGrams},
	{Name: "daily_goal_carb", Kind: DecimalField, Max: MaxMacroGrams},
	{Name: "daily_goal_fat", Kind: DecimalField, Max: MaxMacroGrams},
}

// ParseNutrition decodes a meal-parse response.
func ParseNutrition(raw string) (NutritionResult, error) {
	v, err := Parse(raw, MealSchema)
	if err != nil {
		return NutritionResult{}, err
	}
	name := v.String("meal_name")
	if utf8.RuneCountInString(name) > MaxMealNameLength {
		name = string([]rune(name)[:MaxMealNameLength])
	}
	return NutritionResult{
		MealName: name,
		Calories: v.Int("calories"),
		Protein:  v.Float("protein"),
		Carbs:    v.Float("carbs"),
		Fat:      v.Float("fat"),
	}, nil
}

// ParseGoalTargets decodes a goal-calculate response.
func ParseGoalTargets(raw string) (GoalTargets, error) {
	v, err := Parse(raw, GoalSchema)
	if err != nil {
		return GoalTargets{}, err
	}
	return GoalTargets{
		DailyGoalCalories: v.Int("daily_goal_calories"),
		DailyGoalProtein:  v.Float("daily_goal_protein"),
		DailyGoalCarb:     v.Float("daily_goal_carb"),
		DailyGoalFat:      v.Float("daily_goal_fat"),
	}, nil
}
