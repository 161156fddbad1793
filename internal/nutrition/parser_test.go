package nutrition

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("fenced meal response", func(t *testing.T) {
		raw := "```json\n{\"meal_name\":\"Rice\",\"calories\":\"200\",\"protein\":5.555,\"carbs\":40,\"fat\":2}\n```"

		values, err := Parse(raw, MealSchema)
		require.NoError(t, err)

		assert.Equal(t, Values{
			"meal_name": "Rice",
			"calories":  int64(200),
			"protein":   5.56,
			"carbs":     40.0,
			"fat":       2.0,
		}, values)
	})

	t.Run("missing field", func(t *testing.T) {
		_, err := Parse(`{"calories":200}`, Schema{{Name: "meal_name", Kind: StringField}})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingField))

		var fe *FieldError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "meal_name", fe.Field)
	})

	t.Run("null counts as missing", func(t *testing.T) {
		_, err := Parse(`{"meal_name":null}`, Schema{{Name: "meal_name", Kind: StringField}})
		assert.True(t, errors.Is(err, ErrMissingField))
	})

	t.Run("first violated field wins", func(t *testing.T) {
		_, err := Parse(`{"daily_goal_calories":"lots","daily_goal_protein":"x"}`, GoalSchema)

		var fe *FieldError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "daily_goal_calories", fe.Field)
		assert.Equal(t, "not numeric", fe.Reason)
	})

	t.Run("malformed json includes detail", func(t *testing.T) {
		_, err := Parse("Sure! The meal has about 300 calories.", MealSchema)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedResponse))
		assert.False(t, errors.Is(err, ErrMissingField))
		assert.Contains(t, err.Error(), "invalid character")
	})

	t.Run("non object rejected", func(t *testing.T) {
		for _, raw := range []string{`[1,2]`, `42`, `null`, "```\n```", `{"meal_name":"a"} trailing`} {
			_, err := Parse(raw, MealSchema)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "raw %q", raw)
		}
	})
}

func TestParseCoercion(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		json  string
		want  any
		err   string
	}{
		{"integer truncates", Field{Name: "calories", Kind: IntegerField}, `{"calories":200.9}`, int64(200), ""},
		{"integer from string", Field{Name: "calories", Kind: IntegerField}, `{"calories":" 310 "}`, int64(310), ""},
		{"decimal half up", Field{Name: "protein", Kind: DecimalField}, `{"protein":2.345}`, 2.35, ""},
		{"decimal small half up", Field{Name: "fat", Kind: DecimalField}, `{"fat":0.125}`, 0.13, ""},
		{"decimal from string", Field{Name: "carbs", Kind: DecimalField}, `{"carbs":"12.5"}`, 12.5, ""},
		{"negative rejected", Field{Name: "fat", Kind: DecimalField}, `{"fat":-1}`, nil, "negative"},
		{"bool rejected", Field{Name: "calories", Kind: IntegerField}, `{"calories":true}`, nil, "not numeric"},
		{"object rejected", Field{Name: "calories", Kind: IntegerField}, `{"calories":{"v":1}}`, nil, "not numeric"},
		{"string field must be string", Field{Name: "meal_name", Kind: StringField}, `{"meal_name":12}`, nil, "not a string"},
		{"string field trimmed", Field{Name: "meal_name", Kind: StringField}, `{"meal_name":"  Poha  "}`, "Poha", ""},
		{"string field empty", Field{Name: "meal_name", Kind: StringField}, `{"meal_name":"  "}`, nil, "empty"},
		{"integer overflow", Field{Name: "calories", Kind: IntegerField}, `{"calories":1e12}`, nil, "out of range"},
		{"integer at max", Field{Name: "calories", Kind: IntegerField, Max: 10000}, `{"calories":10000}`, int64(10000), ""},
		{"integer above max", Field{Name: "calories", Kind: IntegerField, Max: 10000}, `{"calories":12500}`, nil, "out of range"},
		{"decimal rounds into max", Field{Name: "fat", Kind: DecimalField, Max: 1000}, `{"fat":1000.004}`, 1000.0, ""},
		{"decimal above max", Field{Name: "fat", Kind: DecimalField, Max: 1000}, `{"fat":"1000.01"}`, nil, "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := Parse(tt.json, Schema{tt.field})
			if tt.err != "" {
				var fe *FieldError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, tt.err, fe.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, values[tt.field.Name])
		})
	}
}

func TestParseFenceVariants(t *testing.T) {
	inputs := []string{
		"```JSON\n{\"daily_goal_calories\":2000,\"daily_goal_protein\":120,\"daily_goal_carb\":200,\"daily_goal_fat\":60}\n```",
		"```\n{\"daily_goal_calories\":2000,\"daily_goal_protein\":120,\"daily_goal_carb\":200,\"daily_goal_fat\":60}```",
		"  {\"daily_goal_calories\":2000,\"daily_goal_protein\":120,\"daily_goal_carb\":200,\"daily_goal_fat\":60}  ",
	}

	for _, raw := range inputs {
		targets, err := ParseGoalTargets(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, GoalTargets{
			DailyGoalCalories: 2000,
			DailyGoalProtein:  120,
			DailyGoalCarb:     200,
			DailyGoalFat:      60,
		}, targets)
	}
}

func TestParseNutrition(t *testing.T) {
	result, err := ParseNutrition(`{"meal_name":"Chole Bhature","calories":650,"protein":18.456,"carbs":80.1,"fat":28}`)
	require.NoError(t, err)

	assert.Equal(t, NutritionResult{
		MealName: "Chole Bhature",
		Calories: 650,
		Protein:  18.46,
		Carbs:    80.1,
		Fat:      28,
	}, result)
}

func TestParseRejectsImplausibleEstimates(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"meal calories", `{"meal_name":"Feast","calories":12500,"protein":10,"carbs":10,"fat":10}`, "calories"},
		{"meal protein", `{"meal_name":"Feast","calories":900,"protein":1500,"carbs":10,"fat":10}`, "protein"},
		{"goal calories", `{"daily_goal_calories":20000,"daily_goal_protein":100,"daily_goal_carb":100,"daily_goal_fat":50}`, "daily_goal_calories"},
		{"goal fat", `{"daily_goal_calories":2000,"daily_goal_protein":100,"daily_goal_carb":100,"daily_goal_fat":1200}`, "daily_goal_fat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if strings.HasPrefix(tt.name, "meal") {
				_, err = ParseNutrition(tt.raw)
			} else {
				_, err = ParseGoalTargets(tt.raw)
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingField))

			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, "out of range", fe.Reason)
		})
	}
}
