package nutrition

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	// MaxInputLength is the longest sanitized text kept before truncation.
	MaxInputLength = 1000
	truncationMark = "..."

	inputStartMarker = "===USER INPUT START==="
	inputEndMarker   = "===USER INPUT END==="

	// Default bounds applied to numeric prompt parameters.
	DefaultNumericMin = 0
	DefaultNumericMax = 10000
)

// injectionPatterns are removed in order. Instruction overrides first, then role
// switches, then markup and template sequences.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore.*?(previous|above|all).*?instructions?`),
	regexp.MustCompile(`(?i)disregard.*?instructions?`),
	regexp.MustCompile(`(?i)forget.*?instructions?`),
	regexp.MustCompile(`(?i)override.*?instructions?`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`(?i)assistant\s*:\s*`),
	regexp.MustCompile(`(?i)you\s+are\s+now`),
	regexp.MustCompile(`(?i)act\s+as\s+`),
	regexp.MustCompile(`(?i)pretend\s+to\s+be`),
	regexp.MustCompile(`(?i)roleplay\s+as`),
	regexp.MustCompile(`\]\]>`),
	regexp.MustCompile(`<!\[CDATA\[`),
	regexp.MustCompile(`\$\{.*?\}`),
	regexp.MustCompile("`.*?`"),
}

var (
	structuralReplacer = strings.NewReplacer(
		`\`, " ",
		`"`, "'",
		"\n", " ",
		"\r", " ",
		"\t", " ",
	)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Sanitize defuses prompt-injection sequences in untrusted text. It is total over all
// strings and idempotent: the result is free of every configured pattern, holds no
// backslash, double quote or control whitespace, and is at most MaxInputLength runes
// plus the truncation mark.
func Sanitize(text string) string {
	s := strings.ToValidUTF8(text, "")

	// Removing one pattern or joining lines can expose another, so repeat until stable.
	for {
		next := sanitizePass(s)
		if next == s {
			break
		}
		s = next
	}

	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > MaxInputLength {
		s = string([]rune(s)[:MaxInputLength]) + truncationMark
	}
	return strings.TrimSpace(s)
}

func sanitizePass(s string) string {
	for _, re := range injectionPatterns {
		s = re.ReplaceAllString(s, "")
	}
	s = structuralReplacer.Replace(s)
	return whitespaceRun.ReplaceAllString(s, " ")
}

// WrapUserInput sanitizes text and fences it with boundary markers so the model can
// tell data from instructions.
func WrapUserInput(text string) string {
	return inputStartMarker + "\n" + Sanitize(text) + "\n" + inputEndMarker
}

// SanitizeNumeric validates that value is numeric and within [lo, hi] and returns it
// rounded half-up to two decimal places.
func SanitizeNumeric(value any, lo, hi float64) (float64, error) {
	d, ok := toDecimal(value)
	if !ok {
		return 0, &InputError{Reason: fmt.Sprintf("value %v is not numeric", value)}
	}
	if d.LessThan(decimal.NewFromFloat(lo)) || d.GreaterThan(decimal.NewFromFloat(hi)) {
		return 0, &InputError{Reason: fmt.Sprintf("value %s is outside [%v, %v]", d.String(), lo, hi)}
	}
	return d.Round(2).InexactFloat64(), nil
}

// toDecimal accepts Go numeric kinds and numeric strings.
func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int8:
		return decimal.NewFromInt(int64(v)), true
	case int16:
		return decimal.NewFromInt(int64(v)), true
	case int32:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case uint:
		return decimal.NewFromInt(int64(v)), true
	case uint8:
		return decimal.NewFromInt(int64(v)), true
	case uint16:
		return decimal.NewFromInt(int64(v)), true
	case uint32:
		return decimal.NewFromInt(int64(v)), true
	case uint64:
		if v > math.MaxInt64 {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromInt(int64(v)), true
	case float32:
		return floatDecimal(float64(v))
	case float64:
		return floatDecimal(v)
	case decimal.Decimal:
		return v, true
	case json.Number:
		return stringDecimal(v.String())
	case string:
		return stringDecimal(v)
	default:
		return decimal.Decimal{}, false
	}
}

func floatDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

func stringDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// isNumeric reports whether value is a Go numeric kind (not a numeric string).
func isNumeric(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, decimal.Decimal, json.Number:
		return true
	}
	return false
}
