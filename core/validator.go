package core

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/cast"
)

type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindEmail   Kind = "email"
	KindEnum    Kind = "enum"
	KindCompare Kind = "compare"
)

// Rule describes how one field is checked. Min and Max bound string length
// for string and email kinds and the value for integer kinds; nil means
// unbounded.
type Rule struct {
	Kind          Kind
	Required      bool
	Min           *int64
	Max           *int64
	AllowedValues []any
	CompareTo     string
	Lowercase     bool
}

type SchemaField struct {
	Name string
	Rule Rule
}

// Schema is an ordered set of field rules. Validation reports errors in
// schema order.
type Schema []SchemaField

type ValidationResult struct {
	Validated map[string]any
	Errors    []FieldError
}

func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

func Field(name string, rule Rule) SchemaField {
	return SchemaField{Name: name, Rule: rule}
}

func StringRule(min, max int64) Rule {
	return Rule{Kind: KindString, Min: bound(min), Max: bound(max)}
}

func IntegerRule(min, max int64) Rule {
	return Rule{Kind: KindInteger, Min: bound(min), Max: bound(max)}
}

func IntegerMinRule(min int64) Rule {
	return Rule{Kind: KindInteger, Min: bound(min)}
}

func BooleanRule() Rule {
	return Rule{Kind: KindBoolean}
}

func EmailRule(min, max int64) Rule {
	return Rule{Kind: KindEmail, Min: bound(min), Max: bound(max)}
}

func EnumRule(values ...any) Rule {
	return Rule{Kind: KindEnum, AllowedValues: append([]any(nil), values...)}
}

func CompareRule(field string) Rule {
	return Rule{Kind: KindCompare, CompareTo: field}
}

func (r Rule) Require() Rule {
	r.Required = true
	return r
}

func (r Rule) Lower() Rule {
	r.Lowercase = true
	return r
}

func bound(v int64) *int64 {
	return &v
}

// Validate checks raw against schema. Every field is checked and errors
// accumulate; fields that fail or are absent are left out of Validated.
// Keys not named by the schema are ignored.
func Validate(raw map[string]any, schema Schema) ValidationResult {
	result := ValidationResult{Validated: map[string]any{}}
	for _, field := range schema {
		value, message := validateField(raw, field.Name, field.Rule)
		if message != "" {
			result.Errors = append(result.Errors, FieldError{Field: field.Name, Message: message})
			continue
		}
		if value != nil {
			result.Validated[field.Name] = value
		}
	}
	return result
}

func validateField(raw map[string]any, key string, rule Rule) (any, string) {
	value, present := raw[key]
	text, isText := value.(string)
	if isText {
		text = strings.TrimSpace(text)
		value = text
	}
	if !present || value == nil || (isText && text == "") {
		if rule.Required {
			return nil, fmt.Sprintf("%q is required", key)
		}
		return nil, ""
	}

	coerced := value
	if isText {
		coerced = CoercePrimitive(text)
	}

	switch rule.Kind {
	case KindString:
		str, ok := stringForm(value)
		if !ok {
			return nil, fmt.Sprintf("%q must be a string", key)
		}
		if rule.Lowercase {
			str = strings.ToLower(str)
		}
		if err := validation.Validate(str, lengthRule(rule)); err != nil {
			return nil, fmt.Sprintf("%q %s", key, err.Error())
		}
		return str, ""
	case KindEmail:
		str, ok := stringForm(value)
		if !ok {
			return nil, fmt.Sprintf("%q must be a string", key)
		}
		if err := validation.Validate(str, lengthRule(rule), is.EmailFormat); err != nil {
			return nil, fmt.Sprintf("%q %s", key, err.Error())
		}
		return strings.ToLower(str), ""
	case KindInteger:
		number, ok := integerForm(coerced)
		if !ok {
			return nil, fmt.Sprintf("%q must be an integer", key)
		}
		// ozzo threshold rules treat zero as empty and skip it, so bounds
		// are checked here.
		if rule.Min != nil && number < *rule.Min {
			return nil, fmt.Sprintf("%q must be no less than %d", key, *rule.Min)
		}
		if rule.Max != nil && number > *rule.Max {
			return nil, fmt.Sprintf("%q must be no greater than %d", key, *rule.Max)
		}
		return number, ""
	case KindBoolean:
		flag, ok := coerced.(bool)
		if !ok {
			return nil, fmt.Sprintf("%q must be a boolean", key)
		}
		return flag, ""
	case KindEnum:
		if len(rule.AllowedValues) == 0 {
			return nil, fmt.Sprintf("allowed values are required in rule for %q", key)
		}
		for _, allowed := range rule.AllowedValues {
			if reflect.DeepEqual(allowed, coerced) || reflect.DeepEqual(allowed, value) {
				return allowed, ""
			}
		}
		return nil, fmt.Sprintf("%q must be one of: %s", key, joinValues(rule.AllowedValues))
	case KindCompare:
		other, ok := raw[rule.CompareTo]
		if otherText, isOtherText := other.(string); isOtherText {
			other = CoercePrimitive(strings.TrimSpace(otherText))
		}
		if !ok || !reflect.DeepEqual(other, coerced) {
			return nil, fmt.Sprintf("%q must match %q", key, rule.CompareTo)
		}
		return coerced, ""
	default:
		return nil, fmt.Sprintf("unsupported rule kind %q for %q", rule.Kind, key)
	}
}

// CoercePrimitive infers a primitive from a trimmed string: integers become
// int64, other numbers float64, "true"/"false" bool. Anything else stays a
// string.
func CoercePrimitive(text string) any {
	switch strings.ToLower(text) {
	case "true":
		return true
	case "false":
		return false
	}
	if number, err := strconv.ParseInt(text, 10, 64); err == nil {
		return number
	}
	if number, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(number, 0) && !math.IsNaN(number) {
		return number
	}
	return text
}

func lengthRule(rule Rule) validation.Rule {
	min, max := 0, 0
	if rule.Min != nil {
		min = int(*rule.Min)
	}
	if rule.Max != nil {
		max = int(*rule.Max)
	}
	return validation.Length(min, max)
}

func stringForm(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case fmt.Stringer:
		return strings.TrimSpace(typed.String()), true
	default:
		return "", false
	}
}

func integerForm(value any) (int64, bool) {
	switch typed := value.(type) {
	case bool, string, nil:
		return 0, false
	case float32:
		return floatToInt(float64(typed))
	case float64:
		return floatToInt(typed)
	}
	number, err := cast.ToInt64E(value)
	if err != nil {
		return 0, false
	}
	return number, true
}

func floatToInt(value float64) (int64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value != math.Trunc(value) {
		return 0, false
	}
	if value > math.MaxInt64 || value < math.MinInt64 {
		return 0, false
	}
	return int64(value), true
}

func joinValues(values []any) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, cast.ToString(value))
	}
	return strings.Join(parts, ", ")
}
