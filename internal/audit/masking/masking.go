package masking

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maskToken     = "****"
	maxValueRunes = 256
)

// Keys whose values are user-written text and never stored verbatim.
var redactedKeys = map[string]struct{}{
	"content":     {},
	"description": {},
}

// MaskText replaces text with a marker that keeps only its length.
func MaskText(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s(%d chars)", maskToken, utf8.RuneCountInString(trimmed))
}

// MaskJSON returns a copy of input with redacted keys masked and every other
// string bounded in length.
func MaskJSON(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		if _, ok := redactedKeys[strings.ToLower(trimmedKey)]; ok {
			if s, isString := value.(string); isString {
				masked[trimmedKey] = MaskText(s)
				continue
			}
		}
		masked[trimmedKey] = maskValue(value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return truncate(cast)
	case map[string]any:
		return MaskJSON(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item))
		}
		return out
	default:
		return value
	}
}

func truncate(value string) string {
	if utf8.RuneCountInString(value) <= maxValueRunes {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxValueRunes]) + "..."
}
