package contentgate

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/smallbiznis/groupchat/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("content.gate",
	fx.Provide(New),
)

// Gate screens text against the currently loaded moderation rules.
type Gate struct {
	holder *config.ModerationConfigHolder
	static *Rules
}

func New(holder *config.ModerationConfigHolder) *Gate {
	return &Gate{holder: holder}
}

// NewStatic returns a Gate with fixed rules.
func NewStatic(rules Rules) *Gate {
	return &Gate{static: &rules}
}

// Rules returns the rules in effect right now.
func (g *Gate) Rules() Rules {
	if g == nil {
		return DefaultRules()
	}
	if g.static != nil {
		return *g.static
	}
	if g.holder == nil {
		return DefaultRules()
	}
	return RulesFromConfig(g.holder.Get())
}

// Screen applies the current rules to text.
func (g *Gate) Screen(text string) Verdict {
	return Screen(text, g.Rules())
}

var strictPolicy = bluemonday.StrictPolicy()

// Normalize strips all markup and surrounding whitespace. Callers run it
// before length checks and Screen. The output is HTML-escaped text.
func Normalize(text string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(strings.TrimSpace(text)))
}

// RuneLen is the length unit used for every text limit.
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}

var (
	ErrEmpty   = errors.New("text is empty")
	ErrTooLong = errors.New("text is too long")
)

// Prepare bounds the trimmed input to maxRunes and normalizes it. Text that
// is empty after normalization yields ErrEmpty. The limit applies to what the
// caller submitted, so escaping may leave the result longer than maxRunes.
func Prepare(raw string, maxRunes int) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrEmpty
	}
	if RuneLen(trimmed) > maxRunes {
		return "", ErrTooLong
	}
	normalized := Normalize(trimmed)
	if normalized == "" {
		return "", ErrEmpty
	}
	return normalized, nil
}
