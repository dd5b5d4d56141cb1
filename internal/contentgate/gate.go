package contentgate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smallbiznis/groupchat/internal/config"
)

// Rejection reasons, in screening order.
const (
	ReasonExcessiveCaps  = "excessive_caps"
	ReasonSpamRepetition = "spam_repetition"
	ReasonDenylisted     = "denylisted_term"
)

// Rules are the thresholds and terms Screen applies.
type Rules struct {
	CapsRatio     float64
	CapsMinLength int

	RepetitionRatio     float64
	RepetitionMinLength int
	RepetitionMinTokens int

	// DenyWords match whole tokens. DenySubstrings match anywhere.
	DenyWords      []string
	DenySubstrings []string
}

// Verdict is the outcome of screening one text.
type Verdict struct {
	Accepted bool
	Reason   string
}

func accept() Verdict {
	return Verdict{Accepted: true}
}

func reject(reason string) Verdict {
	return Verdict{Accepted: false, Reason: reason}
}

// RulesFromConfig lower-cases the denylist once so Screen never allocates
// per term.
func RulesFromConfig(cfg config.ModerationConfig) Rules {
	return Rules{
		CapsRatio:           cfg.CapsRatio,
		CapsMinLength:       cfg.CapsMinLength,
		RepetitionRatio:     cfg.RepetitionRatio,
		RepetitionMinLength: cfg.RepetitionMinLength,
		RepetitionMinTokens: cfg.RepetitionMinTokens,
		DenyWords:           lowerAll(cfg.DenyWords),
		DenySubstrings:      lowerAll(cfg.DenySubstrings),
	}
}

// DefaultRules returns the built-in moderation rules.
func DefaultRules() Rules {
	return RulesFromConfig(config.DefaultModerationConfig())
}

// Screen decides whether text is acceptable. It is pure: the same text and
// rules always yield the same verdict. Empty text is accepted; emptiness is a
// validation concern of the caller.
func Screen(text string, rules Rules) Verdict {
	if text == "" {
		return accept()
	}
	length := utf8.RuneCountInString(text)

	if length > rules.CapsMinLength && capsRatio(text, length) > rules.CapsRatio {
		return reject(ReasonExcessiveCaps)
	}

	if length > rules.RepetitionMinLength && repeatsTooMuch(text, rules) {
		return reject(ReasonSpamRepetition)
	}

	if containsDenied(text, rules) {
		return reject(ReasonDenylisted)
	}

	return accept()
}

// capsRatio is measured over every rune, punctuation included.
func capsRatio(text string, length int) float64 {
	upper := 0
	for _, r := range text {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper) / float64(length)
}

func repeatsTooMuch(text string, rules Rules) bool {
	tokens := strings.Fields(text)
	if len(tokens) <= rules.RepetitionMinTokens {
		return false
	}
	limit := float64(len(tokens)) * rules.RepetitionRatio
	counts := make(map[string]int, len(tokens))
	for _, token := range tokens {
		token = strings.ToLower(token)
		counts[token]++
		if float64(counts[token]) > limit {
			return true
		}
	}
	return false
}

func containsDenied(text string, rules Rules) bool {
	lower := strings.ToLower(text)

	if len(rules.DenyWords) > 0 {
		words := make(map[string]struct{})
		for _, w := range wordTokens(lower) {
			words[w] = struct{}{}
		}
		for _, term := range rules.DenyWords {
			if _, ok := words[term]; ok {
				return true
			}
		}
	}

	for _, term := range rules.DenySubstrings {
		if term != "" && strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// wordTokens splits on anything that is not a letter, digit or underscore.
func wordTokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

func lowerAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		out = append(out, term)
	}
	return out
}
