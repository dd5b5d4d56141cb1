package contentgate

import (
	"strings"
	"testing"

	"github.com/smallbiznis/groupchat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreen(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{name: "plain text", text: "Meet at the trailhead at noon"},
		{name: "empty", text: ""},
		{name: "shouting", text: "AAAAAAAAAA!!!", reason: ReasonExcessiveCaps},
		{name: "shouting lowercased", text: "aaaaaaaaaa!!!"},
		{name: "short caps under length floor", text: "OK THANKS"},
		{name: "exactly ten caps", text: "ABCDEFGHIJ"},
		{name: "repetition", text: "buy buy buy buy now please", reason: ReasonSpamRepetition},
		{name: "repetition case insensitive", text: "Buy BUY buy bUy now ok", reason: ReasonSpamRepetition},
		{name: "repetition needs enough tokens", text: "wow wow wow"},
		{name: "denylisted whole word", text: "this venue is a scam honestly", reason: ReasonDenylisted},
		{name: "denylisted with punctuation", text: "total scam!", reason: ReasonDenylisted},
		{name: "denylist ignores embedded word", text: "I love grass and class"},
		{name: "denylisted substring", text: "what the f*ck", reason: ReasonDenylisted},
		{name: "denylist case insensitive", text: "Such a SCAM place", reason: ReasonDenylisted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Screen(tt.text, rules)
			if tt.reason == "" {
				assert.True(t, v.Accepted, "expected accept, got %q", v.Reason)
				assert.Empty(t, v.Reason)
				return
			}
			assert.False(t, v.Accepted)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestScreenOrderCapsBeforeDenylist(t *testing.T) {
	v := Screen("THIS IS A SCAM VENUE", DefaultRules())
	require.False(t, v.Accepted)
	assert.Equal(t, ReasonExcessiveCaps, v.Reason)
}

func TestScreenOrderRepetitionBeforeDenylist(t *testing.T) {
	v := Screen("spam spam spam spam and more", DefaultRules())
	require.False(t, v.Accepted)
	assert.Equal(t, ReasonSpamRepetition, v.Reason)
}

func TestScreenIsDeterministic(t *testing.T) {
	rules := DefaultRules()
	text := "Is anyone going to the concert tonight?"
	first := Screen(text, rules)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Screen(text, rules))
	}
}

func TestScreenCountsRunesNotBytes(t *testing.T) {
	rules := DefaultRules()
	// Nine uppercase runes plus multibyte lowercase: byte length is above the
	// floor but the rune ratio is under the threshold.
	text := "ÉÉÉÉÉÉÉÉÉ ééé"
	assert.True(t, Screen(text, rules).Accepted)
}

func TestGateUsesHolder(t *testing.T) {
	cfg := config.DefaultModerationConfig()
	cfg.DenyWords = []string{"Lorem"}
	holder, err := config.NewStaticModerationConfigHolder(cfg)
	require.NoError(t, err)

	gate := New(holder)
	v := gate.Screen("lorem ipsum dolor")
	assert.False(t, v.Accepted)
	assert.Equal(t, ReasonDenylisted, v.Reason)

	assert.True(t, gate.Screen("this venue is a scam").Accepted)
}

func TestNilGateFallsBackToDefaults(t *testing.T) {
	var gate *Gate
	assert.False(t, gate.Screen("AAAAAAAAAA!!!").Accepted)
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"  hello world  ":                        "hello world",
		"<b>bold</b> move":                       "bold move",
		"<script>alert(1)</script>hi":            "hi",
		"<p></p>":                                "",
		"fish & chips":                           "fish &amp; chips",
		strings.Repeat(" ", 3) + "<i>x</i>   ":   "x",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestPrepare(t *testing.T) {
	got, err := Prepare("  <b>hi</b> there ", 20)
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)

	_, err = Prepare("   ", 20)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Prepare("<img src=x>", 20)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Prepare(strings.Repeat("é", 21), 20)
	assert.ErrorIs(t, err, ErrTooLong)

	got, err = Prepare(strings.Repeat("a", 19)+"&", 20)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 19)+"&amp;", got)

	got, err = Prepare(strings.Repeat("é", 20), 20)
	require.NoError(t, err)
	assert.Equal(t, 20, RuneLen(got))
}
