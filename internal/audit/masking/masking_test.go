package masking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskJSON(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := MaskJSON(map[string]any{
		"content": "hello there",
		"reason":  "spam",
		"note":    long,
		"":        "dropped",
		"nested":  map[string]any{"Description": "secret"},
		"seq":     int64(7),
	})

	assert.Equal(t, "****(11 chars)", got["content"])
	assert.Equal(t, "spam", got["reason"])
	assert.Equal(t, strings.Repeat("x", 256)+"...", got["note"])
	assert.Equal(t, map[string]any{"Description": "****(6 chars)"}, got["nested"])
	assert.Equal(t, int64(7), got["seq"])
	assert.NotContains(t, got, "")
}

func TestMaskJSONEmpty(t *testing.T) {
	assert.Nil(t, MaskJSON(nil))
	assert.Nil(t, MaskJSON(map[string]any{" ": "x"}))
	assert.Equal(t, "", MaskText("   "))
}
