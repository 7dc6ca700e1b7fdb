package ui

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a, b ,,c", []string{"a", "b", "c"}},
		{"", []string{}},
		{" , ,", []string{}},
		{"-1001234567890", []string{"-1001234567890"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := splitList(tt.in)
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeStripsTerminalControl(t *testing.T) {
	assert.Equal(t, "[31mred[0m", sanitize("\x1b[31mred\x1b[0m"))
	assert.Equal(t, "a\nb c", sanitize("a\nb\tc\r"))
	assert.Equal(t, "a b", sanitizeLine("a\nb"))
	assert.Equal(t, "<script>alert(1)</script>", sanitize("<script>alert(1)</script>"), "markup is shown literally")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, "0.35", formatValue(0.35))
	assert.Equal(t, "true", formatValue(true))
	assert.Equal(t, `["a","b"]`, formatValue([]any{"a", "b"}))
	assert.Equal(t, "x y", formatValue("x\ny"))
}

func TestJSONRendering(t *testing.T) {
	raw := json.RawMessage(`{"a":1,"b":[1,2]}`)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    1,\n    2\n  ]\n}", prettyJSON(raw))
	assert.Equal(t, `{"a":1,"b":[1,2]}`, compactJSON(json.RawMessage("{ \"a\": 1, \"b\": [1, 2] }")))
	assert.Equal(t, "{}", prettyJSON(nil))
	assert.Equal(t, "not json", prettyJSON(json.RawMessage("not json")))
}

func TestWrapTextBreaksLongWords(t *testing.T) {
	out := wrapText("short words then averyveryverylongword", 10)
	for _, line := range splitLines(out) {
		assert.LessOrEqual(t, len(line), 10)
	}
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
