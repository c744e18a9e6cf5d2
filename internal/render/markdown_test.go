package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
	}{
		{"heading", "## 商業模式", []string{"<h2>商業模式</h2>"}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<th>a</th>", "<td>2</td>"}},
		{"fenced code", "```\nx := 1\n```", []string{"<pre><code>x := 1\n</code></pre>"}},
		{"hard wraps", "line one\nline two", []string{"line one<br>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Markdown(tt.input)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, string(out), want)
			}
		})
	}
}

func TestMarkdown_EscapesRawHTML(t *testing.T) {
	out, err := Markdown("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestMarkdown_Placeholder(t *testing.T) {
	out, err := Markdown("⚠️ API 錯誤: timeout")
	require.NoError(t, err)
	assert.Contains(t, string(out), "⚠️ API 錯誤: timeout")
}
