package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML("# Disk full\n\n**/var** is at 98%\n\n- db01\n- db02\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Disk full</h1>")
	assert.Contains(t, out, "<strong>/var</strong>")
	assert.Contains(t, out, "<li>db01</li>")
}

func TestToHTML_StripsScripts(t *testing.T) {
	out, err := ToHTML("hello <script>alert(1)</script>\n\n[x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "javascript:")
	assert.Contains(t, out, "hello")
}

func TestToTelegramHTML(t *testing.T) {
	out, err := ToTelegramHTML("# Title\n\n**bold** and `code`")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
	assert.NotContains(t, out, "<h1>")
	assert.NotContains(t, out, "<p>")
	assert.Contains(t, out, "Title")
}
