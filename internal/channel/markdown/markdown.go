// Package markdown renders notification bodies written in Markdown into the
// HTML dialects accepted by the channels.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Format values accepted by the "format" channel option.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// emailPolicy allows the formatting a mail client is expected to render.
var emailPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements(
		"p", "br", "hr",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "b", "em", "i", "del", "s",
		"ul", "ol", "li",
		"code", "pre", "blockquote",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	return p
}()

// telegramPolicy keeps the subset of tags the Telegram Bot API understands.
var telegramPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowElements("b", "strong", "i", "em", "u", "s", "del", "code", "pre", "blockquote")
	p.AllowAttrs("href").OnElements("a")
	return p
}()

// ToHTML renders src as sanitized HTML suitable for an email body.
func ToHTML(src string) (string, error) {
	out, err := convert(src)
	if err != nil {
		return "", err
	}
	return emailPolicy.Sanitize(out), nil
}

// ToTelegramHTML renders src for Telegram's HTML parse mode. Block elements
// the API rejects are dropped and only their text is kept.
func ToTelegramHTML(src string) (string, error) {
	out, err := convert(src)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(telegramPolicy.Sanitize(out)), nil
}

func convert(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}
