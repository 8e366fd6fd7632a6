package channel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shaharia-lab/angelia/internal/channel"
)

func TestComposeMail_UnparseableBodyUsesArgumentsAndRawBody(t *testing.T) {
	body := "CRITICAL web01 load 12.4\nsince 10:42"
	msg := channel.ComposeMail(channel.Notification{
		Recipient: "ops@example.com",
		Subject:   "web01 is down",
		Body:      body,
	}, "nagios@example.com")

	assert.False(t, msg.Parsed)
	assert.Equal(t, []string{"ops@example.com"}, msg.To)
	assert.Equal(t, "web01 is down", msg.Subject)
	assert.Equal(t, "nagios@example.com", msg.From)
	assert.Equal(t, body, msg.Body)
}

func TestComposeMail_StructuredBodyKeepsItsHeaders(t *testing.T) {
	body := "From: Alerts <alerts@example.com>\r\n" +
		"To: oncall@example.com\r\n" +
		"Subject: from template\r\n" +
		"X-Priority: 1\r\n" +
		"\r\n" +
		"disk full on db02\r\n"

	msg := channel.ComposeMail(channel.Notification{
		Recipient: "ops@example.com",
		Subject:   "argument subject",
		Body:      body,
	}, "nagios@example.com")

	assert.True(t, msg.Parsed)
	assert.Equal(t, []string{"oncall@example.com"}, msg.To)
	assert.Equal(t, "from template", msg.Subject)
	assert.Equal(t, `"Alerts" <alerts@example.com>`, msg.From)
	assert.Equal(t, "disk full on db02\r\n", msg.Body)
	assert.Equal(t, "1", msg.Headers["X-Priority"])
}

func TestComposeMail_StructuredBodyMissingHeadersAreFilled(t *testing.T) {
	body := "Subject: only a subject\n\nbody text\n"

	msg := channel.ComposeMail(channel.Notification{
		Recipient: "ops@example.com",
		Subject:   "argument subject",
		Body:      body,
	}, "nagios@example.com")

	assert.True(t, msg.Parsed)
	assert.Equal(t, []string{"ops@example.com"}, msg.To)
	assert.Equal(t, "only a subject", msg.Subject)
	assert.Equal(t, "nagios@example.com", msg.From)
	assert.Equal(t, "body text\n", msg.Body)
}

func TestComposeMail_EmptyStructuredBodyFallsBackToRaw(t *testing.T) {
	body := "Subject: headers only\n\n"

	msg := channel.ComposeMail(channel.Notification{Recipient: "ops@example.com", Body: body}, "")
	assert.Equal(t, "headers only", msg.Subject)
	assert.Equal(t, body, msg.Body)
}

func TestComposeMail_HeaderLookingTextWithoutKnownHeaders(t *testing.T) {
	body := "Host: web01\nState: DOWN\n\ncheck_ping timed out"

	msg := channel.ComposeMail(channel.Notification{
		Recipient: "ops@example.com",
		Subject:   "PROBLEM web01",
		Body:      body,
	}, "")

	assert.False(t, msg.Parsed)
	assert.Equal(t, "PROBLEM web01", msg.Subject)
	assert.Equal(t, body, msg.Body)
}

func TestComposeMail_EncodedSubjectIsDecoded(t *testing.T) {
	body := "Subject: =?UTF-8?Q?caf=C3=A9?=\n\nbody"
	msg := channel.ComposeMail(channel.Notification{Recipient: "a@example.com", Body: body}, "")
	assert.Equal(t, "café", msg.Subject)
}

func TestComposeMail_StructuredBodyRecipientsAndIdentity(t *testing.T) {
	body := "To: dba@example.com\nCc: Lead <lead@example.com>, dev@example.com\nBcc: secret@example.com\n" +
		"Message-ID: <abc@x>\nDate: Mon, 02 Jan 2006 15:04:05 +0000\nX-Alert-Id: 42\n\nlag\n"

	m := channel.ComposeMail(channel.Notification{Recipient: "ops@example.com", Body: body}, "")

	assert.Equal(t, []string{"lead@example.com", "dev@example.com"}, m.Cc)
	assert.Equal(t, []string{"secret@example.com"}, m.Bcc)
	assert.Equal(t, "abc@x", m.MessageID)
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC).Unix(), m.Date.Unix())
	assert.Equal(t, map[string]string{"X-Alert-Id": "42"}, m.Headers)
}
