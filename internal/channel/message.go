package channel

import (
	"io"
	"mime"
	"net/mail"
	"strings"
	"time"
)

// MailMessage is an email ready to be handed to a mail transport.
type MailMessage struct {
	From string
	To   []string
	Cc   []string
	// Bcc recipients receive the message but must not appear in its headers.
	Bcc     []string
	Subject string
	Body    string
	// MessageID is the identifier without angle brackets, empty when unset.
	MessageID string
	// Date is zero when the body carries no parseable Date header.
	Date time.Time
	// Headers holds any other headers carried by a structured body.
	Headers map[string]string
	// Parsed reports whether the body was a structured message.
	Parsed bool
}

// ComposeMail builds the outbound email for n.
//
// The body is first parsed as an RFC 5322 message. When that succeeds and the
// message carries at least one addressing or subject header, its headers are
// kept and only missing ones are filled from n and from. Otherwise the raw
// body is used verbatim as the content of a minimal message addressed to
// n.Recipient with n.Subject. A structured message with an empty body also
// falls back to the raw body as content.
func ComposeMail(n Notification, from string) MailMessage {
	msg, ok := parseStructured(n.Body)
	if !ok {
		msg = MailMessage{Body: n.Body}
	}

	if len(msg.To) == 0 && n.Recipient != "" {
		msg.To = []string{n.Recipient}
	}
	if msg.Subject == "" {
		msg.Subject = n.Subject
	}
	if msg.From == "" {
		msg.From = from
	}
	if strings.TrimSpace(msg.Body) == "" {
		msg.Body = n.Body
	}
	return msg
}

var structuredHeaders = []string{"To", "Subject", "From"}

func parseStructured(raw string) (MailMessage, bool) {
	m, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return MailMessage{}, false
	}

	recognised := false
	for _, h := range structuredHeaders {
		if m.Header.Get(h) != "" {
			recognised = true
			break
		}
	}
	if !recognised {
		return MailMessage{}, false
	}

	body, err := io.ReadAll(m.Body)
	if err != nil {
		return MailMessage{}, false
	}

	out := MailMessage{
		Subject: decodeHeader(m.Header.Get("Subject")),
		Body:    string(body),
		Headers: make(map[string]string),
		Parsed:  true,
	}
	if from, err := m.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = from[0].String()
	}
	out.To = addresses(m.Header, "To")
	out.Cc = addresses(m.Header, "Cc")
	out.Bcc = addresses(m.Header, "Bcc")
	out.MessageID = strings.Trim(strings.TrimSpace(m.Header.Get("Message-Id")), "<>")
	if d, err := m.Header.Date(); err == nil {
		out.Date = d
	}
	for k := range m.Header {
		if addressingHeader(k) {
			continue
		}
		out.Headers[k] = m.Header.Get(k)
	}
	return out, true
}

// addressingHeader reports whether k is carried by a dedicated MailMessage
// field. Keys are in canonical MIME form.
func addressingHeader(k string) bool {
	switch k {
	case "To", "Cc", "Bcc", "Subject", "From", "Message-Id", "Date":
		return true
	}
	return false
}

func addresses(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}

func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	s, err := dec.DecodeHeader(v)
	if err != nil {
		return v
	}
	return s
}
