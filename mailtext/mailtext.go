package mailtext

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// AttachmentMode controls how attachment parts are reported.
type AttachmentMode string

const (
	// AttachmentsNone omits attachments entirely.
	AttachmentsNone AttachmentMode = "none"
	// AttachmentsNamesOnly reports filename, content type and size.
	AttachmentsNamesOnly AttachmentMode = "names_only"
	// AttachmentsFull also carries the decoded content.
	AttachmentsFull AttachmentMode = "full"
)

// ParseAttachmentMode validates a mode name. The empty string maps to
// AttachmentsNone.
func ParseAttachmentMode(s string) (AttachmentMode, error) {
	switch mode := AttachmentMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case "":
		return AttachmentsNone, nil
	case AttachmentsNone, AttachmentsNamesOnly, AttachmentsFull:
		return mode, nil
	default:
		return "", fmt.Errorf("mailtext: unsupported attachment mode %q", s)
	}
}

// Options controls Parse.
//
// A nil Convert uses Markdown.
type Options struct {
	Attachments AttachmentMode
	Convert     Converter
}

// Attachment describes one attachment part. Content is only set in
// AttachmentsFull mode.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Content     []byte `json:"content,omitempty"`
}

// Message is a decoded message.
//
// TextBody is the plain text body when one exists, otherwise the Markdown
// rendering of HTMLBody. Both are empty when the message has no readable body.
// Date is zero when the Date header is missing or malformed.
type Message struct {
	MessageID   string
	Date        time.Time
	From        string
	FromAddress string
	To          string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
	Body        Part

	header mail.Header
}

// Header returns the decoded value of any header, matched case-insensitively.
func (m *Message) Header(key string) string {
	v, err := m.header.Text(key)
	if err != nil {
		return m.header.Get(key)
	}
	return v
}

// Parse decodes a raw RFC 822 message.
func Parse(raw []byte, opts Options) (*Message, error) {
	e, err := readEntity(raw)
	if err != nil {
		return nil, err
	}

	h := mail.Header{Header: e.Header}
	msg := &Message{
		MessageID: strings.TrimSpace(h.Get("Message-Id")),
		header:    h,
	}
	msg.Subject, err = h.Subject()
	if err != nil {
		msg.Subject = h.Get("Subject")
	}
	msg.From = msg.Header("From")
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromAddress = from[0].Address
	} else {
		msg.FromAddress = strings.TrimSpace(msg.From)
	}
	msg.To = msg.Header("To")
	if date, err := h.Date(); err == nil {
		msg.Date = date
	}

	msg.Body, err = readPart(e, 0)
	if err != nil {
		return nil, err
	}

	text, html := resolve(msg.Body)
	msg.HTMLBody = html
	msg.TextBody = strings.TrimSpace(text)
	if msg.TextBody == "" && strings.TrimSpace(html) != "" {
		convert := opts.Convert
		if convert == nil {
			convert = Markdown
		}
		msg.TextBody, err = convert(html)
		if err != nil {
			return nil, err
		}
	}

	if opts.Attachments == AttachmentsNamesOnly || opts.Attachments == AttachmentsFull {
		msg.Attachments = collectAttachments(msg.Body, opts.Attachments, nil)
	}
	return msg, nil
}

func readEntity(raw []byte) (*message.Entity, error) {
	e, err := message.Read(bytes.NewReader(raw))
	if err != nil && !tolerable(err) {
		return nil, fmt.Errorf("mailtext: reading message failed: %w", err)
	}
	return e, nil
}

// tolerable reports whether err leaves the entity readable with its body
// left undecoded.
func tolerable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
