package retriever

import (
	"fmt"
	"strings"
	"time"

	"github.com/spachava753/imapretriever/mailtext"
)

// Metadata keys always present on a Document.
const (
	MetaMessageID = "message_id"
	MetaDate      = "date"
	MetaFrom      = "from"
	MetaSubject   = "subject"
	MetaTo        = "to"
)

// Document is one retrieved message.
//
// PageContent renders To, From, Subject, Date and Body in that order,
// followed by an Attachments section only when attachments were found and
// the attachment mode is not none. Metadata["date"] is RFC 3339 and
// Metadata["from"] is the bare address of the first sender.
type Document struct {
	PageContent string                `json:"page_content"`
	Metadata    map[string]string     `json:"metadata"`
	Attachments []mailtext.Attachment `json:"attachments,omitempty"`
}

func assemble(raw rawMessage, msg *mailtext.Message, mode mailtext.AttachmentMode) Document {
	date := msg.Date
	if date.IsZero() {
		date = raw.InternalDate
	}
	dateText := ""
	if !date.IsZero() {
		dateText = date.Format(time.RFC3339)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\n", msg.To)
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(&b, "Date: %s\n", dateText)
	fmt.Fprintf(&b, "Body: %s\n", msg.TextBody)

	doc := Document{
		Metadata: map[string]string{
			MetaMessageID: msg.MessageID,
			MetaDate:      dateText,
			MetaFrom:      msg.FromAddress,
			MetaSubject:   msg.Subject,
			MetaTo:        msg.To,
		},
	}
	if mode != mailtext.AttachmentsNone && len(msg.Attachments) > 0 {
		b.WriteString("Attachments:\n")
		for _, a := range msg.Attachments {
			fmt.Fprintf(&b, "- %s (%s, %s)\n", a.Filename, a.ContentType, formatSize(a.Size))
		}
		doc.Attachments = msg.Attachments
	}
	doc.PageContent = strings.TrimRight(b.String(), "\n")
	return doc
}

func formatSize(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
