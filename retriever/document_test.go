package retriever

import (
	"strings"
	"testing"
	"time"

	"github.com/nalgeon/be"

	"github.com/spachava753/imapretriever/mailtext"
)

func TestAssembleFieldOrder(t *testing.T) {
	msg := &mailtext.Message{
		MessageID:   "<m1@example.com>",
		Date:        time.Date(2023, 10, 2, 14, 0, 0, 0, time.UTC),
		From:        "Sender <sender@example.com>",
		FromAddress: "sender@example.com",
		To:          "test@example.com",
		Subject:     "Hello",
		TextBody:    "Body text",
	}
	doc := assemble(rawMessage{SeqNum: 1}, msg, mailtext.AttachmentsNone)

	be.Equal(t, doc.PageContent, strings.Join([]string{
		"To: test@example.com",
		"From: Sender <sender@example.com>",
		"Subject: Hello",
		"Date: 2023-10-02T14:00:00Z",
		"Body: Body text",
	}, "\n"))
	be.Equal(t, doc.Metadata, map[string]string{
		MetaMessageID: "<m1@example.com>",
		MetaDate:      "2023-10-02T14:00:00Z",
		MetaFrom:      "sender@example.com",
		MetaSubject:   "Hello",
		MetaTo:        "test@example.com",
	})
}

func TestAssembleAttachmentsSection(t *testing.T) {
	msg := &mailtext.Message{
		Subject:  "Report",
		TextBody: "See attached.",
		Attachments: []mailtext.Attachment{
			{Filename: "report.pdf", ContentType: "application/pdf", Size: 2048},
			{Filename: "data.csv", ContentType: "text/csv", Size: 12},
		},
	}

	doc := assemble(rawMessage{}, msg, mailtext.AttachmentsNamesOnly)
	be.True(t, strings.HasSuffix(doc.PageContent,
		"Body: See attached.\nAttachments:\n- report.pdf (application/pdf, 2.0 KB)\n- data.csv (text/csv, 12 B)"))
	be.Equal(t, len(doc.Attachments), 2)

	doc = assemble(rawMessage{}, msg, mailtext.AttachmentsNone)
	be.True(t, !strings.Contains(doc.PageContent, "Attachments:"))
	be.Equal(t, len(doc.Attachments), 0)

	msg.Attachments = nil
	doc = assemble(rawMessage{}, msg, mailtext.AttachmentsFull)
	be.True(t, !strings.Contains(doc.PageContent, "Attachments:"))
}

func TestAssembleDateFallback(t *testing.T) {
	internal := time.Date(2023, 9, 30, 23, 59, 0, 0, time.FixedZone("", 2*3600))
	doc := assemble(rawMessage{InternalDate: internal}, &mailtext.Message{}, mailtext.AttachmentsNone)
	be.Equal(t, doc.Metadata[MetaDate], "2023-09-30T23:59:00+02:00")

	doc = assemble(rawMessage{}, &mailtext.Message{}, mailtext.AttachmentsNone)
	be.Equal(t, doc.Metadata[MetaDate], "")
	_, ok := doc.Metadata[MetaMessageID]
	be.True(t, ok)
}

func TestFormatSize(t *testing.T) {
	be.Equal(t, formatSize(512), "512 B")
	be.Equal(t, formatSize(1536), "1.5 KB")
	be.Equal(t, formatSize(3*1024*1024), "3.0 MB")
}
