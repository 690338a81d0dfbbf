// Package mailtext turns raw RFC 822 messages into readable text.
//
// Parse decodes headers (including RFC 2047 encoded words and non-UTF-8
// charsets), walks the MIME tree and picks a single body:
//
//   - a text/plain part when one exists;
//   - otherwise the text/html part, rendered to Markdown by a Converter.
//
// multipart/alternative chooses among its alternatives. Every other multipart
// concatenates its readable leaves in order. Parts marked with
// Content-Disposition: attachment never contribute to the body; they are
// reported as Attachment values according to AttachmentMode.
//
// Example:
//
//	msg, err := mailtext.Parse(raw, mailtext.Options{
//		Attachments: mailtext.AttachmentsNamesOnly,
//	})
//	if err != nil { /* handle */ }
//	fmt.Println(msg.Subject, msg.TextBody)
package mailtext
