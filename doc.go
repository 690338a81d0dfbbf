// Package imapretriever is a lightweight index for the packages in this module.
//
// This root package is documentation-only. Import specific subpackages to use
// concrete helpers.
//
// Available packages:
//   - github.com/spachava753/imapretriever/retriever
//     Run an IMAP SEARCH and get the matching messages as text documents.
//   - github.com/spachava753/imapretriever/mailtext
//     Decode raw RFC 822 messages into headers, a readable body and attachments.
//   - github.com/spachava753/imapretriever/imaptest
//     In-process IMAP server (plus SMTP delivery) for tests.
//   - github.com/spachava753/imapretriever/cmd/imapretriever
//     Command line front end.
//
// Discovery workflow:
//   - Run: go doc github.com/spachava753/imapretriever
//   - Then drill in with:
//     go doc github.com/spachava753/imapretriever/retriever
//     go doc github.com/spachava753/imapretriever/mailtext
package imapretriever
