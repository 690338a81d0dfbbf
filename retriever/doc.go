// Package retriever runs IMAP searches and returns matching messages as
// text documents.
//
// Every call to Retrieve is a complete, independent cycle:
//
//  1. connect (implicit TLS, or plaintext upgraded with STARTTLS);
//  2. authenticate (LOGIN, or AUTHENTICATE XOAUTH2 with a bearer token);
//  3. EXAMINE the configured mailbox;
//  4. SEARCH with the caller's criteria, sent verbatim;
//  5. FETCH the full source of the first K matches, one at a time;
//  6. decode each message with package mailtext and render a Document;
//  7. LOGOUT.
//
// Nothing is cached between calls and nothing is retried. A failure at any
// step aborts the call and returns a *RetrievalError whose Kind names the
// failing stage; the underlying ConnectionError, AuthenticationError,
// QueryError, FetchError or ParseError is reachable with errors.As.
//
// # Queries
//
// Queries use IMAP SEARCH grammar and are interpreted by the server:
//
//	ALL
//	SUBJECT "URGENT"
//	SUBJECT "URGENT" NOT FROM "security@example.com"
//	SENTSINCE "1-Oct-2023"
//
// Date keys compare calendar dates only, as defined by the protocol.
//
// # Documents
//
// Document.PageContent looks like:
//
//	To: test@example.com
//	From: Alice <alice@example.com>
//	Subject: Team Meeting Notes
//	Date: 2023-09-25T09:30:00Z
//	Body: Notes from the weekly team meeting: ...
//
// HTML-only messages are rendered to Markdown. Attachments are listed after
// the body when Config.Attachments is names_only or full.
//
// Minimal example:
//
//	r, err := retriever.New(retriever.Config{
//		Host:     "imap.example.com",
//		User:     "me@example.com",
//		Password: os.Getenv("IMAP_PASSWORD"),
//	})
//	if err != nil { /* handle */ }
//	docs, err := r.Invoke(`FROM "alice@example.com"`)
//	if err != nil { /* handle */ }
package retriever
