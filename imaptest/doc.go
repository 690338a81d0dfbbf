// Package imaptest runs an in-process IMAP server for tests.
//
// The server is backed by the go-imap memory backend with configurable
// credentials, and can listen in plaintext, STARTTLS or implicit TLS mode
// using an ephemeral self-signed certificate. Messages are loaded directly
// (Append), from an mbox archive (LoadMbox) or through a companion SMTP
// endpoint (Deliver).
//
//	srv := imaptest.Start(t, imaptest.Options{Security: imaptest.SecurityTLS})
//	f, _ := os.Open("testdata/inbox.mbox")
//	be.Err(t, srv.LoadMbox(f), nil)
package imaptest
