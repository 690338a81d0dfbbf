package retriever

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/nalgeon/be"
)

const (
	liveTestFlagEnv = "IMAPRETRIEVER_LIVE_TEST"
	liveHostEnv     = "IMAP_HOST"
	liveUserEnv     = "IMAP_USER"
	livePasswordEnv = "IMAP_PASSWORD"
	liveSMTPEnv     = "SMTP_ADDRESS"
	pollInterval    = 5 * time.Second
	deliveryWindow  = 2 * time.Minute
)

func TestLiveRoundTrip(t *testing.T) {
	if os.Getenv(liveTestFlagEnv) != "1" {
		t.Skipf("set %s=1 to run live IMAP integration tests", liveTestFlagEnv)
	}

	host := strings.TrimSpace(os.Getenv(liveHostEnv))
	user := strings.TrimSpace(os.Getenv(liveUserEnv))
	password := strings.TrimSpace(os.Getenv(livePasswordEnv))
	smtpAddr := strings.TrimSpace(os.Getenv(liveSMTPEnv))
	if host == "" || user == "" || password == "" || smtpAddr == "" {
		t.Skipf("set %s, %s, %s and %s to run live IMAP integration tests", liveHostEnv, liveUserEnv, livePasswordEnv, liveSMTPEnv)
	}

	subject := fmt.Sprintf("imapretriever live test %d", time.Now().UnixNano())
	be.Err(t, sendLive(smtpAddr, user, password, subject), nil)

	r, err := New(Config{Host: host, User: user, Password: password, K: 5})
	be.Err(t, err, nil)

	query := "SUBJECT " + strconv.Quote(subject)
	deadline := time.Now().Add(deliveryWindow)
	for {
		docs, err := r.Invoke(query)
		be.Err(t, err, nil)
		if len(docs) == 1 {
			be.Equal(t, docs[0].Metadata[MetaSubject], subject)
			be.True(t, strings.Contains(docs[0].PageContent, "live body"))
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("message %q not delivered within %s", subject, deliveryWindow)
		}
		time.Sleep(pollInterval)
	}
}

func sendLive(addr, user, password, subject string) error {
	host := addr
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		host = addr[:i]
	}
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("SMTP TLS dial failed: %w", err)
	}
	c := smtp.NewClient(conn)
	defer c.Close()
	if err := c.Auth(sasl.NewPlainClient("", user, password)); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\n\r\nlive body\r\n",
		user, user, subject, time.Now().Format(time.RFC1123Z))
	if err := c.SendMail(user, []string{user}, strings.NewReader(msg)); err != nil {
		return fmt.Errorf("SMTP send failed: %w", err)
	}
	return c.Quit()
}
