package imaptest

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
)

const (
	// DefaultUser is the login name used when Options.Username is empty.
	DefaultUser = "test@example.com"
	// DefaultPass is the password used when Options.Password is empty.
	DefaultPass = "secret"

	// memoryUser and memoryPass are the fixed credentials of the memory backend.
	memoryUser = "username"
	memoryPass = "password"
)

// ErrBadCredentials is returned to clients presenting the wrong credentials.
var ErrBadCredentials = errors.New("imaptest: invalid credentials")

// Security selects how the listener protects the connection.
type Security string

const (
	// SecurityPlain accepts unencrypted logins.
	SecurityPlain Security = "plain"
	// SecurityStartTLS advertises STARTTLS and refuses logins before the upgrade.
	SecurityStartTLS Security = "starttls"
	// SecurityTLS wraps the listener in TLS.
	SecurityTLS Security = "ssl"
)

// Options configures Start.
type Options struct {
	Security Security
	Username string
	Password string

	// OAuthToken enables token authentication with OAuthMechanism
	// ("XOAUTH2" when empty, or "OAUTHBEARER").
	OAuthToken     string
	OAuthMechanism string

	// LoginDisabled refuses LOGIN on encrypted connections and advertises
	// LOGINDISABLED next to AUTH=PLAIN.
	LoginDisabled bool
	// RejectFetch answers every FETCH with NO.
	RejectFetch bool
}

// Server is a running test server. It is closed by t.Cleanup.
type Server struct {
	Host     string
	Port     int
	Username string
	Password string

	opts   Options
	imap   *server.Server
	inbox  *memory.Mailbox
	mu     sync.Mutex
	smtp   *smtpEndpoint
	closed bool
}

// Start launches a server on an ephemeral loopback port.
func Start(t testing.TB, opts Options) *Server {
	t.Helper()
	if opts.Security == "" {
		opts.Security = SecurityPlain
	}
	if opts.Username == "" {
		opts.Username = DefaultUser
	}
	if opts.Password == "" {
		opts.Password = DefaultPass
	}
	if opts.OAuthMechanism == "" {
		opts.OAuthMechanism = "XOAUTH2"
	}

	mem := memory.New()
	user, err := mem.Login(nil, memoryUser, memoryPass)
	if err != nil {
		t.Fatalf("imaptest: memory backend login failed: %v", err)
	}
	mbox, err := user.GetMailbox("INBOX")
	if err != nil {
		t.Fatalf("imaptest: memory backend has no INBOX: %v", err)
	}
	inbox := mbox.(*memory.Mailbox)
	inbox.Messages = nil

	s := &Server{
		Username: opts.Username,
		Password: opts.Password,
		opts:     opts,
		inbox:    inbox,
	}

	srv := server.New(&credentialBackend{user: user, username: opts.Username, password: opts.Password})
	srv.AllowInsecureAuth = opts.Security == SecurityPlain
	srv.ErrorLog = log.New(io.Discard, "", 0)
	if opts.OAuthToken != "" {
		srv.EnableAuth(opts.OAuthMechanism, s.oauthServer)
	}
	if opts.LoginDisabled {
		srv.Enable(loginDisabled{})
	}
	if opts.RejectFetch {
		srv.Enable(fetchRejected{})
	}

	var l net.Listener
	l, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("imaptest: listen failed: %v", err)
	}
	if opts.Security != SecurityPlain {
		cert, err := selfSignedCertificate()
		if err != nil {
			t.Fatalf("imaptest: certificate failed: %v", err)
		}
		tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}}
		if opts.Security == SecurityTLS {
			l = tls.NewListener(l, tlsConfig)
		} else {
			srv.TLSConfig = tlsConfig
		}
	}
	s.imap = srv

	host, port, err := net.SplitHostPort(l.Addr().String())
	if err != nil {
		t.Fatalf("imaptest: bad listener address: %v", err)
	}
	s.Host = host
	s.Port, _ = strconv.Atoi(port)

	go func() {
		_ = srv.Serve(l)
	}()
	t.Cleanup(s.close)
	return s
}

// Addr returns host:port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Append stores a raw message in INBOX with the given internal date.
func (s *Server) Append(raw []byte, date time.Time) error {
	if date.IsZero() {
		date = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.inbox.CreateMessage(nil, date, bytes.NewBuffer(raw)); err != nil {
		return fmt.Errorf("imaptest: append failed: %w", err)
	}
	return nil
}

// Len returns the number of messages in INBOX.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inbox.Messages)
}

// OpenConns returns the number of client connections the server still holds.
func (s *Server) OpenConns() int {
	n := 0
	s.imap.ForEachConn(func(server.Conn) { n++ })
	return n
}

// WaitReleased fails t unless every client connection is gone within timeout.
func (s *Server) WaitReleased(t testing.TB, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for s.OpenConns() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("imaptest: %d connection(s) still open after %v", s.OpenConns(), timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *Server) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	endpoint := s.smtp
	s.mu.Unlock()

	if endpoint != nil {
		_ = endpoint.server.Close()
	}
	_ = s.imap.Close()
}

// credentialBackend swaps the memory backend's fixed credentials for the
// configured ones.
type credentialBackend struct {
	user     backend.User
	username string
	password string
}

func (b *credentialBackend) Login(_ *imap.ConnInfo, username, password string) (backend.User, error) {
	if username != b.username || password != b.password {
		return nil, ErrBadCredentials
	}
	return b.user, nil
}
