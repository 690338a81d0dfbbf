package imaptest

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-smtp"
)

type smtpEndpoint struct {
	server *smtp.Server
	addr   string
}

// Deliver sends a message through the server's SMTP endpoint, which stores
// every accepted message in INBOX. The endpoint starts on first use.
func (s *Server) Deliver(from string, to []string, raw []byte) error {
	addr, err := s.smtpAddr()
	if err != nil {
		return err
	}
	c, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("imaptest: SMTP dial failed: %w", err)
	}
	defer c.Close()
	if err := c.SendMail(from, to, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("imaptest: SMTP send failed: %w", err)
	}
	return c.Quit()
}

func (s *Server) smtpAddr() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("imaptest: server closed")
	}
	if s.smtp != nil {
		return s.smtp.addr, nil
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("imaptest: SMTP listen failed: %w", err)
	}
	srv := smtp.NewServer(&deliveryBackend{store: s})
	srv.Domain = "localhost"
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.MaxMessageBytes = 10 * 1024 * 1024
	go func() {
		_ = srv.Serve(l)
	}()
	s.smtp = &smtpEndpoint{server: srv, addr: l.Addr().String()}
	return s.smtp.addr, nil
}

type deliveryBackend struct {
	store *Server
}

func (b *deliveryBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &deliverySession{store: b.store}, nil
}

type deliverySession struct {
	store *Server
	from  string
	rcpts []string
}

func (s *deliverySession) Mail(from string, _ *smtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *deliverySession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.rcpts = append(s.rcpts, to)
	return nil
}

func (s *deliverySession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.store.Append(raw, time.Now())
}

func (s *deliverySession) Reset() {
	s.from = ""
	s.rcpts = nil
}

func (s *deliverySession) Logout() error {
	return nil
}
