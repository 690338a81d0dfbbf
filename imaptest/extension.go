package imaptest

import (
	"errors"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/commands"
	"github.com/emersion/go-imap/server"
)

// ErrFetchRejected is the NO text sent for FETCH when Options.RejectFetch is set.
var ErrFetchRejected = errors.New("imaptest: fetch rejected")

// loginDisabled keeps advertising LOGINDISABLED after STARTTLS and refuses
// LOGIN, leaving AUTHENTICATE PLAIN as the only way in.
type loginDisabled struct{}

func (loginDisabled) Capabilities(c server.Conn) []string {
	if c.IsTLS() && c.Context().State == imap.NotAuthenticatedState {
		return []string{"LOGINDISABLED"}
	}
	return nil
}

func (loginDisabled) Command(name string) server.HandlerFactory {
	if name != "LOGIN" {
		return nil
	}
	return func() server.Handler { return &refusedLogin{} }
}

type refusedLogin struct {
	commands.Login
}

func (*refusedLogin) Handle(server.Conn) error {
	return server.ErrAuthDisabled
}

// fetchRejected answers every FETCH with NO.
type fetchRejected struct{}

func (fetchRejected) Capabilities(server.Conn) []string { return nil }

func (fetchRejected) Command(name string) server.HandlerFactory {
	if name != "FETCH" {
		return nil
	}
	return func() server.Handler { return &refusedFetch{} }
}

type refusedFetch struct {
	commands.Fetch
}

func (*refusedFetch) Handle(server.Conn) error {
	return ErrFetchRejected
}
