package imaptest

import (
	"bytes"
	"errors"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-sasl"
)

// ErrBadToken is returned when a token login presents the wrong user or token.
var ErrBadToken = errors.New("imaptest: invalid token")

func (s *Server) oauthServer(conn server.Conn) sasl.Server {
	login := func(username, token string) error {
		if username != s.opts.Username || token != s.opts.OAuthToken {
			return ErrBadToken
		}
		user, err := s.imap.Backend.Login(conn.Info(), s.opts.Username, s.opts.Password)
		if err != nil {
			return err
		}
		ctx := conn.Context()
		ctx.State = imap.AuthenticatedState
		ctx.User = user
		return nil
	}

	if strings.EqualFold(s.opts.OAuthMechanism, sasl.OAuthBearer) {
		return sasl.NewOAuthBearerServer(func(opts sasl.OAuthBearerOptions) *sasl.OAuthBearerError {
			if err := login(opts.Username, opts.Token); err != nil {
				return &sasl.OAuthBearerError{Status: "invalid_token", Schemes: "bearer"}
			}
			return nil
		})
	}
	return &xoauth2Server{login: login}
}

// xoauth2Server accepts "user=<u>\x01auth=Bearer <token>\x01\x01".
type xoauth2Server struct {
	login func(username, token string) error
}

func (x *xoauth2Server) Next(response []byte) ([]byte, bool, error) {
	if response == nil {
		return []byte{}, false, nil
	}
	var username, token string
	for _, field := range bytes.Split(response, []byte{0x01}) {
		k, v, ok := strings.Cut(string(field), "=")
		if !ok {
			continue
		}
		switch k {
		case "user":
			username = v
		case "auth":
			token = strings.TrimPrefix(v, "Bearer ")
		}
	}
	if err := x.login(username, token); err != nil {
		return nil, true, err
	}
	return nil, true, nil
}
