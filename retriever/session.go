package retriever

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"go.uber.org/zap"
)

const (
	mechanismLogin   = "LOGIN"
	mechanismXOAuth2 = "XOAUTH2"
)

// dial opens the connection and, outside ssl mode, upgrades it with STARTTLS.
// The returned client is ready for authentication. On failure the socket is
// closed before dial returns.
func dial(cfg Config, log *zap.Logger) (*client.Client, error) {
	addr := serverAddr(cfg)
	tlsConfig := &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	c, err := greet(cfg, addr, tlsConfig)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	c.Timeout = cfg.Timeout
	c.ErrorLog = zap.NewStdLog(log)

	if cfg.Security == SecuritySSL {
		return c, nil
	}

	ok, err := c.SupportStartTLS()
	if err != nil {
		c.Terminate()
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	if !ok {
		c.Terminate()
		return nil, &ConnectionError{Addr: addr, Err: ErrStartTLSUnsupported}
	}
	if err := c.StartTLS(tlsConfig); err != nil {
		c.Terminate()
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	return c, nil
}

// greet dials addr and waits for the server greeting, all within
// cfg.Timeout. client.DialWithDialer drops the socket without closing it
// when the greeting fails, so the connection is set up here instead.
func greet(cfg Config, addr string, tlsConfig *tls.Config) (*client.Client, error) {
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	if err := conn.SetDeadline(time.Now().Add(cfg.Timeout)); err != nil {
		conn.Close()
		return nil, err
	}
	if cfg.Security == SecuritySSL {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			conn.Close()
			return nil, err
		}
		conn = tlsConn
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		c.Terminate()
		return nil, err
	}
	return c, nil
}

func serverAddr(cfg Config) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func authenticate(c *client.Client, cfg Config) error {
	if cfg.Auth == AuthOAuth2 {
		return authenticateToken(c, cfg)
	}

	disabled, err := c.Support("LOGINDISABLED")
	if err != nil {
		return &ConnectionError{Addr: serverAddr(cfg), Err: err}
	}
	if disabled {
		ok, err := c.SupportAuth(sasl.Plain)
		if err != nil {
			return &ConnectionError{Addr: serverAddr(cfg), Err: err}
		}
		if ok {
			if err := c.Authenticate(sasl.NewPlainClient("", cfg.User, cfg.Password)); err != nil {
				return &AuthenticationError{Mechanism: sasl.Plain, Err: err}
			}
			return nil
		}
	}
	if err := c.Login(cfg.User, cfg.Password); err != nil {
		return &AuthenticationError{Mechanism: mechanismLogin, Err: err}
	}
	return nil
}

// authenticateToken prefers XOAUTH2 and falls back to OAUTHBEARER when that
// is the only token mechanism the server offers.
func authenticateToken(c *client.Client, cfg Config) error {
	var auth sasl.Client = &xoauth2Client{user: cfg.User, token: cfg.Password}
	mechanism := mechanismXOAuth2

	xoauth2, err := c.SupportAuth(mechanismXOAuth2)
	if err != nil {
		return &ConnectionError{Addr: serverAddr(cfg), Err: err}
	}
	bearer, err := c.SupportAuth(sasl.OAuthBearer)
	if err != nil {
		return &ConnectionError{Addr: serverAddr(cfg), Err: err}
	}
	if !xoauth2 && bearer {
		auth = sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: cfg.User,
			Token:    cfg.Password,
			Host:     cfg.Host,
			Port:     cfg.Port,
		})
		mechanism = sasl.OAuthBearer
	}

	if err := c.Authenticate(auth); err != nil {
		return &AuthenticationError{Mechanism: mechanism, Err: err}
	}
	return nil
}

// xoauth2Client implements the XOAUTH2 mechanism, which go-sasl does not ship.
type xoauth2Client struct {
	user  string
	token string
}

func (a *xoauth2Client) Start() (string, []byte, error) {
	ir := "user=" + a.user + "\x01auth=Bearer " + a.token + "\x01\x01"
	return mechanismXOAuth2, []byte(ir), nil
}

// Next answers the server's error challenge with an empty response so the
// server can complete the exchange with a tagged NO.
func (a *xoauth2Client) Next(challenge []byte) ([]byte, error) {
	return []byte{}, nil
}

func selectMailbox(c *client.Client, mailbox string) error {
	if _, err := c.Select(mailbox, true); err != nil {
		return &QueryError{Op: OpSelect, Mailbox: mailbox, Err: err}
	}
	return nil
}
