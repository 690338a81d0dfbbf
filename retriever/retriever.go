package retriever

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/spachava753/imapretriever/mailtext"
)

const (
	defaultMailbox = "INBOX"
	defaultK       = 10
	defaultTimeout = 30 * time.Second

	defaultTLSPort   = 993
	defaultPlainPort = 143
)

// SecurityMode selects how the connection is protected.
type SecurityMode string

const (
	// SecurityPlain connects unencrypted and upgrades with STARTTLS before
	// authenticating.
	SecurityPlain SecurityMode = "plain"
	// SecurityStartTLS is an explicit alias of SecurityPlain.
	SecurityStartTLS SecurityMode = "starttls"
	// SecuritySSL negotiates TLS immediately on connect.
	SecuritySSL SecurityMode = "ssl"
)

// AuthMethod selects the login command.
type AuthMethod string

const (
	// AuthLogin sends LOGIN with the password.
	AuthLogin AuthMethod = "login"
	// AuthOAuth2 sends AUTHENTICATE XOAUTH2 with Password as the bearer token.
	AuthOAuth2 AuthMethod = "oauth2"
)

// Config describes one mail account and how to query it.
//
// Zero values are replaced by defaults in New: Security ssl, Auth login,
// Mailbox INBOX, Attachments none, K 10, Timeout 30s and Port 993 for ssl or
// 143 otherwise.
//
// InsecureSkipVerify disables certificate chain and hostname validation. It
// is meant for test servers with self-signed certificates.
//
// Example:
//
//	cfg := retriever.Config{
//		Host:     "imap.example.com",
//		User:     "me@example.com",
//		Password: os.Getenv("IMAP_PASSWORD"),
//		K:        25,
//	}
type Config struct {
	Host     string
	Port     int
	User     string
	Password string

	Security           SecurityMode
	Auth               AuthMethod
	InsecureSkipVerify bool

	Mailbox     string
	Attachments mailtext.AttachmentMode
	K           int
	Timeout     time.Duration
}

var (
	ErrMissingHost = errors.New("retriever: host is required")
	ErrMissingUser = errors.New("retriever: user is required")
)

func (c Config) withDefaults() (Config, error) {
	c.Host = strings.TrimSpace(c.Host)
	if c.Host == "" {
		return c, ErrMissingHost
	}
	if c.User == "" {
		return c, ErrMissingUser
	}

	switch SecurityMode(strings.ToLower(string(c.Security))) {
	case "":
		c.Security = SecuritySSL
	case SecurityPlain, SecurityStartTLS, SecuritySSL:
		c.Security = SecurityMode(strings.ToLower(string(c.Security)))
	default:
		return c, fmt.Errorf("retriever: unsupported security mode %q", c.Security)
	}
	switch AuthMethod(strings.ToLower(string(c.Auth))) {
	case "":
		c.Auth = AuthLogin
	case AuthLogin, AuthOAuth2:
		c.Auth = AuthMethod(strings.ToLower(string(c.Auth)))
	default:
		return c, fmt.Errorf("retriever: unsupported auth method %q", c.Auth)
	}

	mode, err := mailtext.ParseAttachmentMode(string(c.Attachments))
	if err != nil {
		return c, err
	}
	c.Attachments = mode

	if c.Port < 0 || c.Port > 65535 {
		return c, fmt.Errorf("retriever: invalid port %d", c.Port)
	}
	if c.Port == 0 {
		c.Port = defaultPlainPort
		if c.Security == SecuritySSL {
			c.Port = defaultTLSPort
		}
	}
	if c.Mailbox == "" {
		c.Mailbox = defaultMailbox
	}
	if c.K < 0 {
		return c, fmt.Errorf("retriever: invalid result cap %d", c.K)
	}
	if c.K == 0 {
		c.K = defaultK
	}
	if c.Timeout < 0 {
		return c, fmt.Errorf("retriever: invalid timeout %s", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return c, nil
}

// Option customizes a Retriever.
type Option func(*Retriever)

// WithLogger sets the logger. Protocol-level errors from the IMAP client are
// routed to it as well.
func WithLogger(log *zap.Logger) Option {
	return func(r *Retriever) {
		if log != nil {
			r.log = log
		}
	}
}

// WithConverter replaces the HTML to Markdown converter.
func WithConverter(convert mailtext.Converter) Option {
	return func(r *Retriever) {
		if convert != nil {
			r.convert = convert
		}
	}
}

// Retriever runs IMAP searches and returns the matching messages as
// Documents. It is immutable and safe for concurrent use; every call opens
// and closes its own connection.
type Retriever struct {
	cfg     Config
	log     *zap.Logger
	convert mailtext.Converter
}

// New validates cfg, applies defaults and returns a Retriever.
func New(cfg Config, opts ...Option) (*Retriever, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}
	r := &Retriever{
		cfg:     cfg,
		log:     zap.NewNop(),
		convert: mailtext.Markdown,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Config returns the effective configuration.
func (r *Retriever) Config() Config {
	return r.cfg
}

// RetrieveInput is one search request.
//
// Query is sent to the server verbatim as IMAP SEARCH criteria, for example
// `ALL`, `SUBJECT "invoice"`, `FROM "a@example.com" NOT FROM "b@example.com"`
// or `SENTSINCE "1-Oct-2023"`. Limit overrides Config.K when greater than zero.
type RetrieveInput struct {
	Query string
	Limit int
}

// RetrieveOutput holds the documents in server order.
type RetrieveOutput struct {
	Documents []Document
}

// Retrieve connects, authenticates, searches, fetches up to the result cap and
// disconnects. Any failure aborts the whole call with a *RetrievalError; the
// connection is closed before the error is returned.
//
// Example:
//
//	out, err := r.Retrieve(retriever.RetrieveInput{Query: `SUBJECT "URGENT"`, Limit: 5})
//	if err != nil { /* handle */ }
//	for _, doc := range out.Documents {
//		fmt.Println(doc.Metadata["subject"])
//	}
func (r *Retriever) Retrieve(input RetrieveInput) (RetrieveOutput, error) {
	k := r.cfg.K
	if input.Limit > 0 {
		k = input.Limit
	}
	inv := &invocation{
		cfg:     r.cfg,
		convert: r.convert,
		log:     r.log.With(zap.String("host", r.cfg.Host), zap.String("mailbox", r.cfg.Mailbox)),
	}
	docs, err := inv.run(input.Query, k)
	if err != nil {
		return RetrieveOutput{}, wrap(err)
	}
	return RetrieveOutput{Documents: docs}, nil
}

// Invoke is Retrieve with the configured result cap.
func (r *Retriever) Invoke(query string) ([]Document, error) {
	out, err := r.Retrieve(RetrieveInput{Query: query})
	if err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// State is the progress of one invocation.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateAuthenticated
	StateSelected
	StateSearched
	StateFetched
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateAuthenticated:
		return "authenticated"
	case StateSelected:
		return "selected"
	case StateSearched:
		return "searched"
	case StateFetched:
		return "fetched"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type invocation struct {
	cfg     Config
	convert mailtext.Converter
	log     *zap.Logger

	state State
	c     *client.Client
}

func (inv *invocation) to(next State) {
	inv.log.Debug("imap state", zap.Stringer("from", inv.state), zap.Stringer("to", next))
	inv.state = next
}

func (inv *invocation) run(query string, k int) (docs []Document, err error) {
	defer func() {
		inv.close(err)
		if err != nil {
			inv.log.Debug("imap retrieval failed", zap.Stringer("state", inv.state), zap.Error(err))
			inv.to(StateFailed)
			return
		}
		inv.to(StateDone)
	}()

	inv.c, err = dial(inv.cfg, inv.log)
	if err != nil {
		return nil, err
	}
	inv.to(StateConnected)

	if err = authenticate(inv.c, inv.cfg); err != nil {
		return nil, err
	}
	inv.to(StateAuthenticated)

	if err = selectMailbox(inv.c, inv.cfg.Mailbox); err != nil {
		return nil, err
	}
	inv.to(StateSelected)

	ids, err := search(inv.c, inv.cfg.Mailbox, query)
	if err != nil {
		return nil, err
	}
	inv.to(StateSearched)
	ids = capIDs(ids, k)
	inv.log.Debug("imap search matched", zap.String("query", query), zap.Int("fetching", len(ids)))

	raws, err := fetchRaw(inv.c, ids)
	if err != nil {
		return nil, err
	}
	inv.to(StateFetched)

	opts := mailtext.Options{Attachments: inv.cfg.Attachments, Convert: inv.convert}
	docs = make([]Document, 0, len(raws))
	for _, raw := range raws {
		msg, err := mailtext.Parse(raw.Body, opts)
		if err != nil {
			return nil, &ParseError{SeqNum: raw.SeqNum, Err: err}
		}
		docs = append(docs, assemble(raw, msg, inv.cfg.Attachments))
	}
	return docs, nil
}

// close logs out after a clean run or a server-side rejection and drops the
// connection otherwise.
func (inv *invocation) close(cause error) {
	if inv.c == nil {
		return
	}
	c := inv.c
	inv.c = nil

	var ce *ConnectionError
	var fe *FetchError
	if !errors.As(cause, &ce) && !errors.As(cause, &fe) {
		err := c.Logout()
		if err == nil {
			return
		}
		inv.log.Debug("imap logout failed", zap.Error(err))
	}
	if err := c.Terminate(); err != nil {
		inv.log.Debug("imap terminate failed", zap.Error(err))
	}
}
