package retriever

import (
	"errors"
	"fmt"
)

// Kind tags the stage a retrieval failed in.
type Kind string

const (
	KindConnection     Kind = "connection"
	KindAuthentication Kind = "authentication"
	KindQuery          Kind = "query"
	KindFetch          Kind = "fetch"
	KindParse          Kind = "parse"
)

// RetrievalError is the only error type returned by Retrieve and Invoke.
//
// Err is one of ConnectionError, AuthenticationError, QueryError, FetchError
// or ParseError, reachable with errors.As:
//
//	var fe *retriever.FetchError
//	if errors.As(err, &fe) {
//		log.Printf("message %d could not be fetched", fe.SeqNum)
//	}
type RetrievalError struct {
	Kind Kind
	Err  error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve emails: %v", e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ConnectionError reports a socket, greeting or TLS failure.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to %s failed: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthenticationError reports a rejected LOGIN or AUTHENTICATE.
type AuthenticationError struct {
	Mechanism string
	Err       error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s authentication failed: %v", e.Mechanism, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// QueryOp names the command a QueryError comes from.
type QueryOp string

const (
	OpSelect QueryOp = "select"
	OpSearch QueryOp = "search"
)

// QueryError reports a rejected SELECT or SEARCH. Err carries the server's
// response text.
type QueryError struct {
	Op      QueryOp
	Mailbox string
	Query   string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Op == OpSelect {
		return fmt.Sprintf("selecting mailbox %q failed: %v", e.Mailbox, e.Err)
	}
	return fmt.Sprintf("search %q in %q failed: %v", e.Query, e.Mailbox, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// FetchError reports a failure fetching one message.
type FetchError struct {
	SeqNum uint32
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching message %d failed: %v", e.SeqNum, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a message whose MIME structure could not be decoded.
type ParseError struct {
	SeqNum uint32
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing message %d failed: %v", e.SeqNum, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	// ErrMissingBody is wrapped in a FetchError when the server answers a
	// FETCH without the message source.
	ErrMissingBody = errors.New("retriever: server returned no message body")
	// ErrMessageNotFound is wrapped in a FetchError when the server answers a
	// FETCH with no message.
	ErrMessageNotFound = errors.New("retriever: message not found")
	// ErrEmptyQuery is wrapped in a QueryError when no search criteria are
	// given.
	ErrEmptyQuery = errors.New("retriever: search criteria are required")
	// ErrStartTLSUnsupported is wrapped in a ConnectionError when a
	// plaintext connection cannot be upgraded.
	ErrStartTLSUnsupported = errors.New("retriever: server does not support STARTTLS")
)

// wrap converts a component error into a RetrievalError tagged by its type.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var re *RetrievalError
	if errors.As(err, &re) {
		return err
	}
	var (
		ce *ConnectionError
		ae *AuthenticationError
		qe *QueryError
		fe *FetchError
		pe *ParseError
	)
	kind := KindConnection
	switch {
	case errors.As(err, &ae):
		kind = KindAuthentication
	case errors.As(err, &qe):
		kind = KindQuery
	case errors.As(err, &fe):
		kind = KindFetch
	case errors.As(err, &pe):
		kind = KindParse
	case errors.As(err, &ce):
		kind = KindConnection
	}
	return &RetrievalError{Kind: kind, Err: err}
}
