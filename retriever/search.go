package retriever

import (
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/responses"
)

// rawSearch sends SEARCH with the criteria written as-is, so that any
// server-side grammar (boolean composition, date keys) is preserved.
type rawSearch struct {
	Criteria string
}

func (s *rawSearch) Command() *imap.Command {
	return &imap.Command{
		Name:      "SEARCH",
		Arguments: []any{imap.RawString(s.Criteria)},
	}
}

// search returns matching sequence numbers in server order.
func search(c *client.Client, mailbox string, query string) ([]uint32, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &QueryError{Op: OpSearch, Mailbox: mailbox, Query: query, Err: ErrEmptyQuery}
	}

	searchResp := &responses.Search{}
	status, err := c.Execute(&rawSearch{Criteria: query}, searchResp)
	if err != nil {
		return nil, &QueryError{Op: OpSearch, Mailbox: mailbox, Query: query, Err: err}
	}
	if err := status.Err(); err != nil {
		return nil, &QueryError{Op: OpSearch, Mailbox: mailbox, Query: query, Err: err}
	}
	return searchResp.Ids, nil
}

// capIDs keeps the first k identifiers.
func capIDs(ids []uint32, k int) []uint32 {
	if k > 0 && len(ids) > k {
		return ids[:k]
	}
	return ids
}
