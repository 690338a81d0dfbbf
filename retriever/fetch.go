package retriever

import (
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

type rawMessage struct {
	SeqNum       uint32
	InternalDate time.Time
	Body         []byte
}

// fetchRaw fetches the full source of each message, one command per message,
// without setting \Seen.
func fetchRaw(c *client.Client, ids []uint32) ([]rawMessage, error) {
	out := make([]rawMessage, 0, len(ids))
	for _, id := range ids {
		raw, err := fetchOne(c, id)
		if err != nil {
			return nil, &FetchError{SeqNum: id, Err: err}
		}
		out = append(out, raw)
	}
	return out, nil
}

func fetchOne(c *client.Client, id uint32) (rawMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(id)
	bodySection := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchInternalDate, bodySection.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var (
		raw     rawMessage
		found   bool
		readErr error
	)
	for msg := range messages {
		if found || msg.SeqNum != id {
			continue
		}
		found = true
		raw.SeqNum = msg.SeqNum
		raw.InternalDate = msg.InternalDate
		literal := msg.GetBody(bodySection)
		if literal == nil {
			readErr = ErrMissingBody
			continue
		}
		raw.Body, readErr = io.ReadAll(literal)
	}
	if err := <-done; err != nil {
		return rawMessage{}, err
	}
	if readErr != nil {
		return rawMessage{}, readErr
	}
	if !found {
		return rawMessage{}, ErrMessageNotFound
	}
	return raw, nil
}
