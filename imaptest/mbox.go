package imaptest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// LoadMbox appends every message of an mbox archive to INBOX, in archive
// order. The internal date of each message is its Date header when parsable.
func (s *Server) LoadMbox(r io.Reader) error {
	reader := mboxlib.NewReader(r)
	for n := 1; ; n++ {
		msgReader, err := reader.NextMessage()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("imaptest: reading mbox message %d failed: %w", n, err)
		}
		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return fmt.Errorf("imaptest: reading mbox message %d failed: %w", n, err)
		}
		if err := s.Append(raw, headerDate(raw)); err != nil {
			return err
		}
	}
}

// LoadMboxFile is LoadMbox for a file path.
func (s *Server) LoadMboxFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("imaptest: opening mbox failed: %w", err)
	}
	defer f.Close()
	return s.LoadMbox(f)
}

func headerDate(raw []byte) time.Time {
	e, _ := message.Read(bytes.NewReader(raw))
	if e == nil {
		return time.Time{}
	}
	date, err := (&mail.Header{Header: e.Header}).Date()
	if err != nil {
		return time.Time{}
	}
	return date
}
