package retriever_test

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/spachava753/imapretriever/mailtext"
	"github.com/spachava753/imapretriever/retriever"
)

func composeUrgentDigest(host string, user string) (string, error) {
	r, err := retriever.New(retriever.Config{
		Host:        host,
		User:        user,
		Password:    os.Getenv("IMAP_PASSWORD"),
		Attachments: mailtext.AttachmentsNamesOnly,
		K:           25,
	}, retriever.WithLogger(zap.NewNop()))
	if err != nil {
		return "", err
	}

	out, err := r.Retrieve(retriever.RetrieveInput{
		Query: `SUBJECT "URGENT" NOT FROM "security@example.com"`,
		Limit: 5,
	})
	if err != nil {
		var re *retriever.RetrievalError
		if errors.As(err, &re) && re.Kind == retriever.KindAuthentication {
			return "", fmt.Errorf("check IMAP_PASSWORD: %w", err)
		}
		return "", err
	}

	lines := make([]string, 0, len(out.Documents))
	for _, doc := range out.Documents {
		lines = append(lines, fmt.Sprintf("%s  %s  %s",
			doc.Metadata[retriever.MetaDate],
			doc.Metadata[retriever.MetaFrom],
			doc.Metadata[retriever.MetaSubject]))
	}
	return strings.Join(lines, "\n"), nil
}

func composeSenderCount(r *retriever.Retriever, sender string) (int, error) {
	docs, err := r.Invoke(fmt.Sprintf("FROM %q", sender))
	if err != nil {
		var fe *retriever.FetchError
		if errors.As(err, &fe) {
			return 0, fmt.Errorf("message %d unavailable: %w", fe.SeqNum, err)
		}
		return 0, err
	}
	return len(docs), nil
}

var (
	_ = composeUrgentDigest
	_ = composeSenderCount
)
