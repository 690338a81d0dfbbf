package mailtext

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
)

// maxDepth bounds multipart nesting.
const maxDepth = 32

// ErrTooDeep is returned when multipart nesting exceeds maxDepth.
var ErrTooDeep = errors.New("mailtext: multipart nesting too deep")

// PartKind tags the variant held by a Part.
type PartKind int

const (
	// PartText is a text/plain leaf.
	PartText PartKind = iota
	// PartHTML is a text/html leaf.
	PartHTML
	// PartBinary is any other leaf.
	PartBinary
	// PartMultipart holds child parts. Subtype carries the multipart subtype,
	// or "rfc822" for an embedded message.
	PartMultipart
)

func (k PartKind) String() string {
	switch k {
	case PartText:
		return "text"
	case PartHTML:
		return "html"
	case PartBinary:
		return "binary"
	case PartMultipart:
		return "multipart"
	default:
		return fmt.Sprintf("PartKind(%d)", int(k))
	}
}

// Part is one node of a decoded MIME tree.
type Part struct {
	Kind        PartKind
	ContentType string
	Subtype     string
	Filename    string
	Attachment  bool
	Content     []byte
	Children    []Part
}

func readPart(e *message.Entity, depth int) (Part, error) {
	if depth > maxDepth {
		return Part{}, ErrTooDeep
	}

	mediaType, _, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
	}

	if mr := e.MultipartReader(); mr != nil {
		p := Part{
			Kind:        PartMultipart,
			ContentType: mediaType,
			Subtype:     strings.TrimPrefix(mediaType, "multipart/"),
		}
		for {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil && !(child != nil && tolerable(err)) {
				return Part{}, fmt.Errorf("mailtext: reading %s part failed: %w", mediaType, err)
			}
			parsed, err := readPart(child, depth+1)
			if err != nil {
				return Part{}, err
			}
			p.Children = append(p.Children, parsed)
		}
		return p, nil
	}

	disposition, _, _ := e.Header.ContentDisposition()
	filename, _ := (&mail.AttachmentHeader{Header: e.Header}).Filename()
	body, err := io.ReadAll(e.Body)
	if err != nil {
		return Part{}, fmt.Errorf("mailtext: reading %s body failed: %w", mediaType, err)
	}

	p := Part{
		ContentType: mediaType,
		Filename:    filename,
		Attachment:  strings.EqualFold(disposition, "attachment"),
		Content:     body,
	}
	switch {
	case mediaType == "text/plain":
		p.Kind = PartText
	case mediaType == "text/html":
		p.Kind = PartHTML
	case mediaType == "message/rfc822" && !p.Attachment:
		nested, err := readEntity(body)
		if err != nil {
			return Part{}, err
		}
		inner, err := readPart(nested, depth+1)
		if err != nil {
			return Part{}, err
		}
		p.Kind = PartMultipart
		p.Subtype = "rfc822"
		p.Content = nil
		p.Children = []Part{inner}
	default:
		p.Kind = PartBinary
	}
	return p, nil
}

// resolve returns the plain text and HTML readable from p.
func resolve(p Part) (text string, html string) {
	if p.Attachment {
		return "", ""
	}
	switch p.Kind {
	case PartText:
		return string(p.Content), ""
	case PartHTML:
		return "", string(p.Content)
	case PartMultipart:
		if p.Subtype == "alternative" {
			for _, child := range p.Children {
				t, h := resolve(child)
				if text == "" {
					text = t
				}
				if html == "" {
					html = h
				}
			}
			return text, html
		}
		texts := make([]string, 0, len(p.Children))
		htmls := make([]string, 0, len(p.Children))
		for _, child := range p.Children {
			t, h := resolve(child)
			if t != "" {
				texts = append(texts, t)
			}
			if h != "" {
				htmls = append(htmls, h)
			}
		}
		return strings.Join(texts, "\n"), strings.Join(htmls, "\n")
	default:
		return "", ""
	}
}

func collectAttachments(p Part, mode AttachmentMode, out []Attachment) []Attachment {
	if p.Kind == PartMultipart {
		for _, child := range p.Children {
			out = collectAttachments(child, mode, out)
		}
		return out
	}
	if !p.Attachment {
		return out
	}
	a := Attachment{
		Filename:    p.Filename,
		ContentType: p.ContentType,
		Size:        len(p.Content),
	}
	if mode == AttachmentsFull {
		a.Content = p.Content
	}
	return append(out, a)
}
