package mailtext

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// Converter renders an HTML fragment as Markdown.
type Converter func(html string) (string, error)

// Markdown is the default Converter.
func Markdown(html string) (string, error) {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("mailtext: converting html failed: %w", err)
	}
	return strings.TrimSpace(md), nil
}
