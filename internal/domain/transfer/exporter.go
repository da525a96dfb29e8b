package transfer

import (
	"fmt"
	"html"
	"path"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
)

// Extension is appended to every exported file name
const Extension = ".htm"

var namePolicy = bluemonday.StrictPolicy()

// Export renders the root element of document, the same markup a browser
// reports as the document element's outer HTML
func Export(document string) (string, error) {
	root, err := xhtml.Parse(strings.NewReader(document))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	for n := root.FirstChild; n != nil; n = n.NextSibling {
		if n.Type != xhtml.ElementNode {
			continue
		}
		var b strings.Builder
		if err := xhtml.Render(&b, n); err != nil {
			return "", fmt.Errorf("render document: %w", err)
		}
		return b.String(), nil
	}
	return "", nil
}

// Filename builds the download name for a project
func Filename(name string) string {
	clean := html.UnescapeString(namePolicy.Sanitize(name))
	clean = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return -1
		}
		return r
	}, clean)
	clean = strings.TrimSpace(strings.Trim(clean, ". "))
	if clean == "" {
		clean = buffer.DefaultName
	}
	return clean + Extension
}

// ProjectName derives a project name from an uploaded file name
func ProjectName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(base, path.Ext(base)))
}
