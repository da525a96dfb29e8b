package transfer

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/livepen/internal/domain/buffer"
	"github.com/GriffinCanCode/livepen/internal/domain/compose"
)

// Import reads an HTML document and splits it into the three buffers.
// Only read errors are returned; malformed markup degrades to empty buffers.
func Import(r io.Reader) (buffer.Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return buffer.Snapshot{}, fmt.Errorf("read document: %w", err)
	}
	return Parse(data), nil
}

// Parse splits raw HTML bytes into buffers.
//
// CSS is every <style> in document order and JS every inline <script>
// without the instrumentation marker, each joined with a newline. HTML is
// the body markup with all scripts and styles removed.
func Parse(data []byte) buffer.Snapshot {
	doc, err := load(data)
	if err != nil {
		return buffer.Snapshot{}
	}

	var css, js []string
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		css = append(css, unwrap(s.Text()))
	})
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		if _, instrumented := s.Attr(compose.MarkerAttr); instrumented {
			return
		}
		js = append(js, unwrap(s.Text()))
	})

	body := doc.Find("body").First().Clone()
	body.Find("script, style").Remove()
	markup, err := body.Html()
	if err != nil {
		markup = ""
	}

	return buffer.Snapshot{
		HTML: strings.TrimSpace(markup),
		CSS:  strings.Join(css, "\n"),
		JS:   strings.Join(js, "\n"),
	}
}

// load parses data as UTF-8, converting from the detected charset first
func load(data []byte) (*goquery.Document, error) {
	if utf8.Valid(data) {
		return goquery.NewDocumentFromReader(bytes.NewReader(data))
	}

	reader, err := charset.NewReader(bytes.NewReader(data), "text/html; charset="+DetectCharset(data))
	if err != nil {
		return goquery.NewDocumentFromReader(bytes.NewReader(data))
	}
	return goquery.NewDocumentFromReader(reader)
}

// DetectCharset detects the charset of raw HTML bytes
func DetectCharset(data []byte) string {
	detector := chardet.NewHtmlDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// unwrap drops the single line break the composer puts around element text
func unwrap(text string) string {
	text = strings.TrimPrefix(text, "\n")
	return strings.TrimSuffix(text, "\n")
}
