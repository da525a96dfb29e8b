package preview

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrInvalidSelector is returned for selectors that do not compile
var ErrInvalidSelector = errors.New("invalid selector")

// DOM provides a read-mostly document proxy over a parsed preview document
type DOM struct {
	root    *html.Node
	source  string
	changes []DOMChange
	mu      sync.RWMutex
}

// Script is an inline script in document order
type Script struct {
	Text string
	Line int // 1-based line of the first script line within the document
}

// Element is the snapshot of a node handed to scripts
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	InnerHTML   string
	node        *html.Node
}

// ParseDocument parses a composed document
func ParseDocument(document string) (*DOM, error) {
	root, err := htmlquery.Parse(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &DOM{root: root, source: document}, nil
}

// Scripts returns inline scripts in document order. External scripts are
// never fetched.
func (d *DOM) Scripts() []Script {
	nodes := htmlquery.Find(d.root, "//script")
	scripts := make([]Script, 0, len(nodes))
	cursor := 0
	for _, n := range nodes {
		if htmlquery.SelectAttr(n, "src") != "" {
			continue
		}
		text := htmlquery.InnerText(n)
		line := 1
		if idx := strings.Index(d.source[cursor:], text); idx >= 0 && text != "" {
			line += strings.Count(d.source[:cursor+idx], "\n")
			cursor += idx + len(text)
		}
		scripts = append(scripts, Script{Text: text, Line: line})
	}
	return scripts
}

// Query returns the elements matching a CSS selector in document order
func (d *DOM) Query(selector string) ([]*Element, error) {
	return d.query(d.root, selector)
}

// QueryIn is Query restricted to the descendants of elem
func (d *DOM) QueryIn(elem *Element, selector string) ([]*Element, error) {
	return d.query(elem.node, selector)
}

// ByID returns the first element whose id attribute is exactly id
func (d *DOM) ByID(id string) *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	match := goquery.NewDocumentFromNode(d.root).Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	})
	if match.Length() == 0 {
		return nil
	}
	return newElement(match.Get(0))
}

func (d *DOM) query(scope *html.Node, selector string) ([]*Element, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	found := goquery.NewDocumentFromNode(scope).FindMatcher(matcher)
	elements := make([]*Element, 0, found.Length())
	for _, n := range found.Nodes {
		elements = append(elements, newElement(n))
	}
	return elements, nil
}

// SetAttribute updates an element and records the change
func (d *DOM) SetAttribute(elem *Element, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	set := false
	for i := range elem.node.Attr {
		if elem.node.Attr[i].Key == name {
			elem.node.Attr[i].Val = value
			set = true
		}
	}
	if !set {
		elem.node.Attr = append(elem.node.Attr, html.Attribute{Key: name, Val: value})
	}
	d.changes = append(d.changes, DOMChange{Selector: describe(elem), Property: name, Value: value})
}

// Changes returns accumulated DOM changes
func (d *DOM) Changes() []DOMChange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]DOMChange{}, d.changes...)
}

// GetAttribute retrieves an attribute value
func (e *Element) GetAttribute(name string) string {
	return htmlquery.SelectAttr(e.node, name)
}

func newElement(n *html.Node) *Element {
	return &Element{
		TagName:     strings.ToUpper(n.Data),
		ID:          htmlquery.SelectAttr(n, "id"),
		ClassName:   htmlquery.SelectAttr(n, "class"),
		TextContent: htmlquery.InnerText(n),
		InnerHTML:   htmlquery.OutputHTML(n, false),
		node:        n,
	}
}

func describe(e *Element) string {
	if e.ID != "" {
		return "#" + e.ID
	}
	return strings.ToLower(e.TagName)
}
