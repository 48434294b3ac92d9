package dom

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	// TextTag is the tag name given to text nodes.
	TextTag = "#text"
	// DocumentTag is the tag name of the root returned by Parse.
	DocumentTag = "#document"
)

// ErrMalformedDocument is returned when the input cannot be turned into a tree at all.
var ErrMalformedDocument = errors.New("malformed document")

// Element is one node of a parsed document. Elements are immutable once
// Parse returns; a parent owns its children exclusively.
type Element struct {
	Tag      string
	Classes  map[string]struct{}
	Text     string
	Children []*Element
}

// ParseString is Parse for string input.
func ParseString(s string) (*Element, error) {
	return Parse([]byte(s))
}

// Parse builds an Element tree from HTML. Whitespace-only text nodes are kept
// as children with empty Text so that positional navigation stays stable.
// Comments and doctypes are dropped.
func Parse(input []byte) (*Element, error) {
	if len(bytes.TrimSpace(input)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedDocument)
	}
	if !utf8.Valid(input) {
		return nil, fmt.Errorf("%w: input is not valid UTF-8", ErrMalformedDocument)
	}
	if !hasMarkup(input) {
		return nil, fmt.Errorf("%w: no markup tags found", ErrMalformedDocument)
	}
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	root, ok := build(node)
	if !ok {
		return nil, fmt.Errorf("%w: no document node", ErrMalformedDocument)
	}
	return root.el, nil
}

func hasMarkup(input []byte) bool {
	z := html.NewTokenizer(bytes.NewReader(input))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}

// built carries whether the raw text of a node started or ended with
// whitespace, so parents can keep word boundaries between inline children.
type built struct {
	el    *Element
	lead  bool
	trail bool
}

func build(n *html.Node) (built, bool) {
	switch n.Type {
	case html.TextNode:
		return built{
			el:    &Element{Tag: TextTag, Text: collapseSpaces(n.Data)},
			lead:  startsWithSpace(n.Data),
			trail: endsWithSpace(n.Data),
		}, true
	case html.ElementNode, html.DocumentNode:
	default:
		return built{}, false
	}

	el := &Element{Tag: DocumentTag, Classes: map[string]struct{}{}}
	if n.Type == html.ElementNode {
		el.Tag = strings.ToLower(n.Data)
		for _, attr := range n.Attr {
			if strings.EqualFold(attr.Key, "class") {
				for _, tok := range strings.Fields(attr.Val) {
					el.Classes[tok] = struct{}{}
				}
			}
		}
	}

	textless := false
	switch el.Tag {
	case "script", "style", "noscript", "template":
		textless = true
	case "br":
		// line breaks separate words like whitespace
		return built{el: el, lead: true, trail: true}, true
	}

	var b strings.Builder
	space, lead := false, false
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		child, ok := build(c)
		if !ok {
			continue
		}
		el.Children = append(el.Children, child.el)
		if textless {
			continue
		}
		if child.el.Text == "" {
			if child.lead || child.trail {
				space = true
			}
			continue
		}
		if child.lead {
			space = true
		}
		if b.Len() == 0 {
			lead = space
		} else if space {
			b.WriteByte(' ')
		}
		b.WriteString(child.el.Text)
		space = child.trail
	}
	el.Text = b.String()
	if el.Text == "" {
		lead = space
	}
	return built{el: el, lead: lead, trail: space}, true
}

// IsText reports whether e is a text node.
func (e *Element) IsText() bool {
	return e != nil && e.Tag == TextTag
}

// HasClass reports whether e carries the exact class token.
func (e *Element) HasClass(name string) bool {
	if e == nil {
		return false
	}
	_, ok := e.Classes[name]
	return ok
}

// ClassTokens returns the class tokens in sorted order.
func (e *Element) ClassTokens() []string {
	if e == nil || len(e.Classes) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.Classes))
	for tok := range e.Classes {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// Elements returns the element children of e, skipping text nodes.
func (e *Element) Elements() []*Element {
	if e == nil {
		return nil
	}
	out := make([]*Element, 0, len(e.Children))
	for _, c := range e.Children {
		if !c.IsText() {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the first descendant element of e, in document order, for
// which match returns true. Text nodes and e itself are never matched.
func (e *Element) Find(match func(*Element) bool) *Element {
	found, _ := e.FindWithParent(match)
	return found
}

// FindWithParent is Find that also returns the parent of the match.
func (e *Element) FindWithParent(match func(*Element) bool) (found, parent *Element) {
	if e == nil {
		return nil, nil
	}
	var dfs func(cur *Element) bool
	dfs = func(cur *Element) bool {
		for _, c := range cur.Children {
			if c.IsText() {
				continue
			}
			if match(c) {
				found, parent = c, cur
				return true
			}
			if dfs(c) {
				return true
			}
		}
		return false
	}
	dfs(e)
	return found, parent
}

// FindAll returns every descendant element of e for which match returns
// true, in document order.
func (e *Element) FindAll(match func(*Element) bool) []*Element {
	var out []*Element
	e.Walk(func(el *Element) bool {
		if match(el) {
			out = append(out, el)
		}
		return true
	})
	return out
}

// Walk visits the descendant elements of e in document order. Returning
// false from fn skips the subtree below the visited element.
func (e *Element) Walk(fn func(*Element) bool) {
	if e == nil {
		return
	}
	for _, c := range e.Children {
		if c.IsText() {
			continue
		}
		if fn(c) {
			c.Walk(fn)
		}
	}
}

// Contains reports whether any descendant element of e satisfies match.
func (e *Element) Contains(match func(*Element) bool) bool {
	return e.Find(match) != nil
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastSpace = true
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

func startsWithSpace(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}

func endsWithSpace(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}
