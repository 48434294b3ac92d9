package extract

import (
	"github.com/hyperifyio/patchday/internal/dom"
)

// DefaultMarker is the section header text that precedes the hero list.
const DefaultMarker = "Hero Updates"

// Locator finds the per-hero sub-trees of a patch-notes document. Each
// supported page layout is one Locator; new layouts are added by appending
// another one to Engine.Locators.
type Locator interface {
	Name() string
	Locate(root *dom.Element) []*dom.Element
}

// AnchorTextLocator finds the first element whose text is exactly Marker.
// The hero list is the second element child of the marker's parent (the
// first being the section header) and each child of that list is one hero.
type AnchorTextLocator struct {
	Marker string
}

func (l AnchorTextLocator) Name() string { return "anchor-text" }

func (l AnchorTextLocator) Locate(root *dom.Element) []*dom.Element {
	if l.Marker == "" {
		return nil
	}
	marker, parent := root.FindWithParent(func(el *dom.Element) bool {
		return el.Text == l.Marker
	})
	if marker == nil || parent == nil {
		return nil
	}
	siblings := parent.Elements()
	if len(siblings) < 2 {
		return nil
	}
	return siblings[1].Elements()
}

// ClassPrefixLocator treats every outermost element of the entity category
// as one hero sub-tree.
type ClassPrefixLocator struct {
	Classes  ClassTable
	Category Category
}

func (l ClassPrefixLocator) Name() string { return "class-prefix" }

func (l ClassPrefixLocator) Locate(root *dom.Element) []*dom.Element {
	match := l.Classes.Match(l.Category)
	var out []*dom.Element
	root.Walk(func(el *dom.Element) bool {
		if match(el) {
			out = append(out, el)
			return false
		}
		return true
	})
	return out
}
