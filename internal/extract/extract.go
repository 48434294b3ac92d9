package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperifyio/patchday/internal/dom"
	"github.com/hyperifyio/patchday/internal/patch"
)

// ErrSectionNotFound matches any *SectionNotFoundError.
var ErrSectionNotFound = errors.New("hero section not found")

// SectionNotFoundError reports that no locator found a usable hero list.
// It usually means the page layout changed.
type SectionNotFoundError struct {
	Tried []string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("%s (tried: %s)", ErrSectionNotFound.Error(), strings.Join(e.Tried, ", "))
}

func (e *SectionNotFoundError) Is(target error) bool {
	return target == ErrSectionNotFound
}

// Result is the outcome of one extraction run.
type Result struct {
	Records []patch.ChangeRecord
	// Locator is the name of the strategy that found the hero list.
	Locator string
	// Located is the number of hero sub-trees the locator returned, including
	// nameless ones that were skipped.
	Located int
}

// Engine extracts change records from a parsed patch-notes document. An
// Engine holds no state between calls and may be shared across goroutines.
type Engine struct {
	Classes  ClassTable
	Locators []Locator
}

// New returns an Engine using classes for every category lookup and the
// anchor-text then class-prefix locators.
func New(classes ClassTable, marker string) *Engine {
	if classes == nil {
		classes = DefaultClasses
	}
	if marker == "" {
		marker = DefaultMarker
	}
	return &Engine{
		Classes: classes,
		Locators: []Locator{
			AnchorTextLocator{Marker: marker},
			ClassPrefixLocator{Classes: classes, Category: CategoryEntity},
		},
	}
}

// Default returns an Engine with DefaultClasses and DefaultMarker.
func Default() *Engine {
	return New(DefaultClasses, DefaultMarker)
}

// FromHTML parses input and extracts records with the default engine.
func FromHTML(input []byte) ([]patch.ChangeRecord, error) {
	root, err := dom.Parse(input)
	if err != nil {
		return nil, err
	}
	return Default().Extract(root)
}

// Extract returns one record per hero, in document order.
func (e *Engine) Extract(root *dom.Element) ([]patch.ChangeRecord, error) {
	res, err := e.Run(root)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run is Extract that also reports which locator succeeded. Locators are
// tried in order; the first one whose heroes yield at least one named
// record wins.
func (e *Engine) Run(root *dom.Element) (Result, error) {
	if root == nil {
		return Result{}, fmt.Errorf("%w: nil document", dom.ErrMalformedDocument)
	}
	tried := make([]string, 0, len(e.Locators))
	for _, loc := range e.Locators {
		tried = append(tried, loc.Name())
		heroes := loc.Locate(root)
		if len(heroes) == 0 {
			continue
		}
		records := e.extractAll(heroes)
		if len(records) == 0 {
			continue
		}
		return Result{Records: records, Locator: loc.Name(), Located: len(heroes)}, nil
	}
	return Result{}, &SectionNotFoundError{Tried: tried}
}

func (e *Engine) extractAll(heroes []*dom.Element) []patch.ChangeRecord {
	records := make([]patch.ChangeRecord, 0, len(heroes))
	index := make(map[string]int, len(heroes))
	for _, h := range heroes {
		rec, ok := e.ExtractHero(h)
		if !ok {
			continue
		}
		if i, dup := index[rec.Name]; dup {
			records[i].Merge(rec)
			continue
		}
		index[rec.Name] = len(records)
		records = append(records, rec)
	}
	return records
}
