package extract

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/patchday/internal/dom"
)

// Category names one logical class of the patch-notes markup. The page
// renders each logical class with a random per-build suffix, so categories
// are resolved to prefix predicates rather than literal class names.
type Category int

const (
	CategoryEntity Category = iota
	CategoryEntityName
	CategoryNotesSection
	CategoryChangeLine
	CategoryAbilityNote
	CategoryAbilityName
	CategoryFacetContainer
	CategoryFacetName
	CategoryTalentSection
)

var categoryKeys = [...]string{
	CategoryEntity:         "entity",
	CategoryEntityName:     "entityName",
	CategoryNotesSection:   "notesSection",
	CategoryChangeLine:     "changeLine",
	CategoryAbilityNote:    "abilityNote",
	CategoryAbilityName:    "abilityName",
	CategoryFacetContainer: "facetContainer",
	CategoryFacetName:      "facetName",
	CategoryTalentSection:  "talentSection",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryKeys) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryKeys[c]
}

// ParseCategory maps a config key such as "abilityNote" to its Category.
func ParseCategory(key string) (Category, error) {
	for i, k := range categoryKeys {
		if strings.EqualFold(k, strings.TrimSpace(key)) {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown class category %q", key)
}

// ClassTable maps each category to the logical class prefix it is rendered with.
type ClassTable map[Category]string

// DefaultClasses is the class schema of the current patch-notes page.
var DefaultClasses = ClassTable{
	CategoryEntity:         "PatchNoteHero",
	CategoryEntityName:     "HeroName",
	CategoryNotesSection:   "NotesSection",
	CategoryChangeLine:     "PatchNote",
	CategoryAbilityNote:    "AbilityNote",
	CategoryAbilityName:    "AbilityName",
	CategoryFacetContainer: "FacetNotes",
	CategoryFacetName:      "FacetName",
	CategoryTalentSection:  "TalentNotes",
}

// WithOverrides returns a copy of t with prefixes replaced by overrides,
// keyed by category name.
func (t ClassTable) WithOverrides(overrides map[string]string) (ClassTable, error) {
	out := make(ClassTable, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}
	for key, prefix := range overrides {
		cat, err := ParseCategory(key)
		if err != nil {
			return nil, err
		}
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			return nil, fmt.Errorf("empty class prefix for %s", cat)
		}
		out[cat] = prefix
	}
	return out, nil
}

// Match returns a predicate that is true for elements carrying a class token
// that starts with the category prefix followed by nothing or a suffix
// separator. "PatchNote" therefore matches "PatchNote_3fa9d" but not
// "PatchNoteHero_3fa9d".
func (t ClassTable) Match(cat Category) func(*dom.Element) bool {
	prefix := t[cat]
	return func(el *dom.Element) bool {
		if prefix == "" || el == nil {
			return false
		}
		for tok := range el.Classes {
			if hasClassPrefix(tok, prefix) {
				return true
			}
		}
		return false
	}
}

func hasClassPrefix(tok, prefix string) bool {
	if !strings.HasPrefix(tok, prefix) {
		return false
	}
	if len(tok) == len(prefix) {
		return true
	}
	switch tok[len(prefix)] {
	case '_', '-':
		return true
	}
	return false
}
