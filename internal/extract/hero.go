package extract

import (
	"strings"

	"github.com/hyperifyio/patchday/internal/dom"
	"github.com/hyperifyio/patchday/internal/patch"
)

// ExtractHero builds the record for one hero sub-tree. It returns false when
// no hero name can be found. Missing sections yield empty containers.
func (e *Engine) ExtractHero(hero *dom.Element) (patch.ChangeRecord, bool) {
	name := e.heroName(hero)
	if name == "" {
		return patch.ChangeRecord{}, false
	}
	return patch.ChangeRecord{
		Name:           name,
		GeneralChanges: e.generalChanges(hero),
		FacetChanges:   e.facetChanges(hero),
		AbilityChanges: e.abilityChanges(hero),
		TalentChanges:  e.talentChanges(hero),
	}, true
}

func (e *Engine) heroName(hero *dom.Element) string {
	isName := e.Classes.Match(CategoryEntityName)
	if el := hero.Find(func(el *dom.Element) bool { return isName(el) && el.Text != "" }); el != nil {
		return el.Text
	}
	if a := hero.Find(func(el *dom.Element) bool { return el.Tag == "a" && el.Text != "" }); a != nil {
		return a.Text
	}
	return ""
}

// generalChanges reads the first notes section of the hero. A first section
// that sits inside a talent, facet or ability block, or that holds ability
// notes, means the hero has no general changes.
func (e *Engine) generalChanges(hero *dom.Element) []string {
	isNotes := e.Classes.Match(CategoryNotesSection)
	isTalent := e.Classes.Match(CategoryTalentSection)
	isFacet := e.Classes.Match(CategoryFacetContainer)
	isAbility := e.Classes.Match(CategoryAbilityNote)

	var section *dom.Element
	nested := false
	var dfs func(cur *dom.Element, inside bool) bool
	dfs = func(cur *dom.Element, inside bool) bool {
		for _, c := range cur.Elements() {
			in := inside || isTalent(c) || isFacet(c) || isAbility(c)
			if isNotes(c) {
				section, nested = c, in
				return true
			}
			if dfs(c, in) {
				return true
			}
		}
		return false
	}
	dfs(hero, false)

	if section == nil || nested || section.Contains(isAbility) {
		return nil
	}
	return e.changeLines(section)
}

// changeLines collects the change lines below el that are not nested in
// another change line.
func (e *Engine) changeLines(el *dom.Element) []string {
	isLine := e.Classes.Match(CategoryChangeLine)
	var out []string
	el.Walk(func(c *dom.Element) bool {
		if !isLine(c) {
			return true
		}
		if c.Text != "" {
			out = append(out, c.Text)
		}
		return false
	})
	return out
}

func (e *Engine) facetChanges(hero *dom.Element) []patch.Group {
	container := hero.Find(e.Classes.Match(CategoryFacetContainer))
	if container == nil {
		return nil
	}
	list := container
	if els := container.Elements(); len(els) >= 2 && isSectionHeader(els[0]) {
		list = els[1]
	}
	var out []patch.Group
	for _, facet := range list.Elements() {
		name, lines := e.facet(facet)
		if name == "" || len(lines) == 0 {
			continue
		}
		out = patch.AddGroup(out, name, lines...)
	}
	return out
}

// facet splits one facet block into its display name and change lines. The
// last element child holds the changes; when no facet-name class is present
// the name is read from the header child right before it, then the one
// before that. Earlier children carry "New"/"Reworked" badges.
func (e *Engine) facet(facet *dom.Element) (string, []string) {
	els := facet.Elements()
	if len(els) == 0 {
		return "", nil
	}
	changes := els[len(els)-1]
	header := els[:len(els)-1]

	isName := e.Classes.Match(CategoryFacetName)
	name := ""
	if n := facet.Find(func(el *dom.Element) bool { return isName(el) && el.Text != "" }); n != nil {
		name = n.Text
	}
	for i := len(header) - 1; name == "" && i >= 0 && i >= len(header)-2; i-- {
		name = leadText(header[i])
	}

	var lines []string
	if changes.Tag == "img" || changes.Contains(isImage) {
		for _, group := range changes.Elements() {
			ability, notes := e.nameAndLines(group, nil)
			if ability == "" {
				continue
			}
			for _, note := range notes {
				lines = append(lines, ability+": "+note)
			}
		}
		return name, lines
	}
	for _, c := range changes.Children {
		if c.Text != "" {
			lines = append(lines, c.Text)
		}
	}
	return name, lines
}

func (e *Engine) abilityChanges(hero *dom.Element) []patch.Group {
	isAbility := e.Classes.Match(CategoryAbilityNote)
	isFacet := e.Classes.Match(CategoryFacetContainer)
	isName := e.Classes.Match(CategoryAbilityName)

	var out []patch.Group
	hero.Walk(func(el *dom.Element) bool {
		if isFacet(el) {
			return false
		}
		if !isAbility(el) {
			return true
		}
		name, lines := e.nameAndLines(el, isName)
		if name != "" && len(lines) > 0 {
			out = patch.AddGroup(out, name, lines...)
		}
		return false
	})
	return out
}

func (e *Engine) talentChanges(hero *dom.Element) []string {
	section := hero.Find(e.Classes.Match(CategoryTalentSection))
	if section == nil {
		return nil
	}
	els := section.Elements()
	if len(els) < 2 {
		return nil
	}
	var out []string
	for _, c := range els[1].Children {
		if c.Text != "" {
			out = append(out, c.Text)
		}
	}
	return out
}

// nameAndLines drops a leading image marker, unwraps a lone wrapper and
// splits the remaining non-empty children into a name and its lines. When
// isName is set and one of the children matches it, that child is the name.
func (e *Engine) nameAndLines(el *dom.Element, isName func(*dom.Element) bool) (string, []string) {
	kids := el.Children
	for len(kids) > 0 && kids[0].IsText() && kids[0].Text == "" {
		kids = kids[1:]
	}
	if len(kids) > 0 && isImageMarker(kids[0]) {
		kids = kids[1:]
	}
	kids = nonEmpty(kids)
	for len(kids) == 1 && !kids[0].IsText() {
		inner := nonEmpty(kids[0].Children)
		if len(inner) < 2 {
			break
		}
		kids = inner
	}
	if len(kids) == 0 {
		return "", nil
	}

	nameAt := 0
	if isName != nil {
		for i, k := range kids {
			if isName(k) || k.Contains(isName) {
				nameAt = i
				break
			}
		}
	}
	name := leadText(kids[nameAt])
	lines := make([]string, 0, len(kids)-1)
	for i, k := range kids {
		if i != nameAt {
			lines = append(lines, e.lineTexts(k)...)
		}
	}
	return name, lines
}

// lineTexts expands a bullet list or a block of change lines into its
// individual lines; any other element is one line.
func (e *Engine) lineTexts(el *dom.Element) []string {
	if lines := e.changeLines(el); len(lines) > 0 {
		return lines
	}
	if el.Tag == "ul" || el.Tag == "ol" {
		var out []string
		for _, li := range el.Elements() {
			if li.Text != "" {
				out = append(out, li.Text)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{el.Text}
}

func nonEmpty(kids []*dom.Element) []*dom.Element {
	out := make([]*dom.Element, 0, len(kids))
	for _, k := range kids {
		if k.Text != "" {
			out = append(out, k)
		}
	}
	return out
}

// leadText is the first non-empty child text of el, or el's own text when it
// has no such child.
func leadText(el *dom.Element) string {
	for _, c := range el.Children {
		if c.Text != "" {
			return c.Text
		}
	}
	return el.Text
}

// isSectionHeader reports whether el is a plain title such as "Facets"
// rather than a block of its own.
func isSectionHeader(el *dom.Element) bool {
	return len(el.Elements()) == 0 || strings.EqualFold(el.Text, "Facets")
}

func isImage(el *dom.Element) bool {
	return el.Tag == "img"
}

func isImageMarker(el *dom.Element) bool {
	if el.IsText() {
		return false
	}
	return isImage(el) || (el.Text == "" && el.Contains(isImage))
}
