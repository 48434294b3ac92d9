package patch

import "strings"

// Group is one named entry of an ordered name -> change lines mapping, used
// for facets and abilities so that document order survives.
type Group struct {
	Name    string   `json:"name"`
	Changes []string `json:"changes"`
}

// ChangeRecord holds every change made to one hero in a single patch.
// A record whose four containers are all empty means the hero was evaluated
// and has no changes.
type ChangeRecord struct {
	Name           string   `json:"name"`
	GeneralChanges []string `json:"general_changes"`
	FacetChanges   []Group  `json:"facet_changes"`
	AbilityChanges []Group  `json:"ability_changes"`
	TalentChanges  []string `json:"talent_changes"`
}

// Unchanged reports whether all change containers are empty.
func (r ChangeRecord) Unchanged() bool {
	return len(r.GeneralChanges) == 0 &&
		len(r.FacetChanges) == 0 &&
		len(r.AbilityChanges) == 0 &&
		len(r.TalentChanges) == 0
}

// ChangeCount is the total number of change lines in the record.
func (r ChangeRecord) ChangeCount() int {
	n := len(r.GeneralChanges) + len(r.TalentChanges)
	for _, g := range r.FacetChanges {
		n += len(g.Changes)
	}
	for _, g := range r.AbilityChanges {
		n += len(g.Changes)
	}
	return n
}

// Merge appends the changes of other into r. Groups with the same name are
// combined.
func (r *ChangeRecord) Merge(other ChangeRecord) {
	r.GeneralChanges = append(r.GeneralChanges, other.GeneralChanges...)
	r.TalentChanges = append(r.TalentChanges, other.TalentChanges...)
	for _, g := range other.FacetChanges {
		r.FacetChanges = AddGroup(r.FacetChanges, g.Name, g.Changes...)
	}
	for _, g := range other.AbilityChanges {
		r.AbilityChanges = AddGroup(r.AbilityChanges, g.Name, g.Changes...)
	}
}

// Lookup returns the changes recorded under name.
func Lookup(groups []Group, name string) ([]string, bool) {
	for _, g := range groups {
		if g.Name == name {
			return g.Changes, true
		}
	}
	return nil, false
}

// AddGroup appends changes to the group called name, creating it at the end
// when it does not exist yet.
func AddGroup(groups []Group, name string, changes ...string) []Group {
	for i := range groups {
		if groups[i].Name == name {
			groups[i].Changes = append(groups[i].Changes, changes...)
			return groups
		}
	}
	return append(groups, Group{Name: name, Changes: append([]string(nil), changes...)})
}

// Names returns the record names in order.
func Names(records []ChangeRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

// Slug derives the link token for a hero name: apostrophes, hyphens and
// spaces are removed and the rest is lowercased.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '\'', '-', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}
