package patch

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Anti-Mage's Pet", "antimagespet"},
		{"Anti-Mage", "antimage"},
		{"Nature's Prophet", "naturesprophet"},
		{"Queen of Pain", "queenofpain"},
		{"Io", "io"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Slug(tc.name); got != tc.want {
			t.Fatalf("Slug(%q)=%q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSlug_IdempotentAndTotal(t *testing.T) {
	names := []string{"Anti-Mage's Pet", "  Keeper of the Light ", "Outworld Destroyer", "x-'- y"}
	for _, n := range names {
		s := Slug(n)
		if Slug(s) != s {
			t.Fatalf("Slug not idempotent for %q: %q vs %q", n, s, Slug(s))
		}
		if strings.ContainsAny(s, "'- ") {
			t.Fatalf("slug %q still has excluded characters", s)
		}
		var kept strings.Builder
		for _, r := range n {
			if !strings.ContainsRune("'- ", r) {
				kept.WriteRune(r)
			}
		}
		if s != strings.ToLower(kept.String()) {
			t.Fatalf("slug %q is not the lowercase of the kept characters of %q", s, n)
		}
	}
}

func TestChangeRecord_Unchanged(t *testing.T) {
	if !(ChangeRecord{Name: "Axe"}).Unchanged() {
		t.Fatalf("empty record should be unchanged")
	}
	r := ChangeRecord{Name: "Axe", TalentChanges: []string{"x"}}
	if r.Unchanged() {
		t.Fatalf("record with a talent change is not unchanged")
	}
}

func TestChangeRecord_MergeCombinesGroups(t *testing.T) {
	r := ChangeRecord{
		Name:           "Lion",
		AbilityChanges: []Group{{Name: "Hex", Changes: []string{"a"}}},
	}
	r.Merge(ChangeRecord{
		Name:           "Lion",
		GeneralChanges: []string{"g"},
		AbilityChanges: []Group{{Name: "Hex", Changes: []string{"b"}}, {Name: "Finger of Death", Changes: []string{"c"}}},
	})
	want := ChangeRecord{
		Name:           "Lion",
		GeneralChanges: []string{"g"},
		AbilityChanges: []Group{{Name: "Hex", Changes: []string{"a", "b"}}, {Name: "Finger of Death", Changes: []string{"c"}}},
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
	if r.ChangeCount() != 4 {
		t.Fatalf("ChangeCount=%d, want 4", r.ChangeCount())
	}
	if got, ok := Lookup(r.AbilityChanges, "Hex"); !ok || len(got) != 2 {
		t.Fatalf("Lookup Hex = %v, %v", got, ok)
	}
}
