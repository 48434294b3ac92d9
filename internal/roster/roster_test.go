package roster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnmodified_Difference(t *testing.T) {
	s := New("A", "B", "C")
	if diff := cmp.Diff([]string{"B", "C"}, s.Unmodified([]string{"A"})); diff != "" {
		t.Fatalf("unmodified mismatch (-want +got):\n%s", diff)
	}
	if got := s.Unmodified([]string{"A", "B", "C", "D"}); len(got) != 0 {
		t.Fatalf("expected none, got %v", got)
	}
}

func TestUnmodified_SortedAndNormalized(t *testing.T) {
	// composed on one side, decomposed on the other
	s := New("Zeus", "Axe", "Pok\u00e9", "Bane")
	got := s.Unmodified([]string{"Poke\u0301", " Bane "})
	if diff := cmp.Diff([]string{"Axe", "Zeus"}, got); diff != "" {
		t.Fatalf("unmodified mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_SkipsCommentsAndDuplicates(t *testing.T) {
	s, err := Parse(strings.NewReader("# heroes\nAxe\n\n  Lina  \nAxe\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff([]string{"Axe", "Lina"}, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if !s.Contains("Lina") || s.Contains("Io") {
		t.Fatalf("unexpected Contains results")
	}
}

func TestLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "roster.txt")
	if err := os.WriteFile(p, []byte("Io\nMirana\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 heroes, got %d", s.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	s := Default()
	if s.Len() < 100 {
		t.Fatalf("default roster looks truncated: %d", s.Len())
	}
	for _, n := range []string{"Anti-Mage", "Nature's Prophet", "Queen of Pain", "Io"} {
		if !s.Contains(n) {
			t.Fatalf("default roster missing %q", n)
		}
	}
}
