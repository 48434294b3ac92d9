// Package roster holds the list of all known heroes, used to report which
// heroes a patch left untouched.
package roster

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

//go:embed heroes.txt
var defaultHeroes string

// Set is an ordered, de-duplicated list of hero names.
type Set struct {
	names []string
	index map[string]struct{}
}

// Default returns the built-in hero roster.
func Default() *Set {
	s, err := Parse(strings.NewReader(defaultHeroes))
	if err != nil {
		// The embedded list is static text; a scanner failure here is a build defect.
		panic(err)
	}
	return s
}

// Load reads a roster file with one hero name per line. Blank lines and lines
// starting with '#' are ignored.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	return s, nil
}

// Parse reads one hero name per line.
func Parse(r io.Reader) (*Set, error) {
	s := New()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// New builds a set from the given names.
func New(names ...string) *Set {
	s := &Set{index: make(map[string]struct{})}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add appends a name unless an equal name is already present. Names are
// compared after NFC normalization.
func (s *Set) Add(name string) {
	n := normalize(name)
	if n == "" {
		return
	}
	if _, ok := s.index[n]; ok {
		return
	}
	s.index[n] = struct{}{}
	s.names = append(s.names, n)
}

// Contains reports whether name is in the roster.
func (s *Set) Contains(name string) bool {
	_, ok := s.index[normalize(name)]
	return ok
}

// Len is the number of heroes in the roster.
func (s *Set) Len() int { return len(s.names) }

// Names returns the roster in insertion order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Unmodified returns the roster heroes missing from changed, sorted.
func (s *Set) Unmodified(changed []string) []string {
	seen := make(map[string]struct{}, len(changed))
	for _, c := range changed {
		seen[normalize(c)] = struct{}{}
	}
	var out []string
	for _, n := range s.names {
		if _, ok := seen[n]; !ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
