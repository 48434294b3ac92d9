package extract

import (
    "github.com/hyperifyio/patchday/internal/dom"
    "github.com/hyperifyio/patchday/internal/patch"
)

// Extractor defines a minimal interface for change extraction strategies.
// Implementations can swap page schemas without changing callers.
type Extractor interface {
    // Extract converts a parsed patch-notes document into one record per hero.
    // Implementations should be deterministic and avoid side effects.
    Extract(root *dom.Element) ([]patch.ChangeRecord, error)
}

var _ Extractor = (*Engine)(nil)
