package fs

import (
	"path/filepath"

	"go.trai.ch/zerr"
)

// Resolver expands source patterns from a build description into concrete paths.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Expand resolves patterns relative to root unless they are absolute. Matches
// keep the order of the patterns that produced them so link order follows the
// description; a path matched twice is kept at its first position. A pattern
// that matches nothing is an error naming that pattern.
func (r *Resolver) Expand(patterns []string, root string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	for _, pattern := range patterns {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, pattern)
		}

		// Glob sorts matches within a single pattern.
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "malformed pattern"), "pattern", pattern)
		}
		if len(matches) == 0 {
			return nil, zerr.With(zerr.New("no match for "+pattern), "pattern", pattern)
		}

		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out, nil
}
