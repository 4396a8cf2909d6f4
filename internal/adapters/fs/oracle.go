package fs

import (
	"os"
	"time"

	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.UpToDateChecker = (*Oracle)(nil)

// StampSuffix is appended to a target to form its stamp file.
const StampSuffix = ".stamp"

// Oracle answers whether a target is current with respect to its sources.
// It keeps no state between calls: touching a source is always observed.
type Oracle struct {
	walker *Walker
	hasher *Hasher
	force  bool
}

// OracleOption configures an Oracle.
type OracleOption func(*Oracle)

// WithContentFallback lets a single-source target that is stale by timestamp
// count as current when its content equals the source's.
func WithContentFallback(h *Hasher) OracleOption {
	return func(o *Oracle) {
		o.hasher = h
	}
}

// NewOracle creates an Oracle. With force set, every target is stale.
func NewOracle(walker *Walker, force bool, opts ...OracleOption) *Oracle {
	o := &Oracle{walker: walker, force: force}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsUpToDate reports whether target exists and no source is newer than it.
// A "<target>.stamp" file newer than the target stands in for the target's time.
// A missing or unreadable source makes the target stale.
func (o *Oracle) IsUpToDate(sources []string, target string) bool {
	if o.force {
		return false
	}

	effective, err := o.walker.ModTime(target)
	if err != nil {
		return false
	}
	if stamp, err := os.Stat(target + StampSuffix); err == nil && stamp.ModTime().After(effective) {
		effective = stamp.ModTime()
	}

	for _, src := range sources {
		mtime, err := o.walker.ModTime(src)
		if err != nil {
			return false
		}
		if mtime.After(effective) {
			return o.contentEqual(sources, target)
		}
	}
	return true
}

func (o *Oracle) contentEqual(sources []string, target string) bool {
	if o.hasher == nil || len(sources) != 1 {
		return false
	}
	equal, err := o.hasher.FilesEqual(sources[0], target)
	return err == nil && equal
}

// MarkCurrent creates or touches the stamp file of target.
func (o *Oracle) MarkCurrent(target string) error {
	stamp := target + StampSuffix
	now := time.Now()
	if err := os.Chtimes(stamp, now, now); err == nil {
		return nil
	}
	if err := os.WriteFile(stamp, nil, 0o644); err != nil { //nolint:gosec // Stamp files are not sensitive
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "path", stamp)
	}
	return nil
}
