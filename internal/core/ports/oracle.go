package ports

// UpToDateChecker decides whether a target must be rebuilt.
//
//go:generate mockgen -source=oracle.go -destination=mocks/mock_oracle.go -package=mocks
type UpToDateChecker interface {
	// IsUpToDate reports whether target exists and is not older than any of sources.
	IsUpToDate(sources []string, target string) bool

	// MarkCurrent records that target was verified current without rewriting it.
	MarkCurrent(target string) error
}
