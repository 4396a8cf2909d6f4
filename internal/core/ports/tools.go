package ports

import "context"

// NativeTools are the binary manipulation tools the bundle assembler needs.
//
//go:generate mockgen -source=tools.go -destination=mocks/mock_tools.go -package=mocks
type NativeTools interface {
	// Archs lists the architecture slices of a binary.
	Archs(ctx context.Context, path string) ([]string, error)

	// Thin rewrites path in place so that it only contains archs.
	Thin(ctx context.Context, path string, archs []string) error

	// CreateFat merges per-architecture inputs into output.
	CreateFat(ctx context.Context, output string, inputs []string) error

	// StripBitcode removes embedded bitcode from path in place.
	StripBitcode(ctx context.Context, path string) error
}
