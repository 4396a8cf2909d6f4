package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// ABI is a target processor architecture plus optional code generation flags.
// The low 16 bits hold the architecture, the high bits hold flags.
type ABI uint32

const (
	// ABINone is the zero ABI.
	ABINone ABI = 0

	ABIArmv7   ABI = 1
	ABIArmv7s  ABI = 2
	ABIArmv7k  ABI = 4
	ABIArm64   ABI = 8
	ABIArm64e  ABI = 16
	ABIArm6432 ABI = 32
	ABIi386    ABI = 64
	ABIx8664   ABI = 128

	// ABIArchMask selects the architecture bits.
	ABIArchMask ABI = 0xFFFF

	ABILLVM    ABI = 0x10000
	ABIThumb   ABI = 0x20000
	ABIBitcode ABI = 0x40000

	// ABIFlagsMask selects the flag bits.
	ABIFlagsMask ABI = 0xFFFF0000
)

var archNames = []struct {
	abi  ABI
	name string
}{
	{ABIArmv7, "armv7"},
	{ABIArmv7s, "armv7s"},
	{ABIArmv7k, "armv7k"},
	{ABIArm64, "arm64"},
	{ABIArm64e, "arm64e"},
	{ABIArm6432, "arm64_32"},
	{ABIi386, "i386"},
	{ABIx8664, "x86_64"},
}

var flagNames = []struct {
	abi  ABI
	name string
}{
	{ABILLVM, "llvm"},
	{ABIThumb, "thumb2"},
	{ABIBitcode, "bitcode"},
}

// ParseABI parses strings such as "arm64", "armv7+llvm" or "armv7+llvm+thumb2".
func ParseABI(s string) (ABI, error) {
	parts := strings.Split(strings.TrimSpace(s), "+")
	var abi ABI
	for _, a := range archNames {
		if a.name == parts[0] {
			abi = a.abi
			break
		}
	}
	if abi == ABINone {
		return ABINone, zerr.With(ErrInvalidABI, "abi", s)
	}

	for _, part := range parts[1:] {
		found := false
		for _, f := range flagNames {
			if f.name == part {
				abi |= f.abi
				found = true
				break
			}
		}
		if !found {
			return ABINone, zerr.With(zerr.With(ErrInvalidABI, "abi", s), "flag", part)
		}
	}
	return abi, nil
}

// Arch returns the ABI with every flag cleared.
func (a ABI) Arch() ABI {
	return a & ABIArchMask
}

// Flags returns only the flag bits.
func (a ABI) Flags() ABI {
	return a & ABIFlagsMask
}

// ArchName is the name the native toolchain uses for the architecture (clang -arch, lipo).
func (a ABI) ArchName() string {
	arch := a.Arch()
	for _, n := range archNames {
		if n.abi == arch {
			return n.name
		}
	}
	return "unknown"
}

// String renders the ABI the same way ParseABI reads it.
func (a ABI) String() string {
	var b strings.Builder
	b.WriteString(a.ArchName())
	for _, f := range flagNames {
		if a&f.abi != 0 {
			b.WriteString("+")
			b.WriteString(f.name)
		}
	}
	return b.String()
}

// Is64Bit reports whether the architecture uses 64-bit pointers in its native slice.
func (a ABI) Is64Bit() bool {
	switch a.Arch() {
	case ABIArm64, ABIArm64e, ABIx8664:
		return true
	default:
		return false
	}
}

// IsSimulator reports whether the architecture is a simulator architecture.
func (a ABI) IsSimulator() bool {
	switch a.Arch() {
	case ABIi386, ABIx8664:
		return true
	default:
		return false
	}
}

// Covers reports whether code built for a can stand in for code built for other:
// the architectures match and every flag other requires is also set on a.
func (a ABI) Covers(other ABI) bool {
	if a.Arch() != other.Arch() {
		return false
	}
	return other.Flags()&^a.Flags() == 0
}

// ParseABIs parses a list of ABI strings, rejecting duplicate architectures.
func ParseABIs(values []string) ([]ABI, error) {
	abis := make([]ABI, 0, len(values))
	for _, v := range values {
		abi, err := ParseABI(v)
		if err != nil {
			return nil, err
		}
		if slices.ContainsFunc(abis, func(existing ABI) bool { return existing.Arch() == abi.Arch() }) {
			return nil, zerr.With(zerr.Wrap(ErrInvalidABI, "architecture listed twice"), "abi", v)
		}
		abis = append(abis, abi)
	}
	return abis, nil
}

// FormatABIs joins ABIs for diagnostics.
func FormatABIs(abis []ABI) string {
	names := make([]string, len(abis))
	for i, a := range abis {
		names[i] = a.String()
	}
	return strings.Join(names, ", ")
}
