package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/core/domain"
)

func TestParseABI(t *testing.T) {
	tests := []struct {
		input string
		want  domain.ABI
	}{
		{"arm64", domain.ABIArm64},
		{"x86_64", domain.ABIx8664},
		{"armv7+llvm", domain.ABIArmv7 | domain.ABILLVM},
		{"armv7+llvm+thumb2", domain.ABIArmv7 | domain.ABILLVM | domain.ABIThumb},
		{"arm64_32", domain.ABIArm6432},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := domain.ParseABI(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestParseABI_Invalid(t *testing.T) {
	for _, in := range []string{"", "mips", "arm64+fast"} {
		_, err := domain.ParseABI(in)
		assert.Error(t, err, in)
	}
}

func TestABI_Covers(t *testing.T) {
	armv7LLVM := domain.ABIArmv7 | domain.ABILLVM

	assert.True(t, armv7LLVM.Covers(domain.ABIArmv7))
	assert.False(t, domain.ABIArmv7.Covers(armv7LLVM))
	assert.False(t, domain.ABIArm64.Covers(domain.ABIArmv7))
	assert.True(t, domain.ABIArm64.Covers(domain.ABIArm64))
}

func TestABI_Properties(t *testing.T) {
	assert.True(t, domain.ABIArm64.Is64Bit())
	assert.False(t, domain.ABIArmv7.Is64Bit())
	assert.True(t, domain.ABIx8664.IsSimulator())
	assert.False(t, domain.ABIArm64.IsSimulator())
	assert.Equal(t, "armv7", (domain.ABIArmv7 | domain.ABIThumb).ArchName())
}

func TestParseABIs(t *testing.T) {
	abis, err := domain.ParseABIs([]string{"armv7", "arm64"})
	require.NoError(t, err)
	assert.Equal(t, "armv7, arm64", domain.FormatABIs(abis))

	_, err = domain.ParseABIs([]string{"armv7", "armv7+llvm"})
	assert.Error(t, err)
}
