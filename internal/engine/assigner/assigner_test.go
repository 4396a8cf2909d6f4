package assigner_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mbuild/internal/core/domain"
	"go.trai.ch/mbuild/internal/engine/assigner"
)

func assemblies() []domain.Assembly {
	return []domain.Assembly{
		{Name: "App.exe"},
		{Name: "Shared.dll"},
		{Name: "Xamarin.iOS.dll", SDK: true},
		{Name: "mscorlib.dll", SDK: true},
	}
}

func targets(t *testing.T, values ...string) map[string]domain.BuildTarget {
	t.Helper()
	m, err := domain.ParseBuildTargets(values)
	require.NoError(t, err)
	return m
}

func codes(err error) []domain.Code {
	var out []domain.Code
	for _, d := range domain.CollectDiagnostics(err) {
		out = append(out, d.Code)
	}
	return out
}

func TestAssign_DefaultsToStaticObjects(t *testing.T) {
	res, err := assigner.Assign(assemblies(), nil, false)
	require.NoError(t, err)

	want := []domain.CompilationUnit{
		{Name: "App", Kind: domain.TargetStaticObject, Members: []string{"App.exe"}},
		{Name: "Shared", Kind: domain.TargetStaticObject, Members: []string{"Shared.dll"}},
		{Name: "Xamarin.iOS", Kind: domain.TargetStaticObject, Members: []string{"Xamarin.iOS.dll"}},
		{Name: "mscorlib", Kind: domain.TargetStaticObject, Members: []string{"mscorlib.dll"}},
	}
	if diff := cmp.Diff(want, res.Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.Warnings)
}

func TestAssign_ResolutionOrder(t *testing.T) {
	res, err := assigner.Assign(assemblies(), targets(t,
		"@all=dynamiclibrary",
		"@sdk=framework=Xamarin",
		"mscorlib.dll=staticobject",
	), false)
	require.NoError(t, err)

	want := []domain.CompilationUnit{
		{Name: "App", Kind: domain.TargetDynamicLibrary, Members: []string{"App.exe"}},
		{Name: "Shared", Kind: domain.TargetDynamicLibrary, Members: []string{"Shared.dll"}},
		{Name: "Xamarin", Kind: domain.TargetFramework, Members: []string{"Xamarin.iOS.dll"}},
		{Name: "mscorlib", Kind: domain.TargetStaticObject, Members: []string{"mscorlib.dll"}},
	}
	if diff := cmp.Diff(want, res.Units); diff != "" {
		t.Errorf("units mismatch (-want +got):\n%s", diff)
	}
}

func TestAssign_GroupsByTargetName(t *testing.T) {
	res, err := assigner.Assign(assemblies(), targets(t, "@sdk=framework=Xamarin"), false)
	require.NoError(t, err)

	u, ok := domain.UnitFor(res.Units, "mscorlib.dll")
	require.True(t, ok)
	assert.Equal(t, "Xamarin", u.Name)
	assert.Equal(t, []string{"Xamarin.iOS.dll", "mscorlib.dll"}, u.Members)
}

func TestAssign_OverrideMatchesBaseName(t *testing.T) {
	res, err := assigner.Assign(assemblies(), targets(t, "Shared=framework"), false)
	require.NoError(t, err)

	u, ok := domain.UnitFor(res.Units, "Shared.dll")
	require.True(t, ok)
	assert.Equal(t, domain.TargetFramework, u.Kind)
}

func TestAssign_MixedKinds(t *testing.T) {
	_, err := assigner.Assign(assemblies(), targets(t,
		"Shared.dll=framework=Common",
		"App.exe=dynamiclibrary=Common",
	), false)
	require.Error(t, err)

	diags := domain.CollectDiagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.CodeMixedTargetKinds, diags[0].Code)
	assert.Contains(t, diags[0].Message, "'App.exe'")
	assert.Contains(t, diags[0].Message, "'Shared.dll'")
	assert.Equal(t, domain.ExitConfiguration, domain.ExitCode(err))
}

func TestAssign_StaticObjectWithSeveralMembers(t *testing.T) {
	_, err := assigner.Assign(assemblies(), targets(t, "@sdk=staticobject=Sdk"), false)
	require.Error(t, err)
	assert.Equal(t, []domain.Code{domain.CodeStaticObjectMembers}, codes(err))
	assert.Contains(t, err.Error(), "'Xamarin.iOS.dll', 'mscorlib.dll'")
}

func TestAssign_UnmatchedOverrides(t *testing.T) {
	_, err := assigner.Assign(assemblies(), targets(t, "Sharde.dll=framework", "Missing=dynamiclibrary"), false)
	require.Error(t, err)

	assert.Equal(t, []domain.Code{domain.CodeUnmatchedBuildTarget, domain.CodeUnmatchedBuildTarget}, codes(err))
	assert.Contains(t, err.Error(), "Sharde.dll")
	assert.Contains(t, err.Error(), "Missing")
}

func TestAssign_FastRelaunch(t *testing.T) {
	t.Run("downgrades rich targets", func(t *testing.T) {
		res, err := assigner.Assign(assemblies(), targets(t, "@all=framework", "Shared.dll=staticobject"), true)
		require.NoError(t, err)

		require.Len(t, res.Warnings, 1)
		assert.Equal(t, domain.CodeFastRelaunchDowngrade, res.Warnings[0].Code)
		assert.Contains(t, res.Warnings[0].Message, "@all=framework")
		assert.NotContains(t, res.Warnings[0].Message, "Shared.dll")
		for _, u := range res.Units {
			assert.Equal(t, domain.TargetStaticObject, u.Kind, u.Name)
		}
	})

	t.Run("silent without rich targets", func(t *testing.T) {
		res, err := assigner.Assign(assemblies(), nil, true)
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
	})
}
