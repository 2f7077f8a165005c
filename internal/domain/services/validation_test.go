package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/plugship/internal/domain/entities"
)

func TestPermissivePolicy_AcceptsAnything(t *testing.T) {
	d := &entities.Descriptor{
		Platform:      entities.PlatformTarget{Edition: "XX"},
		LanguageLevel: "seventeen",
		Compatibility: entities.CompatibilityRange{SinceBuild: "300", UntilBuild: "241.*"},
	}
	assert.Empty(t, PermissivePolicy{}.Validate(d))
}

func TestStrictPolicy_ReferenceDescriptorIsValid(t *testing.T) {
	assert.Empty(t, StrictPolicy{}.Validate(entities.ReferenceDescriptor()))
}

func TestStrictPolicy_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *entities.Descriptor)
		field  string
	}{
		{"empty group", func(d *entities.Descriptor) { d.Identity.Group = " " }, "group"},
		{"empty version", func(d *entities.Descriptor) { d.Identity.Version = "" }, "version"},
		{"unknown edition", func(d *entities.Descriptor) { d.Platform.Edition = "PY" }, "platform.type"},
		{"blank plugin id", func(d *entities.Descriptor) { d.Platform.RequiredPlugins = []string{"Git4Idea", ""} }, "platform.plugins[1]"},
		{"bad language level", func(d *entities.Descriptor) { d.LanguageLevel = "jdk17" }, "java"},
		{"bad since build", func(d *entities.Descriptor) { d.Compatibility.SinceBuild = "232.x" }, "compatibility.since_build"},
		{"wildcard in since build", func(d *entities.Descriptor) { d.Compatibility.SinceBuild = "232.*" }, "compatibility.since_build"},
		{"bad until build", func(d *entities.Descriptor) { d.Compatibility.UntilBuild = "*.241" }, "compatibility.until_build"},
		{"inverted range", func(d *entities.Descriptor) { d.Compatibility.SinceBuild = "242" }, "compatibility"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := entities.ReferenceDescriptor()
			tt.mutate(d)
			violations := StrictPolicy{}.Validate(d)
			require.Len(t, violations, 1, "violations: %v", violations)
			assert.Equal(t, tt.field, violations[0].Field)
		})
	}
}

func TestStrictPolicy_OpenEndedRange(t *testing.T) {
	d := entities.ReferenceDescriptor()
	d.Compatibility.UntilBuild = ""
	assert.Empty(t, StrictPolicy{}.Validate(d))
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	assert.Equal(t, PolicyPermissive, p.Name())

	p, err = PolicyByName("strict")
	require.NoError(t, err)
	assert.Equal(t, PolicyStrict, p.Name())

	_, err = PolicyByName("paranoid")
	assert.Error(t, err)
}

func TestCompareBuildNumbers(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"232", "241.*", -1},
		{"241", "241.*", 0},
		{"241.15989", "241.*", 0},
		{"242", "241.*", 1},
		{"241.5", "241", 1},
		{"241", "241.0", 0},
		{"233.11799.241", "233.11799.300", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a, err := ParseBuildNumber(tt.a, false)
			require.NoError(t, err)
			b, err := ParseBuildNumber(tt.b, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, CompareBuildNumbers(a, b))
		})
	}
}

func TestParseBuildNumber_Rejects(t *testing.T) {
	for _, s := range []string{"", "*", "241.*.1", "241..1", "-1", "a.b"} {
		_, err := ParseBuildNumber(s, true)
		assert.Error(t, err, s)
	}
}

func TestRangeIsConsistent(t *testing.T) {
	assert.True(t, RangeIsConsistent(entities.CompatibilityRange{SinceBuild: "232", UntilBuild: "241.*"}))
	assert.True(t, RangeIsConsistent(entities.CompatibilityRange{SinceBuild: "232"}))
	assert.False(t, RangeIsConsistent(entities.CompatibilityRange{SinceBuild: "242.1", UntilBuild: "241.*"}))
}
