package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUseCase(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadUseCases(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeUseCase(t, dir, "z_baggage.yaml", `
metadata:
  id: unattended_baggage
  severity: high
rules:
  - type: static_object_dwell
    classes: [bag, suitcase]
    dwell_seconds: 1
`)
	writeUseCase(t, dir, "camera_tampering.yaml", `
rules:
  - kind: blur_detect
    variance_threshold: 100
  - type: teleport_detect
    radius: 3
`)
	writeUseCase(t, dir, "notes.txt", "not a use case")

	ucs, err := LoadUseCases(dir)
	require.NoError(t, err)
	require.Len(t, ucs, 2)

	assert.Equal(t, "camera_tampering", ucs[0].ID)
	assert.Equal(t, "camera_tampering", ucs[0].Metadata["id"])
	require.Len(t, ucs[0].Rules, 2)
	assert.Equal(t, KindBlurDetect, ucs[0].Rules[0].Kind)
	assert.Equal(t, 100.0, ucs[0].Rules[0].Params.Float("variance_threshold", 0))
	assert.Equal(t, KindUnknown, ucs[0].Rules[1].Kind)
	assert.Equal(t, "teleport_detect", ucs[0].Rules[1].Name)

	bag := ucs[1]
	assert.Equal(t, "unattended_baggage", bag.ID)
	assert.Equal(t, "high", bag.Metadata["severity"])
	require.Len(t, bag.Rules, 1)
	r := bag.Rules[0]
	assert.Equal(t, KindStaticObjectDwell, r.Kind)
	assert.False(t, r.Params.Has("type"))
	assert.Equal(t, []string{"bag", "suitcase"}, r.Params.Strings("classes"))
	assert.Equal(t, 1.0, r.Params.Float("dwell_seconds", 30))
}

func TestLoadUseCasesErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeUseCase(t, dir, "broken.yaml", "rules: [unterminated")
	_, err := LoadUseCases(dir)
	assert.Error(t, err)

	ucs, err := LoadUseCases(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ucs)
}

func TestParseKind(t *testing.T) {
	t.Parallel()

	cases := map[string]Kind{
		"line_crossing":       KindLineCrossing,
		"STATIC_OBJECT_DWELL": KindStaticObjectDwell,
		" frs_match ":         KindFRSMatch,
		"identity_match":      KindFRSMatch,
		"pose_phone_usage":    KindPosePhoneUsage,
		"unknown":             KindUnknown,
		"":                    KindUnknown,
		"made_up":             KindUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, ParseKind(name), name)
	}
	assert.Equal(t, "pose_gesture", KindPoseGesture.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.True(t, KindBlurDetect.Handled())
	assert.False(t, KindUnknown.Handled())
}

func TestParams(t *testing.T) {
	t.Parallel()

	p := Params{"n": 3, "f": 0.5, "s": "abc", "one": "bag", "b": true, "nil": nil}
	assert.Equal(t, 3.0, p.Float("n", 0))
	assert.Equal(t, 7.0, p.Float("missing", 7))
	assert.Equal(t, 7.0, p.Float("s", 7))
	_, ok := p.OptFloat("nil")
	assert.False(t, ok)
	assert.Equal(t, "abc", p.String("s", ""))
	assert.Equal(t, "3", p.String("n", ""))
	assert.Equal(t, []string{"bag"}, p.Strings("one"))
	assert.Nil(t, p.Strings("missing"))
	assert.True(t, p.Bool("b"))
	assert.False(t, p.Bool("s"))
}
