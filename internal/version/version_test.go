package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldSHA, oldTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldTime })

	assert.Equal(t, "dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "0.3.0", "0123456789abcdef", "2026-01-02T03:04:05Z"
	assert.Equal(t, "0.3.0 (0123456, built 2026-01-02T03:04:05Z)", String())
}
