package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentUsesOverrides(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = " 1.2.3 "
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"
	info := Current()
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc123def456", info.GitCommit)
	assert.Equal(t, "2024-01-15T10:30:00Z", info.BuildDate)

	Version = ""
	assert.Equal(t, "dev", Current().Version)
}

func TestColored(t *testing.T) {
	assert.Equal(t, "1.2.3-beta.1", Colored("1.2.3-beta.1", false))
	assert.Equal(t, "dev", Colored("dev", true))

	out := Colored("0.1.0-dev", true)
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "-dev")
	assert.NotEqual(t, "0.1.0-dev", out)
}
