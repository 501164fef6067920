package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestInfoRendering(t *testing.T) {
	info := Info{
		Version:   "0.3.0",
		GitCommit: "1f2e3d",
		BuildTime: "2026-10-01T10:00:00Z",
		GoVersion: "go1.25.1",
	}

	assert.Equal(t, "Version: 0.3.0, GitCommit: 1f2e3d, BuildTime: 2026-10-01T10:00:00Z, GoVersion: go1.25.1", info.String())

	out, err := info.JSON()
	require.NoError(t, err)
	assert.Equal(t, `{
  "version": "0.3.0",
  "gitCommit": "1f2e3d",
  "buildTime": "2026-10-01T10:00:00Z",
  "goVersion": "go1.25.1"
}`, out)
}
