package common

import (
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetBuildInfo_StampedValues(t *testing.T) {
	oldVersion, oldBuild, oldCommit := Version, Build, GitCommit
	t.Cleanup(func() { Version, Build, GitCommit = oldVersion, oldBuild, oldCommit })

	Version, Build, GitCommit = "1.4.0", "2025-03-14", "abc1234"

	info := GetBuildInfo()
	assert.Equal(t, "1.4.0", info.Version)
	assert.Equal(t, "abc1234", info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, "1.4.0 (build: 2025-03-14, commit: abc1234, "+runtime.Version()+")", GetFullVersion())
}

func TestVCSRevision(t *testing.T) {
	assert.Equal(t, "", vcsRevision(nil))
	assert.Equal(t, "0123456789ab", vcsRevision([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
	}))
	assert.Equal(t, "abc-dirty", vcsRevision([]debug.BuildSetting{
		{Key: "vcs.revision", Value: "abc"},
		{Key: "vcs.modified", Value: "true"},
	}))
}
