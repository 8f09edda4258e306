package version

import (
	"runtime/debug"
	"testing"
)

func withVars(t *testing.T, v, c string) {
	t.Helper()
	oldV, oldC := Version, Commit
	Version, Commit = v, c
	t.Cleanup(func() { Version, Commit = oldV, oldC })
}

func TestFillFromBuildInfo(t *testing.T) {
	withVars(t, "", "")

	fillFromBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "(devel)"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
				{Key: "vcs.time", Value: "2026-10-19T08:00:00Z"},
			},
		}, true
	})

	if Commit != "0123456-dirty" {
		t.Errorf("Commit = %q", Commit)
	}
	if Version != "dev-20261019" {
		t.Errorf("Version = %q", Version)
	}
}

func TestFillFromBuildInfo_ModuleVersion(t *testing.T) {
	withVars(t, "", "")

	fillFromBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "v0.3.0"}}, true
	})

	if Version != "v0.3.0" {
		t.Errorf("Version = %q, want v0.3.0", Version)
	}
	if Commit != "" {
		t.Errorf("Commit = %q, want empty without vcs info", Commit)
	}
}

func TestFillFromBuildInfo_KeepsLdflags(t *testing.T) {
	withVars(t, "v1.0.0", "")

	fillFromBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main:     debug.Module{Version: "v9.9.9"},
			Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}},
		}, true
	})

	if Version != "v1.0.0" {
		t.Errorf("Version overwritten: %q", Version)
	}
	if Commit != "abc" {
		t.Errorf("Commit = %q, want abc", Commit)
	}
}

func TestFull(t *testing.T) {
	withVars(t, "v0.3.0", "abc1234")
	if got := Full(); got != "v0.3.0 (commit: abc1234)" {
		t.Errorf("Full() = %q", got)
	}
	if Short() != "v0.3.0" {
		t.Errorf("Short() = %q", Short())
	}
}
