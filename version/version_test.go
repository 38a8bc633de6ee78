package version

import "testing"

func TestGetFullVersion(t *testing.T) {
	oldVersion, oldCommit, oldDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = oldVersion, oldCommit, oldDate }()

	Version, GitCommit, BuildDate = "1.2.3", "unknown", "unknown"
	if got := GetFullVersion(); got != "1.2.3" {
		t.Errorf("GetFullVersion failed: expected 1.2.3, got %s", got)
	}

	GitCommit, BuildDate = "abc123", "2026-01-02"
	expected := "1.2.3 (commit abc123, built 2026-01-02)"
	if got := GetFullVersion(); got != expected {
		t.Errorf("GetFullVersion failed: expected %s, got %s", expected, got)
	}
}
