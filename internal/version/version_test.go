package version

import (
	"strings"
	"testing"
)

func restore(t *testing.T) {
	t.Helper()
	v, c, d := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = v, c, d
	})
}

func TestColoredPlainEqualsVersion(t *testing.T) {
	restore(t)
	for _, v := range []string{"0.1.0-dev", "1.2.3", "1.2.3-rc.1+build.123", "weird"} {
		Version = v
		if got := Colored(false); got != v {
			t.Fatalf("Colored(false) = %q, want %q", got, v)
		}
	}
}

func TestColoredKeepsSuffix(t *testing.T) {
	restore(t)
	Version = "2.0.1-beta"
	got := Colored(true)
	if !strings.HasSuffix(got, "-beta") || !strings.Contains(got, "\x1b[") {
		t.Fatalf("Colored(true) = %q", got)
	}
}

func TestString(t *testing.T) {
	restore(t)
	Version = "1.0.0"
	for _, tc := range []struct {
		commit, date, want string
	}{
		{"", "", "kiln 1.0.0"},
		{"abc123", "", "kiln 1.0.0 (abc123)"},
		{"abc123", "2026-01-15", "kiln 1.0.0 (abc123, 2026-01-15)"},
		{"", "2026-01-15", "kiln 1.0.0 (2026-01-15)"},
	} {
		GitCommit, BuildDate = tc.commit, tc.date
		if got := String(false); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
	}
}
