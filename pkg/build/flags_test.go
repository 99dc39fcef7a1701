// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	origName, origTime, origCommit, origVersion := buildName, buildTime, buildCommit, buildVersion
	origInfo := current

	exitCode := m.Run()

	buildName, buildTime, buildCommit, buildVersion = origName, origTime, origCommit, origVersion
	current = origInfo
	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantMissing []string
	}{
		{"Missing name", "", "2026-10-15", "abcdef1", "v1.0.0", []string{"buildName"}},
		{"Missing time", "verb", "", "abcdef1", "v1.0.0", []string{"buildTime"}},
		{"Missing commit and version", "verb", "2026-10-15", "", "", []string{"buildCommit", "buildVersion"}},
		{"Success", "verb", "2026-10-15", "abcdef1", "v1.0.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current = devInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if len(tt.wantMissing) > 0 {
				if !errors.Is(err, ErrMissingFlag) {
					t.Fatalf("Initialize() = %v, want ErrMissingFlag", err)
				}
				for _, flag := range tt.wantMissing {
					if !strings.Contains(err.Error(), flag) {
						t.Errorf("error %q does not name %s", err, flag)
					}
				}
				if Get().Version != "dev" {
					t.Errorf("failed Initialize changed version to %q", Get().Version)
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			info := Get()
			if info.Name != tt.buildName || info.Time != tt.buildTime ||
				info.Commit != tt.buildCommit || info.Version != tt.buildVer {
				t.Errorf("Get() = %+v", info)
			}
			if info.Description == "" {
				t.Error("description should survive Initialize")
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "verb", Version: "v1.2.3", Commit: "abc", Time: "now"}
	if got, want := info.String(), "verb v1.2.3 (commit abc, built now)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
