// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestMain(m *testing.M) {
	origName, origTime, origCommit, origVersion := buildName, buildTime, buildCommit, buildVersion
	origInfo := *buildInfo

	exitCode := m.Run()

	buildName, buildTime, buildCommit, buildVersion = origName, origTime, origCommit, origVersion
	*buildInfo = origInfo
	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		missing     string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "BuildName"},
		{"Missing BuildTime", "testapp", "", "abcdef123", "v1.0.0", "BuildTime"},
		{"Missing BuildCommit", "testapp", "2025-04-13", "", "v1.0.0", "BuildCommit"},
		{"Missing BuildVersion", "testapp", "2025-04-13", "abcdef123", "", "BuildVersion"},
		{"Success Case", "testapp", "2025-04-13", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = defaultInfo()
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()

			if tt.missing != "" {
				if !errors.Is(err, ErrMissingFlag) || !strings.Contains(err.Error(), tt.missing) {
					t.Fatalf("Initialize() error = %v, want missing %s", err, tt.missing)
				}
				if buildInfo.Version != "dev" {
					t.Errorf("failed Initialize changed Version to %q", buildInfo.Version)
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			got := GetBuildInfo()
			if got.Name != tt.buildName || got.Time != tt.buildTime || got.Commit != tt.buildCommit || got.Version != tt.buildVer {
				t.Errorf("GetBuildInfo() = %+v", got)
			}
		})
	}
}

func TestInstanceID(t *testing.T) {
	a, b := defaultInfo(), defaultInfo()
	if _, err := uuid.Parse(a.Instance); err != nil {
		t.Errorf("Instance %q is not a UUID: %v", a.Instance, err)
	}
	if a.Instance == b.Instance {
		t.Error("instance IDs should differ between processes")
	}
	if !strings.Contains(a.String(), a.Instance) {
		t.Errorf("String() = %q", a.String())
	}
}
