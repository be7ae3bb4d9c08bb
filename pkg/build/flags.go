// SPDX-License-Identifier: MIT
//
// Package build exposes the metadata linked into the binary with -ldflags:
//
//	go build -ldflags "-X pulse/pkg/build.buildName=pulse -X pulse/pkg/build.buildVersion=0.3.0 ..."
//
// Development builds carry placeholder values. Every process also gets an
// instance ID so that log lines, metrics and UDP consumers can tell restarts
// apart.
package build

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrMissingFlag = errors.New("build flag is required")

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
	Instance    string // Random per process.
}

func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, instance %s)", i.Name, i.Version, i.Commit, i.Time, i.Instance)
}

// Package-level variables populated by -ldflags during compilation.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "pulse",
		Description: "Audio and hand driven animation engine",
		Time:        "unknown",
		Commit:      "unknown",
		Version:     "dev",
		Instance:    uuid.NewString(),
	}
}

// Initialize validates the ldflags variables and copies them into the build
// info. On error the development placeholders stay in place, so callers may
// log the error and carry on.
func Initialize() error {
	for _, f := range []struct{ name, value string }{
		{"BuildName", buildName},
		{"BuildTime", buildTime},
		{"BuildCommit", buildCommit},
		{"BuildVersion", buildVersion},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s", ErrMissingFlag, f.name)
		}
	}

	buildInfo.Name = buildName
	buildInfo.Time = buildTime
	buildInfo.Commit = buildCommit
	buildInfo.Version = buildVersion
	return nil
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() *Info {
	return buildInfo
}
