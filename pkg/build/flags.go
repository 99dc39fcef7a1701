// SPDX-License-Identifier: MIT
//
// Package build exposes version metadata stamped into the binary at link
// time:
//
//	go build -ldflags "-X verb/pkg/build.buildName=verb \
//	    -X verb/pkg/build.buildVersion=0.1.0 \
//	    -X verb/pkg/build.buildCommit=$(git rev-parse --short HEAD) \
//	    -X verb/pkg/build.buildTime=$(date -u +%FT%TZ)"
//
// Development builds run without the flags and report "dev" values.
package build

import (
	"errors"
	"fmt"
)

// Info is the build metadata of the running binary.
type Info struct {
	Name        string
	Description string
	Version     string
	Commit      string
	Time        string
}

// String renders a one-line version banner.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	current = devInfo()
)

var ErrMissingFlag = errors.New("build flag is required")

func devInfo() Info {
	return Info{
		Name:        "verb",
		Description: "Multi-tap delay-line reverb",
		Version:     "dev",
		Commit:      "unknown",
		Time:        "unknown",
	}
}

// Initialize copies the link-time values into the build info. Every flag
// must be present; on error the development defaults stay in place and the
// error names each missing flag.
func Initialize() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"buildName", buildName},
		{"buildTime", buildTime},
		{"buildCommit", buildCommit},
		{"buildVersion", buildVersion},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingFlag, f.name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	current.Name = buildName
	current.Time = buildTime
	current.Commit = buildCommit
	current.Version = buildVersion
	return nil
}

// Get returns the current build info.
func Get() Info {
	return current
}
