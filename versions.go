// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package csvconduit incrementally parses delimited-text byte streams
// into rows, folds caller logic over them one row at a time, and
// streams transformed rows back out to files.
package csvconduit

import (
	"github.com/maloquacious/semver"
)

var (
	version = semver.Version{
		Major: 0,
		Minor: 2,
		Patch: 0,
		Build: semver.Commit(),
	}
)

func Version() semver.Version {
	return version
}
