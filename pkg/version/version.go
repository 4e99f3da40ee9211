// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-extstore.
//
// go-extstore is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package version

import (
	"runtime/debug"
	"strings"
)

// Version and Commit are set at build time:
//
//	go build -ldflags "-X github.com/jeremyhahn/go-extstore/pkg/version.Version=1.0.0 \
//	  -X github.com/jeremyhahn/go-extstore/pkg/version.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "0.1.0-alpha"
	Commit  = ""
)

// Get returns the application version string, suffixed with the commit
// when one is known.
func Get() string {
	v := strings.TrimSpace(Version)
	if c := commit(); c != "" {
		return v + "+" + c
	}
	return v
}

// commit falls back to the VCS revision embedded by the go toolchain.
func commit() string {
	if Commit != "" {
		return strings.TrimSpace(Commit)
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
