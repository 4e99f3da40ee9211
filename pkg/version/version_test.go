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
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	v := Get()
	if v == "" {
		t.Fatal("Expected non-empty version")
	}
	if !strings.HasPrefix(v, Version) {
		t.Errorf("Get() = %q, want prefix %q", v, Version)
	}
	if v != strings.TrimSpace(v) {
		t.Errorf("Get() returned untrimmed version: %q", v)
	}
}

func TestGet_Commit(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version = " 1.2.3 "
	Commit = "abc1234"
	if got := Get(); got != "1.2.3+abc1234" {
		t.Errorf("Get() = %q, want %q", got, "1.2.3+abc1234")
	}
}
