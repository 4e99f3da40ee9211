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

package factory

import (
	"github.com/jeremyhahn/go-extstore/pkg/common"
	"github.com/jeremyhahn/go-extstore/pkg/memory"
)

func init() {
	RegisterBackend(memory.StorageType, func(deps Dependencies) (common.Backend, error) {
		opts := memory.DefaultOptions()
		if deps.Logger != nil {
			opts.Logger = deps.Logger
		}
		if deps.Memory != nil {
			copied := *deps.Memory
			if copied.Logger == nil {
				copied.Logger = opts.Logger
			}
			opts = &copied
		}
		return memory.New(deps.Resolver, opts), nil
	})
}
