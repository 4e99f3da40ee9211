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
	"github.com/jeremyhahn/go-extstore/pkg/awss3"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

func init() {
	RegisterBackend(awss3.StorageType, func(deps Dependencies) (common.Backend, error) {
		opts := awss3.DefaultOptions()
		if deps.Logger != nil {
			opts.Logger = deps.Logger
		}
		if deps.S3 != nil {
			copied := *deps.S3
			if copied.Logger == nil {
				copied.Logger = opts.Logger
			}
			opts = &copied
		}
		return awss3.New(deps.Resolver, opts), nil
	})
}
