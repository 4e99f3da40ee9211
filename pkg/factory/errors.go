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
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-extstore/pkg/common"
)

var (
	// ErrUnknownBackend is returned when an unknown backend type is specified.
	ErrUnknownBackend = common.ErrUnknownBackend

	// ErrNilBackend is returned when registering a nil backend.
	ErrNilBackend = errors.New("nil backend")

	// ErrNilResolver is returned when a backend is built without a
	// credential resolver.
	ErrNilResolver = fmt.Errorf("%w: no credential resolver", common.ErrNotConfigured)
)
