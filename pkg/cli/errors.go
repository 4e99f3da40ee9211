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

package cli

import "errors"

var (
	// Configuration errors

	// ErrAuthFileRequired is returned when auth-file is empty.
	ErrAuthFileRequired = errors.New("auth-file is required")

	// ErrAuthNameRequired is returned when an object command runs without --auth.
	ErrAuthNameRequired = errors.New("auth is required: name of a stored auth config")

	// ErrBucketRequired is returned when bucket is required but not set.
	ErrBucketRequired = errors.New("bucket is required")

	// ErrInvalidPort is returned when port is outside 0-65535.
	ErrInvalidPort = errors.New("port must be between 0 and 65535")

	// ErrInvalidTimeout is returned when timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrUnsupportedOutputFormat is returned when an unsupported output format is specified.
	ErrUnsupportedOutputFormat = errors.New("unsupported output format")

	// Command errors

	// ErrInvalidSetting is returned when a --set value is not key=value.
	ErrInvalidSetting = errors.New("setting must be key=value")
)
