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

package common

import "errors"

var (
	// Credential errors

	// ErrInvalidConfig is returned when an auth config lacks fields required by its storage type.
	ErrInvalidConfig = errors.New("invalid auth config")

	// ErrDuplicateName is returned when an auth config with the same name is already stored.
	ErrDuplicateName = errors.New("auth config name already exists")

	// ErrUnknownHandle is returned when a storage handle does not resolve to a stored config.
	ErrUnknownHandle = errors.New("unknown storage handle")

	// Backend errors

	// ErrUnreachable is returned when the remote endpoint cannot be resolved or connected.
	ErrUnreachable = errors.New("endpoint unreachable")

	// ErrAuthFailed is returned when the remote endpoint rejects the credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNotFound is returned when the requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrQuotaExceeded is returned when the remote endpoint refuses a write for lack of space.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrNotConfigured is returned when an operation runs without a session.
	ErrNotConfigured = errors.New("not configured")

	// ErrInvalidLocator is returned when a resource locator cannot be addressed.
	ErrInvalidLocator = errors.New("invalid resource locator")

	// ErrInvalidKey is returned when an object key fails validation.
	ErrInvalidKey = errors.New("invalid object key")

	// Registry errors

	// ErrUnknownBackend is returned when no backend is registered for a storage type.
	ErrUnknownBackend = errors.New("unknown backend type")
)

// taxonomy lists the error kinds callers are expected to branch on, in match order.
var taxonomy = []struct {
	err  error
	kind string
}{
	{ErrInvalidConfig, "InvalidConfig"},
	{ErrDuplicateName, "DuplicateName"},
	{ErrUnreachable, "Unreachable"},
	{ErrAuthFailed, "AuthFailed"},
	{ErrNotFound, "NotFound"},
	{ErrQuotaExceeded, "QuotaExceeded"},
	{ErrUnknownBackend, "UnknownBackend"},
	{ErrUnknownHandle, "AuthFailed"},
	{ErrInvalidLocator, "InvalidLocator"},
	{ErrInvalidKey, "InvalidLocator"},
	{ErrNotConfigured, "NotConfigured"},
}

// Kind returns the taxonomy name of err, "" for nil and "Internal" for
// errors outside the taxonomy. Backends are compared by kind so that the
// same scenario yields the same category regardless of implementation.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, t := range taxonomy {
		if errors.Is(err, t.err) {
			return t.kind
		}
	}
	return "Internal"
}
