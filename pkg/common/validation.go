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

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxKeyLength is the maximum allowed length for object keys
	MaxKeyLength = 1024

	// MinBucketLength and MaxBucketLength bound S3-style bucket names
	MinBucketLength = 3
	MaxBucketLength = 63
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap lets errors.Is match ValidationError against the locator sentinels.
func (e *ValidationError) Unwrap() error {
	if e.Field == "key" {
		return ErrInvalidKey
	}
	return ErrInvalidLocator
}

// ValidateKey validates an object key.
// Returns error if the key:
// - Is empty
// - Exceeds maximum length
// - Contains null bytes or control characters
// - Contains path traversal segments (..)
// - Contains empty segments (//)
// - Is not valid UTF-8
func ValidateKey(key string) error {
	if key == "" {
		return &ValidationError{Field: "key", Message: "key cannot be empty"}
	}
	if len(key) > MaxKeyLength {
		return &ValidationError{
			Field:   "key",
			Message: fmt.Sprintf("key length exceeds maximum of %d bytes", MaxKeyLength),
		}
	}

	for i := 0; i < len(key); i++ {
		c := key[i]
		if c == '\x00' {
			return &ValidationError{Field: "key", Message: "key cannot contain null bytes"}
		}
		if c < 0x20 || c == 0x7f {
			return &ValidationError{
				Field:   "key",
				Message: fmt.Sprintf("key contains invalid character: %q", string(c)),
			}
		}
	}

	if strings.Contains(key, "//") {
		return &ValidationError{Field: "key", Message: `key contains invalid character sequence: "//"`}
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return &ValidationError{Field: "key", Message: "key cannot contain path traversal sequences (..)"}
		}
	}

	if !utf8.ValidString(key) {
		return &ValidationError{Field: "key", Message: "key must be valid UTF-8"}
	}
	return nil
}

// ValidateBucket validates a bucket name using S3 naming rules:
// 3-63 characters of lowercase letters, digits, dots and hyphens,
// starting and ending with a letter or digit.
func ValidateBucket(bucket string) error {
	if len(bucket) < MinBucketLength || len(bucket) > MaxBucketLength {
		return &ValidationError{
			Field:   "bucket",
			Message: fmt.Sprintf("bucket name must be between %d and %d characters", MinBucketLength, MaxBucketLength),
		}
	}
	for i := 0; i < len(bucket); i++ {
		c := bucket[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '.' || c == '-':
			if i == 0 || i == len(bucket)-1 {
				return &ValidationError{Field: "bucket", Message: "bucket name must start and end with a letter or digit"}
			}
		default:
			return &ValidationError{
				Field:   "bucket",
				Message: fmt.Sprintf("bucket name contains invalid character: %q", string(c)),
			}
		}
	}
	if strings.Contains(bucket, "..") {
		return &ValidationError{Field: "bucket", Message: "bucket name cannot contain consecutive dots"}
	}
	return nil
}

// SanitizeErrorMessage strips credentials that may leak into error strings.
func SanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, "Credential="); i >= 0 {
		end := strings.IndexAny(msg[i:], ", ")
		if end < 0 {
			end = len(msg) - i
		}
		msg = msg[:i] + "Credential=[REDACTED]" + msg[i+end:]
	}
	return msg
}
