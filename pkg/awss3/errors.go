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

package awss3

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// Error codes returned by S3 and MinIO, grouped by taxonomy kind.
var (
	notFoundCodes = map[string]bool{
		"NoSuchKey":    true,
		"NoSuchBucket": true,
		"NotFound":     true,
	}
	authCodes = map[string]bool{
		"AccessDenied":                 true,
		"InvalidAccessKeyId":           true,
		"SignatureDoesNotMatch":        true,
		"InvalidToken":                 true,
		"ExpiredToken":                 true,
		"AuthorizationHeaderMalformed": true,
	}
	quotaCodes = map[string]bool{
		"QuotaExceeded":                  true,
		"XMinioStorageFull":              true,
		"XMinioAdminBucketQuotaExceeded": true,
	}
)

// classify maps an SDK error onto the common taxonomy. The original error
// stays in the chain so callers can still inspect SDK details.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case notFoundCodes[code]:
			return fmt.Errorf("%w: %w", common.ErrNotFound, err)
		case authCodes[code]:
			return fmt.Errorf("%w: %w", common.ErrAuthFailed, err)
		case quotaCodes[code]:
			return fmt.Errorf("%w: %w", common.ErrQuotaExceeded, err)
		}
	}

	// Transport failures reach us wrapped in a ResponseError whose status
	// is zero, so they must be recognised before the status switch.
	var sendErr *smithyhttp.RequestSendError
	var netErr net.Error
	switch {
	case errors.As(err, &sendErr),
		errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", common.ErrUnreachable, err)
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch statusCode(respErr) {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", common.ErrNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", common.ErrAuthFailed, err)
		case http.StatusInsufficientStorage:
			return fmt.Errorf("%w: %w", common.ErrQuotaExceeded, err)
		}
		return err
	}

	if errors.Is(err, common.ErrUnknownHandle) {
		return fmt.Errorf("%w: %w", common.ErrAuthFailed, err)
	}
	return err
}

// statusCode returns the HTTP status of respErr, or 0 when no response
// was received.
func statusCode(respErr *awshttp.ResponseError) int {
	if respErr.ResponseError == nil || respErr.Response == nil || respErr.Response.Response == nil {
		return 0
	}
	return respErr.HTTPStatusCode()
}
