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

package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// BackendsResponse lists the resolvable storage types.
type BackendsResponse struct {
	Backends []string `json:"backends"`
}

// AddAuthRequest is the body of POST /api/v1/auth.
type AddAuthRequest struct {
	Name        string            `json:"name" binding:"required"`
	StorageType string            `json:"storage_type" binding:"required"`
	Config      map[string]string `json:"config"`
}

// AuthResponse describes a stored auth config without its values.
type AuthResponse struct {
	Name        string   `json:"name"`
	Handle      string   `json:"handle"`
	StorageType string   `json:"storage_type"`
	Keys        []string `json:"keys"`
}

// ListAuthResponse lists stored auth configs.
type ListAuthResponse struct {
	Configs []AuthResponse `json:"configs"`
	Count   int            `json:"count"`
}

// StoreResponse acknowledges an uploaded object.
type StoreResponse struct {
	Locator string `json:"locator"`
	Size    int    `json:"size"`
}

// kindStatus maps error kinds to HTTP status codes.
var kindStatus = map[string]int{
	"InvalidConfig":  http.StatusBadRequest,
	"DuplicateName":  http.StatusConflict,
	"Unreachable":    http.StatusBadGateway,
	"AuthFailed":     http.StatusForbidden,
	"NotFound":       http.StatusNotFound,
	"QuotaExceeded":  http.StatusInsufficientStorage,
	"UnknownBackend": http.StatusNotFound,
	"InvalidLocator": http.StatusBadRequest,
	"NotConfigured":  http.StatusBadRequest,
}

// StatusFor returns the HTTP status for err.
func StatusFor(err error) int {
	if errors.Is(err, context.Canceled) {
		return 499 // client closed request
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	if status, ok := kindStatus[common.Kind(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondWithError sends an error response
func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: GetRequestID(c.Request.Context()),
	})
}

// RespondWithStorageError sends the response matching err's kind.
func RespondWithStorageError(c *gin.Context, err error) {
	code := StatusFor(err)
	c.JSON(code, ErrorResponse{
		Error:     common.SanitizeErrorMessage(err),
		Code:      code,
		Kind:      common.Kind(err),
		RequestID: GetRequestID(c.Request.Context()),
	})
}
