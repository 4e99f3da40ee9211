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
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/authstore"
	"github.com/jeremyhahn/go-extstore/pkg/common"
	"github.com/jeremyhahn/go-extstore/pkg/factory"
	"github.com/jeremyhahn/go-extstore/pkg/version"
)

// Endpoint is the storage endpoint object requests address.
type Endpoint struct {
	// Host and Port default to localhost:80 when empty
	Host string
	Port int

	// AllowOverride lets clients pick the endpoint with the "host" and
	// "port" query parameters and with absolute locators
	AllowOverride bool
}

// Handler handles HTTP requests for the credential store and backends.
type Handler struct {
	store    *authstore.CredentialStore
	registry *factory.Registry
	endpoint Endpoint
	logger   adapters.Logger
}

// NewHandler creates a new handler.
func NewHandler(store *authstore.CredentialStore, registry *factory.Registry, endpoint Endpoint, logger adapters.Logger) *Handler {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Handler{
		store:    store,
		registry: registry,
		endpoint: endpoint,
		logger:   logger,
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Get(),
	})
}

// ListBackends handles GET /api/v1/backends
func (h *Handler) ListBackends(c *gin.Context) {
	c.JSON(http.StatusOK, BackendsResponse{Backends: h.registry.Types()})
}

// ListAuth handles GET /api/v1/auth
func (h *Handler) ListAuth(c *gin.Context) {
	names := h.store.Names()
	resp := ListAuthResponse{Configs: make([]AuthResponse, 0, len(names))}
	for _, name := range names {
		cfg, err := h.store.ByName(name)
		if err != nil {
			// Removed by a concurrent reload.
			continue
		}
		resp.Configs = append(resp.Configs, describe(cfg))
	}
	resp.Count = len(resp.Configs)
	c.JSON(http.StatusOK, resp)
}

// GetAuth handles GET /api/v1/auth/:name
func (h *Handler) GetAuth(c *gin.Context) {
	cfg, err := h.store.ByName(c.Param("name"))
	if err != nil {
		RespondWithError(c, http.StatusNotFound, "auth config not found")
		return
	}
	c.JSON(http.StatusOK, describe(cfg))
}

// AddAuth handles POST /api/v1/auth
func (h *Handler) AddAuth(c *gin.Context) {
	var req AddAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg := common.NewAuthConfig(req.StorageType)
	cfg.SetName(req.Name)
	for k, v := range req.Config {
		cfg.Set(k, v)
	}

	if _, err := h.store.Store(cfg); err != nil {
		h.logger.Warn(c.Request.Context(), "Rejected auth config",
			adapters.F("name", req.Name),
			adapters.F("error", common.SanitizeErrorMessage(err)))
		RespondWithStorageError(c, err)
		return
	}

	h.logger.Info(c.Request.Context(), "Stored auth config",
		adapters.F("name", cfg.Name),
		adapters.F("storage_type", cfg.StorageType))
	c.JSON(http.StatusCreated, describe(cfg))
}

// GetObject handles GET /api/v1/objects/:type/*key
func (h *Handler) GetObject(c *gin.Context) {
	backend, session, locator, ok := h.resolve(c)
	if !ok {
		return
	}

	data, err := backend.Fetch(c.Request.Context(), locator, session)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(string(locator)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

// PutObject handles PUT /api/v1/objects/:type/*key
func (h *Handler) PutObject(c *gin.Context) {
	backend, session, locator, ok := h.resolve(c)
	if !ok {
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondWithStorageError(c, err)
		return
	}

	if err := backend.Store(c.Request.Context(), locator, data, session); err != nil {
		RespondWithStorageError(c, err)
		return
	}

	c.JSON(http.StatusCreated, StoreResponse{
		Locator: string(locator),
		Size:    len(data),
	})
}

// resolve builds the backend, session, and locator for an object request.
// The auth config is picked by the "auth" name or the "handle" query
// parameter and "bucket" names the bucket. "locator" overrides the path
// key. Requests naming another endpoint, through "host", "port", or an
// absolute locator, are refused unless the handler allows overrides.
func (h *Handler) resolve(c *gin.Context) (common.Backend, *common.Session, common.ResourceLocator, bool) {
	backend, err := h.registry.BackendFor(c.Param("type"))
	if err != nil {
		RespondWithStorageError(c, err)
		return nil, nil, "", false
	}

	handle := common.StorageHandle(c.Query("handle"))
	if name := c.Query("auth"); name != "" {
		cfg, err := h.store.ByName(name)
		if err != nil {
			RespondWithStorageError(c, err)
			return nil, nil, "", false
		}
		handle = cfg.Handle()
	}

	locator := common.ResourceLocator(strings.TrimPrefix(c.Param("key"), "/"))
	if override := c.Query("locator"); override != "" {
		locator = common.ResourceLocator(override)
	}

	host, port := h.endpoint.Host, h.endpoint.Port
	if !h.endpoint.AllowOverride {
		if c.Query("host") != "" || c.Query("port") != "" || locator.Absolute() {
			h.logger.Warn(c.Request.Context(), "Endpoint override refused",
				adapters.F("client_ip", c.ClientIP()),
				adapters.F("request_id", GetRequestID(c.Request.Context())))
			RespondWithError(c, http.StatusForbidden, "endpoint overrides are disabled on this server")
			return nil, nil, "", false
		}
	} else {
		if q := c.Query("host"); q != "" {
			host = q
		}
		if p := c.Query("port"); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil {
				RespondWithError(c, http.StatusBadRequest, fmt.Sprintf("invalid port %q", p))
				return nil, nil, "", false
			}
		}
	}

	session, err := backend.Configure(host, port, c.Query("bucket"), handle)
	if err != nil {
		RespondWithStorageError(c, err)
		return nil, nil, "", false
	}
	return backend, session, locator, true
}

func describe(cfg *common.AuthConfig) AuthResponse {
	keys := make([]string, 0, len(cfg.Config))
	for k := range cfg.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return AuthResponse{
		Name:        cfg.Name,
		Handle:      cfg.Handle().String(),
		StorageType: cfg.StorageType,
		Keys:        keys,
	}
}
