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
	"os"
	"strconv"
	"time"

	"github.com/jeremyhahn/go-extstore/pkg/adapters"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

const (
	// EnvMinIOHost names the variable holding the test endpoint host.
	EnvMinIOHost = "QGIS_MINIO_HOST"

	// EnvMinIOPort names the variable holding the test endpoint port.
	EnvMinIOPort = "QGIS_MINIO_PORT"

	// DefaultRegion is used when an auth config leaves region empty.
	DefaultRegion = "us-east-1"
)

// Options contains configuration options for the S3 backend.
type Options struct {
	// Timeout bounds each Fetch or Store, including retries (default: 30s)
	Timeout time.Duration

	// DialTimeout bounds connection establishment (default: 5s)
	DialTimeout time.Duration

	// MaxAttempts is the SDK retry budget per request (default: 3)
	MaxAttempts int

	// RequestsPerSecond throttles requests across all sessions (0 = unlimited)
	RequestsPerSecond float64

	// Burst is the limiter burst size (default: 1 when throttling)
	Burst int

	// Logger is the pluggable logger adapter (default: NoOpLogger)
	Logger adapters.Logger
}

// DefaultOptions returns the default backend options.
func DefaultOptions() *Options {
	return &Options{
		Timeout:     30 * time.Second,
		DialTimeout: 5 * time.Second,
		MaxAttempts: 3,
		Logger:      adapters.NewNoOpLogger(),
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o *Options) withDefaults() *Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = d.Timeout
	}
	if out.DialTimeout <= 0 {
		out.DialTimeout = d.DialTimeout
	}
	if out.MaxAttempts <= 0 {
		out.MaxAttempts = d.MaxAttempts
	}
	if out.RequestsPerSecond > 0 && out.Burst <= 0 {
		out.Burst = 1
	}
	if out.Logger == nil {
		out.Logger = d.Logger
	}
	return &out
}

// EndpointFromEnv returns the endpoint host and port from QGIS_MINIO_HOST
// and QGIS_MINIO_PORT, defaulting to localhost:80.
func EndpointFromEnv() (string, int) {
	host := os.Getenv(EnvMinIOHost)
	if host == "" {
		host = common.DefaultHost
	}
	port := common.DefaultPort
	if p, err := strconv.Atoi(os.Getenv(EnvMinIOPort)); err == nil && p > 0 {
		port = p
	}
	return host, port
}
