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
	"net"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultHost is used when a session is configured without a host.
	DefaultHost = "localhost"

	// DefaultPort is used when a session is configured without a port.
	DefaultPort = 80

	// DefaultScheme is the scheme used to build session base URLs.
	DefaultScheme = "http"
)

// StorageHandle is an opaque reference to a persisted AuthConfig.
type StorageHandle string

// String returns the handle as a string.
func (h StorageHandle) String() string {
	return string(h)
}

// AuthConfig is a named bundle of credential and connection settings for
// one storage type.
type AuthConfig struct {
	// ID is assigned when the config is persisted
	ID string `json:"id"`

	// Name is the unique lookup key
	Name string `json:"name"`

	// StorageType is the backend tag this config authenticates, e.g. "AWSS3"
	StorageType string `json:"storage_type"`

	// Config holds the settings, e.g. username, password, region
	Config map[string]string `json:"config"`
}

// NewAuthConfig creates an empty config for the given storage type.
func NewAuthConfig(storageType string) *AuthConfig {
	return &AuthConfig{
		StorageType: storageType,
		Config:      make(map[string]string),
	}
}

// SetName sets the lookup name.
func (c *AuthConfig) SetName(name string) {
	c.Name = name
}

// Set sets a config value.
func (c *AuthConfig) Set(key, value string) {
	if c.Config == nil {
		c.Config = make(map[string]string)
	}
	c.Config[key] = value
}

// Get returns a config value, or "" when unset.
func (c *AuthConfig) Get(key string) string {
	return c.Config[key]
}

// Handle returns the storage handle assigned when the config was persisted,
// or "" before that.
func (c *AuthConfig) Handle() StorageHandle {
	return StorageHandle(c.ID)
}

// Clone returns a deep copy.
func (c *AuthConfig) Clone() *AuthConfig {
	clone := *c
	clone.Config = make(map[string]string, len(c.Config))
	for k, v := range c.Config {
		clone.Config[k] = v
	}
	return &clone
}

// Missing returns the required keys that are absent or empty, in order.
func (c *AuthConfig) Missing(required []string) []string {
	var missing []string
	for _, key := range required {
		if c.Config[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// ResourceLocator identifies a remote object. It is either an absolute URL
// (scheme://host[:port]/bucket/key) or a key relative to a session bucket.
type ResourceLocator string

// Location is a parsed ResourceLocator.
type Location struct {
	Scheme string
	Host   string
	Port   int
	Bucket string
	Key    string
}

// Absolute reports whether the locator carries its own endpoint.
func (l ResourceLocator) Absolute() bool {
	return strings.Contains(string(l), "://")
}

// Parse splits the locator into endpoint, bucket, and key. Relative
// locators yield a Location with only Key set. An empty host is accepted;
// whether the endpoint exists is decided at I/O time.
func (l ResourceLocator) Parse() (*Location, error) {
	raw := strings.TrimSpace(string(l))
	if raw == "" {
		return nil, fmt.Errorf("%w: empty locator", ErrInvalidLocator)
	}
	if !l.Absolute() {
		return &Location{Key: strings.TrimPrefix(raw, "/")}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocator, u.Scheme)
	}

	loc := &Location{Scheme: u.Scheme, Host: u.Hostname()}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("%w: invalid port %q", ErrInvalidLocator, p)
		}
		loc.Port = port
	} else if u.Scheme == "https" {
		loc.Port = 443
	} else {
		loc.Port = 80
	}

	path := strings.TrimPrefix(u.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	loc.Bucket = bucket
	loc.Key = key
	return loc, nil
}

// Endpoint returns scheme://host:port.
func (l *Location) Endpoint() string {
	return l.Scheme + "://" + l.HostPort()
}

// HostPort returns host:port suitable for dialing.
func (l *Location) HostPort() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(l.Port))
}

// String rebuilds the absolute URL.
func (l *Location) String() string {
	s := l.Endpoint() + "/" + l.Bucket
	if l.Key != "" {
		s += "/" + l.Key
	}
	return s
}

// Session is an addressable, credential-bound view of one bucket. It is a
// plain value: building one performs no I/O.
type Session struct {
	Scheme      string
	Host        string
	Port        int
	Bucket      string
	Handle      StorageHandle
	StorageType string
}

// BaseURL returns the bucket URL, http://{host}:{port}/{bucket}.
func (s *Session) BaseURL() string {
	return fmt.Sprintf("%s://%s/%s", s.Scheme, net.JoinHostPort(s.Host, strconv.Itoa(s.Port)), s.Bucket)
}

// Resolve returns the effective location of a locator within the session.
// Absolute locators carry their own endpoint and bucket; relative ones are
// joined to the session's.
func (s *Session) Resolve(locator ResourceLocator) (*Location, error) {
	if s == nil {
		return nil, ErrNotConfigured
	}
	loc, err := locator.Parse()
	if err != nil {
		return nil, err
	}
	if loc.Scheme == "" {
		loc.Scheme = s.Scheme
		loc.Host = s.Host
		loc.Port = s.Port
		loc.Bucket = s.Bucket
	}
	return loc, nil
}
