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

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"EXTSTORE_HOST", "EXTSTORE_PORT", "QGIS_MINIO_HOST", "QGIS_MINIO_PORT", "EXTSTORE_BUCKET"} {
		t.Setenv(name, "")
		_ = os.Unsetenv(name)
	}
}

func TestInitConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		v, err := InitConfig("")
		if err != nil {
			t.Fatalf("InitConfig failed: %v", err)
		}

		cfg := GetConfig(v)
		if cfg.Host != "localhost" {
			t.Errorf("Expected default host 'localhost', got %s", cfg.Host)
		}
		if cfg.Port != 80 {
			t.Errorf("Expected default port 80, got %d", cfg.Port)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("Expected default timeout 30s, got %s", cfg.Timeout)
		}
		if cfg.OutputFormat != "text" {
			t.Errorf("Expected default format 'text', got %s", cfg.OutputFormat)
		}
		if !strings.HasSuffix(cfg.AuthFile, ".extstore-auth.json") {
			t.Errorf("Unexpected default auth file %s", cfg.AuthFile)
		}
	})

	t.Run("with config file", func(t *testing.T) {
		clearEnv(t)
		configPath := filepath.Join(t.TempDir(), ".extstore.yaml")
		content := `bucket: test-bucket
auth: test_awss3_auth_config
port: 9000
output-format: json
`
		if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		v, err := InitConfig(configPath)
		if err != nil {
			t.Fatalf("InitConfig failed: %v", err)
		}
		cfg := GetConfig(v)
		if cfg.Bucket != "test-bucket" || cfg.Auth != "test_awss3_auth_config" {
			t.Errorf("Config file values not loaded: %+v", cfg)
		}
		if cfg.Port != 9000 {
			t.Errorf("Expected port 9000, got %d", cfg.Port)
		}
	})

	t.Run("minio environment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QGIS_MINIO_HOST", "minio.test")
		t.Setenv("QGIS_MINIO_PORT", "9000")

		v, err := InitConfig("")
		if err != nil {
			t.Fatalf("InitConfig failed: %v", err)
		}
		cfg := GetConfig(v)
		if cfg.Host != "minio.test" || cfg.Port != 9000 {
			t.Errorf("Expected minio.test:9000, got %s:%d", cfg.Host, cfg.Port)
		}
	})

	t.Run("prefixed environment wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QGIS_MINIO_HOST", "minio.test")
		t.Setenv("EXTSTORE_HOST", "primary.test")
		t.Setenv("EXTSTORE_BUCKET", "env-bucket")

		v, err := InitConfig("")
		if err != nil {
			t.Fatalf("InitConfig failed: %v", err)
		}
		cfg := GetConfig(v)
		if cfg.Host != "primary.test" {
			t.Errorf("Expected primary.test, got %s", cfg.Host)
		}
		if cfg.Bucket != "env-bucket" {
			t.Errorf("Expected env-bucket, got %s", cfg.Bucket)
		}
	})
}

func validConfig() *Config {
	return &Config{
		AuthFile:     "/tmp/auth.json",
		Host:         "localhost",
		Port:         80,
		Timeout:      time.Second,
		OutputFormat: "text",
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"no auth file", func(c *Config) { c.AuthFile = "" }, ErrAuthFileRequired},
		{"bad port", func(c *Config) { c.Port = 70000 }, ErrInvalidPort},
		{"negative port", func(c *Config) { c.Port = -1 }, ErrInvalidPort},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"bad format", func(c *Config) { c.OutputFormat = "yaml" }, ErrUnsupportedOutputFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := ValidateConfig(cfg); err != tt.wantErr {
				t.Errorf("ValidateConfig() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfig_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := validConfig()
	cfg.AuthFile = "~/auth.json"
	if err := ValidateConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.AuthFile != filepath.Join(home, "auth.json") {
		t.Errorf("AuthFile = %s", cfg.AuthFile)
	}
}

func TestValidateObjectConfig(t *testing.T) {
	cfg := validConfig()
	if err := ValidateObjectConfig(cfg); err != ErrAuthNameRequired {
		t.Errorf("expected ErrAuthNameRequired, got %v", err)
	}
	cfg.Auth = "creds"
	if err := ValidateObjectConfig(cfg); err != ErrBucketRequired {
		t.Errorf("expected ErrBucketRequired, got %v", err)
	}
	cfg.Bucket = "test-bucket"
	if err := ValidateObjectConfig(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDisplayConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Bucket = "test-bucket"
	cfg.Token = "supersecret"

	text := DisplayConfig(cfg, "text")
	if !strings.Contains(text, "Bucket: test-bucket") {
		t.Errorf("text output missing bucket: %s", text)
	}
	if strings.Contains(text, "supersecret") {
		t.Error("token must be masked")
	}

	js := DisplayConfig(cfg, "json")
	if !strings.Contains(js, `"bucket": "test-bucket"`) || !strings.Contains(js, `"token": "supe****"`) {
		t.Errorf("unexpected json output: %s", js)
	}

	table := DisplayConfig(cfg, "table")
	if !strings.Contains(table, "Endpoint") {
		t.Errorf("table output missing endpoint: %s", table)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"abc":        "****",
		"minioadmin": "mini****",
		"12345":      "1234****",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
