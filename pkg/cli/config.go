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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jeremyhahn/go-extstore/pkg/authstore"
	"github.com/jeremyhahn/go-extstore/pkg/awss3"
	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// Config holds the CLI configuration settings.
type Config struct {
	AuthFile     string
	StorageType  string // empty uses the auth config's type
	Host         string
	Port         int
	Bucket       string
	Auth         string // name of the stored auth config object commands use
	Timeout      time.Duration
	OutputFormat string
	LogLevel     string
	LogFormat    string
	Listen       string // address serve binds to
	Token        string // bearer token serve requires, empty disables auth
	TLSCert      string
	TLSKey       string
	TLSClientCA  string
}

// InitConfig initializes the configuration using Viper.
// Configuration priority: flags > env vars > config file > defaults.
// Endpoint host and port also fall back to QGIS_MINIO_HOST and
// QGIS_MINIO_PORT.
func InitConfig(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("auth-file", defaultAuthFile())
	v.SetDefault("host", common.DefaultHost)
	v.SetDefault("port", common.DefaultPort)
	v.SetDefault("timeout", 30*time.Second)
	v.SetDefault("output-format", "text")
	v.SetDefault("log-level", "warn")
	v.SetDefault("log-format", "text")
	v.SetDefault("listen", ":8080")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".extstore")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("EXTSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("host", "EXTSTORE_HOST", awss3.EnvMinIOHost); err != nil {
		return nil, err
	}
	if err := v.BindEnv("port", "EXTSTORE_PORT", awss3.EnvMinIOPort); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return v, nil
}

func defaultAuthFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return authstore.DefaultFileName
	}
	return filepath.Join(home, authstore.DefaultFileName)
}

// GetConfig extracts the configuration from Viper into a Config struct.
func GetConfig(v *viper.Viper) *Config {
	return &Config{
		AuthFile:     v.GetString("auth-file"),
		StorageType:  v.GetString("storage-type"),
		Host:         v.GetString("host"),
		Port:         v.GetInt("port"),
		Bucket:       v.GetString("bucket"),
		Auth:         v.GetString("auth"),
		Timeout:      v.GetDuration("timeout"),
		OutputFormat: v.GetString("output-format"),
		LogLevel:     v.GetString("log-level"),
		LogFormat:    v.GetString("log-format"),
		Listen:       v.GetString("listen"),
		Token:        v.GetString("token"),
		TLSCert:      v.GetString("tls-cert"),
		TLSKey:       v.GetString("tls-key"),
		TLSClientCA:  v.GetString("tls-client-ca"),
	}
}

// ValidateConfig validates the settings every command needs.
func ValidateConfig(cfg *Config) error {
	if cfg.AuthFile == "" {
		return ErrAuthFileRequired
	}
	if strings.HasPrefix(cfg.AuthFile, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		cfg.AuthFile = filepath.Join(home, cfg.AuthFile[1:])
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return ErrInvalidPort
	}
	if cfg.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	switch OutputFormat(cfg.OutputFormat) {
	case FormatText, FormatJSON, FormatTable:
	default:
		return ErrUnsupportedOutputFormat
	}
	return nil
}

// ValidateObjectConfig additionally checks what fetch and store need.
func ValidateObjectConfig(cfg *Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if cfg.Auth == "" {
		return ErrAuthNameRequired
	}
	if cfg.Bucket == "" {
		return ErrBucketRequired
	}
	return nil
}

// DisplayConfig formats and displays the current configuration.
func DisplayConfig(cfg *Config, format string) string {
	switch OutputFormat(format) {
	case FormatJSON:
		return formatJSON(map[string]any{
			"auth_file":     cfg.AuthFile,
			"storage_type":  cfg.StorageType,
			"host":          cfg.Host,
			"port":          cfg.Port,
			"bucket":        cfg.Bucket,
			"auth":          cfg.Auth,
			"timeout":       cfg.Timeout.String(),
			"output_format": cfg.OutputFormat,
			"listen":        cfg.Listen,
			"token":         maskSecret(cfg.Token),
		})
	case FormatTable:
		return formatConfigTable(cfg)
	default:
		return formatConfigText(cfg)
	}
}

func formatConfigText(cfg *Config) string {
	var result string
	result += fmt.Sprintf("Auth File: %s\n", cfg.AuthFile)
	result += fmt.Sprintf("Storage Type: %s\n", cfg.StorageType)
	result += fmt.Sprintf("Endpoint: %s:%d\n", cfg.Host, cfg.Port)
	if cfg.Bucket != "" {
		result += fmt.Sprintf("Bucket: %s\n", cfg.Bucket)
	}
	if cfg.Auth != "" {
		result += fmt.Sprintf("Auth: %s\n", cfg.Auth)
	}
	result += fmt.Sprintf("Timeout: %s\n", cfg.Timeout)
	if cfg.Token != "" {
		result += fmt.Sprintf("Token: %s\n", maskSecret(cfg.Token))
	}
	result += fmt.Sprintf("Output Format: %s\n", cfg.OutputFormat)
	return result
}

func formatConfigTable(cfg *Config) string {
	var result string
	result += "┌──────────────────┬────────────────────────────────────────┐\n"
	result += "│ Setting          │ Value                                  │\n"
	result += "├──────────────────┼────────────────────────────────────────┤\n"
	result += fmt.Sprintf("│ %-16s │ %-38s │\n", "Auth File", truncate(cfg.AuthFile, 38))
	result += fmt.Sprintf("│ %-16s │ %-38s │\n", "Storage Type", cfg.StorageType)
	result += fmt.Sprintf("│ %-16s │ %-38s │\n", "Endpoint", truncate(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), 38))
	if cfg.Bucket != "" {
		result += fmt.Sprintf("│ %-16s │ %-38s │\n", "Bucket", truncate(cfg.Bucket, 38))
	}
	if cfg.Auth != "" {
		result += fmt.Sprintf("│ %-16s │ %-38s │\n", "Auth", truncate(cfg.Auth, 38))
	}
	result += fmt.Sprintf("│ %-16s │ %-38s │\n", "Timeout", cfg.Timeout.String())
	result += fmt.Sprintf("│ %-16s │ %-38s │\n", "Output Format", cfg.OutputFormat)
	result += "└──────────────────┴────────────────────────────────────────┘\n"
	return result
}

// maskSecret masks sensitive information, showing only first 4 characters.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) < 5 {
		return "****"
	}
	return s[:4] + "****"
}

// truncate truncates a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
