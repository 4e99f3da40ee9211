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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-extstore/pkg/common"
)

// OutputFormat defines the output format type.
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatTable OutputFormat = "table"
)

// AuthInfo describes a stored auth config without its secrets.
type AuthInfo struct {
	Name        string   `json:"name"`
	Handle      string   `json:"handle"`
	StorageType string   `json:"storage_type"`
	Keys        []string `json:"keys"`
	Valid       bool     `json:"valid"`
}

// OperationResult holds the result of an operation.
type OperationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// FormatOperationResult formats an operation result in the specified format.
func FormatOperationResult(result *OperationResult, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(result)
	case FormatTable:
		return formatResultTable(result)
	default:
		return formatResultText(result)
	}
}

// FormatError formats an error message in the specified format.
func FormatError(err error, format OutputFormat) string {
	result := &OperationResult{
		Success: false,
		Error:   common.SanitizeErrorMessage(err),
		Kind:    common.Kind(err),
	}
	return FormatOperationResult(result, format)
}

// FormatAuthList formats stored auth configs in the specified format.
func FormatAuthList(infos []AuthInfo, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(map[string]any{
			"count":   len(infos),
			"configs": infos,
		})
	case FormatTable:
		return formatAuthTable(infos)
	default:
		return formatAuthText(infos)
	}
}

// FormatBackends formats the registered storage types.
func FormatBackends(types []string, format OutputFormat) string {
	switch format {
	case FormatJSON:
		return formatJSON(map[string]any{"backends": types})
	case FormatTable:
		var output string
		output += "┌──────────────────────┐\n"
		output += "│ Storage Type         │\n"
		output += "├──────────────────────┤\n"
		for _, t := range types {
			output += fmt.Sprintf("│ %-20s │\n", truncate(t, 20))
		}
		output += "└──────────────────────┘\n"
		return output
	default:
		return strings.Join(types, "\n") + "\n"
	}
}

func formatResultText(result *OperationResult) string {
	if result.Success {
		if result.Message != "" {
			return result.Message + "\n"
		}
		return "Operation completed successfully\n"
	}
	if result.Kind != "" && result.Kind != "Internal" {
		return fmt.Sprintf("Error (%s): %s\n", result.Kind, result.Error)
	}
	return fmt.Sprintf("Error: %s\n", result.Error)
}

func formatResultTable(result *OperationResult) string {
	status, text := "SUCCESS", result.Message
	if !result.Success {
		status, text = "FAILED", result.Error
		if result.Kind != "" {
			status += " (" + result.Kind + ")"
		}
	}

	output := "┌────────────────────────────────────────────────────────┐\n"
	output += "│ Operation Result                                       │\n"
	output += "├────────────────────────────────────────────────────────┤\n"
	output += fmt.Sprintf("│ Status: %-46s │\n", status)
	if text != "" {
		for _, line := range wrapText(text, 54) {
			output += fmt.Sprintf("│ %-54s │\n", line)
		}
	}
	output += "└────────────────────────────────────────────────────────┘\n"
	return output
}

func formatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": \"failed to marshal JSON: %s\"}\n", err)
	}
	return string(data) + "\n"
}

func formatAuthText(infos []AuthInfo) string {
	if len(infos) == 0 {
		return "No auth configs found\n"
	}

	var output string
	output += fmt.Sprintf("Found %d auth config(s):\n\n", len(infos))
	for _, info := range infos {
		output += fmt.Sprintf("Name: %s\n", info.Name)
		output += fmt.Sprintf("  Handle: %s\n", info.Handle)
		output += fmt.Sprintf("  Storage Type: %s\n", info.StorageType)
		output += fmt.Sprintf("  Keys: %s\n", strings.Join(info.Keys, ", "))
		output += fmt.Sprintf("  Valid: %v\n", info.Valid)
		output += "\n"
	}
	return output
}

func formatAuthTable(infos []AuthInfo) string {
	if len(infos) == 0 {
		return "No auth configs found\n"
	}

	var output string
	output += "┌────────────────────────┬──────────────┬──────────────────────────────────────┬───────┐\n"
	output += "│ Name                   │ Type         │ Handle                               │ Valid │\n"
	output += "├────────────────────────┼──────────────┼──────────────────────────────────────┼───────┤\n"
	for _, info := range infos {
		output += fmt.Sprintf("│ %-22s │ %-12s │ %-36s │ %-5v │\n",
			truncate(info.Name, 22), truncate(info.StorageType, 12), truncate(info.Handle, 36), info.Valid)
	}
	output += "└────────────────────────┴──────────────┴──────────────────────────────────────┴───────┘\n"
	output += fmt.Sprintf("Total: %d config(s)\n", len(infos))
	return output
}

// formatSize formats a byte size into a human-readable string.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

// wrapText wraps text to fit within maxWidth characters.
func wrapText(text string, maxWidth int) []string {
	if len(text) <= maxWidth {
		return []string{text}
	}

	if !strings.Contains(text, " ") {
		var lines []string
		for len(text) > maxWidth {
			lines = append(lines, text[:maxWidth])
			text = text[maxWidth:]
		}
		if len(text) > 0 {
			lines = append(lines, text)
		}
		return lines
	}

	var lines []string
	var currentLine string
	for _, word := range strings.Fields(text) {
		if len(currentLine) == 0 {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= maxWidth {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}
	if len(currentLine) > 0 {
		lines = append(lines, currentLine)
	}
	return lines
}
