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
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-extstore/pkg/common"
)

func TestFormatOperationResult(t *testing.T) {
	ok := &OperationResult{Success: true, Message: "Stored 5 B"}

	if got := FormatOperationResult(ok, FormatText); got != "Stored 5 B\n" {
		t.Errorf("text = %q", got)
	}
	if got := FormatOperationResult(&OperationResult{Success: true}, FormatText); got != "Operation completed successfully\n" {
		t.Errorf("text default = %q", got)
	}

	var decoded OperationResult
	if err := json.Unmarshal([]byte(FormatOperationResult(ok, FormatJSON)), &decoded); err != nil {
		t.Fatalf("json output does not decode: %v", err)
	}
	if !decoded.Success || decoded.Message != "Stored 5 B" {
		t.Errorf("decoded = %+v", decoded)
	}

	if got := FormatOperationResult(ok, FormatTable); !strings.Contains(got, "SUCCESS") {
		t.Errorf("table = %q", got)
	}
}

func TestFormatError(t *testing.T) {
	err := fmt.Errorf("%w: http://nothinghere:80", common.ErrUnreachable)

	if got := FormatError(err, FormatText); got != "Error (Unreachable): endpoint unreachable: http://nothinghere:80\n" {
		t.Errorf("text = %q", got)
	}
	if got := FormatError(errors.New("boom"), FormatText); got != "Error: boom\n" {
		t.Errorf("text internal = %q", got)
	}

	var decoded OperationResult
	if err := json.Unmarshal([]byte(FormatError(err, FormatJSON)), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Success || decoded.Kind != "Unreachable" {
		t.Errorf("decoded = %+v", decoded)
	}

	if got := FormatError(err, FormatTable); !strings.Contains(got, "FAILED (Unreachable)") {
		t.Errorf("table = %q", got)
	}
}

func TestFormatError_RedactsCredentials(t *testing.T) {
	err := errors.New("signature mismatch Credential=minioadmin/20250101/us-east-1/s3/aws4_request, SignedHeaders=host")
	if got := FormatError(err, FormatText); strings.Contains(got, "minioadmin") {
		t.Errorf("credential leaked: %q", got)
	}
}

func TestFormatAuthList(t *testing.T) {
	if got := FormatAuthList(nil, FormatText); got != "No auth configs found\n" {
		t.Errorf("empty = %q", got)
	}

	infos := []AuthInfo{{
		Name:        "test_awss3_auth_config",
		Handle:      "0b1c",
		StorageType: "AWSS3",
		Keys:        []string{"password", "region", "username"},
		Valid:       true,
	}}

	text := FormatAuthList(infos, FormatText)
	if !strings.Contains(text, "Keys: password, region, username") {
		t.Errorf("text = %q", text)
	}

	var decoded struct {
		Count   int        `json:"count"`
		Configs []AuthInfo `json:"configs"`
	}
	if err := json.Unmarshal([]byte(FormatAuthList(infos, FormatJSON)), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Count != 1 || decoded.Configs[0].Name != "test_awss3_auth_config" {
		t.Errorf("decoded = %+v", decoded)
	}

	if table := FormatAuthList(infos, FormatTable); !strings.Contains(table, "Total: 1 config(s)") {
		t.Errorf("table = %q", table)
	}
}

func TestFormatBackends(t *testing.T) {
	types := []string{"AWSS3", "memory"}
	if got := FormatBackends(types, FormatText); got != "AWSS3\nmemory\n" {
		t.Errorf("text = %q", got)
	}
	if got := FormatBackends(types, FormatJSON); !strings.Contains(got, `"AWSS3"`) {
		t.Errorf("json = %q", got)
	}
	if got := FormatBackends(types, FormatTable); !strings.Contains(got, "memory") {
		t.Errorf("table = %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.size); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short", 10); len(got) != 1 {
		t.Errorf("short text wrapped: %v", got)
	}
	if got := wrapText("aaaaaaaaaabbbbb", 10); len(got) != 2 || got[1] != "bbbbb" {
		t.Errorf("hard wrap = %v", got)
	}
	if got := wrapText("one two three four", 9); len(got) != 3 {
		t.Errorf("word wrap = %v", got)
	}
}
