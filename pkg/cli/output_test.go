package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"json", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{"string", "test message", "test message\n"},
		{"lines", []string{"a", "b"}, "a\nb\n"},
		{
			name: "fields aligned",
			data: Fields{{"Version", "1.2.0"}, {"Go Version", "go1.22"}},
			want: "Version:    1.2.0\nGo Version: go1.22\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := (&TextFormatter{}).FormatTo(buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatterFieldsKeepOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	data := Fields{{"zeta", 1}, {"alpha", "two"}}

	if err := (&JSONFormatter{}).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	if got, want := strings.TrimSpace(buf.String()), `{"zeta":1,"alpha":"two"}`; got != want {
		t.Errorf("FormatTo() = %s, want %s", got, want)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
}

func TestJSONFormatterIndent(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := NewFormatter(FormatJSON).FormatTo(buf, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if want := "{\n  \"key\": \"value\"\n}\n"; buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}
}

func TestYAMLFormatterFields(t *testing.T) {
	buf := &bytes.Buffer{}
	data := Fields{{"version", "1.2.0"}, {"commit", "abc123"}}

	if err := NewFormatter(FormatYAML).FormatTo(buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if want := "version: 1.2.0\ncommit: abc123\n"; buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	var decoded map[string]string
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if decoded["commit"] != "abc123" {
		t.Errorf("commit = %q, want abc123", decoded["commit"])
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("text should produce a TextFormatter")
	}
	if _, ok := NewFormatter("unknown").(*TextFormatter); !ok {
		t.Error("unknown formats fall back to text")
	}
}
