package media

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestParseString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want sourceKind
	}{
		{"full url", "https://example.com/photo.jpg", sourceURL},
		{"schemeless url", "example.com/photo.jpg", sourceURL},
		{"url with query", "https://example.com/media?q=80&w=2574", sourceURL},
		{"base64 payload", base64.StdEncoding.EncodeToString([]byte("media bytes here")), sourceBase64},
		{"nonexistent path", "/var/media/missing-file", sourcePath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseString(tt.in); got.kind != tt.want {
				t.Errorf("ParseString(%q).kind = %d, want %d", tt.in, got.kind, tt.want)
			}
		})
	}
}

func TestParseString_ExistingFileWinsOverURLReading(t *testing.T) {
	// A bare relative filename also parses as a domain-less URL; an actual
	// file on disk must take precedence.
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got := ParseString(path)
	if got.kind != sourcePath {
		t.Errorf("existing file parsed as kind %d, want path", got.kind)
	}
}

func TestLooksLikeBase64(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{base64.StdEncoding.EncodeToString([]byte("hello world!")), true},
		{"", false},
		{"abc", false},     // not a multiple of four
		{"ab!=", false},    // alphabet violation
		{"====", false},    // padding only
		{"QUJDRA==", true}, // "ABCD"
	}
	for _, tt := range tests {
		if got := looksLikeBase64(tt.in); got != tt.want {
			t.Errorf("looksLikeBase64(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
