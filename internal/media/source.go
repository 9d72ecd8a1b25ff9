// Package media turns caller-supplied media inputs (URLs, file paths, raw
// bytes, base64 payloads) into platform-fetchable URLs with a resolved
// IMAGE/VIDEO kind, staging local bytes on temporary storage when needed.
package media

import (
	"encoding/base64"
	"os"
	"regexp"
)

// Kind is the resolved media category, matching the platform's media_type
// values for item containers.
type Kind string

const (
	KindImage Kind = "IMAGE"
	KindVideo Kind = "VIDEO"
)

type sourceKind int

const (
	sourceURL sourceKind = iota
	sourcePath
	sourceBytes
	sourceBase64
)

// Source is one media input. Build one with the constructor matching what
// you actually hold; ParseString guesses for untyped strings.
type Source struct {
	kind sourceKind
	ref  string
	data []byte
}

// FromURL wraps a remote URL the platform can fetch directly.
func FromURL(url string) Source { return Source{kind: sourceURL, ref: url} }

// FromPath wraps a local file path; the bytes are read and staged on
// temporary storage during classification.
func FromPath(path string) Source { return Source{kind: sourcePath, ref: path} }

// FromBytes wraps raw media bytes to be staged on temporary storage.
func FromBytes(data []byte) Source { return Source{kind: sourceBytes, data: data} }

// FromBase64 wraps a base64-encoded media payload.
func FromBase64(encoded string) Source { return Source{kind: sourceBase64, ref: encoded} }

var (
	// urlPattern decides whether an untyped string is a fetchable URL:
	// an optional scheme and host part, a domain or IPv4, then optional
	// port, path and query.
	urlPattern = regexp.MustCompile(`^((https?://)?[^\s/]+?\.?)?(([a-zA-Z0-9]+\.[\w]{2,})|([\d]{1,}\.[\d]{1,}\.[\d]{1,}\.[\d]{1,}))([:\d]+)?/?([a-zA-Z0-9._/-]+)?(\?[a-zA-Z0-9.&#=_%?-]+)?$`)

	base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)
)

// ParseString classifies an untyped string input. An existing local file
// wins over the URL and base64 readings; anything that matches neither is
// treated as a path so the read failure carries the original string.
func ParseString(s string) Source {
	if _, err := os.Stat(s); err == nil {
		return FromPath(s)
	}
	if urlPattern.MatchString(s) {
		return FromURL(s)
	}
	if looksLikeBase64(s) {
		return FromBase64(s)
	}
	return FromPath(s)
}

// looksLikeBase64 applies the cheap structural checks before committing to
// a decode: length multiple of four, standard alphabet, valid padding.
func looksLikeBase64(s string) bool {
	if s == "" || len(s)%4 != 0 {
		return false
	}
	if !base64Pattern.MatchString(s) {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
