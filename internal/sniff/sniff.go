// Package sniff resolves media types for candidates whose origin did not
// supply one.
package sniff

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const fallback = "application/octet-stream"

// Type resolves the media type of a file from its extension, falling back to
// its leading bytes. Parameters such as charset are stripped so the result can
// be compared against an accepted-types list.
func Type(name string, head []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return essence(byExt)
	}
	if len(head) == 0 {
		return fallback
	}
	return essence(mimetype.Detect(head).String())
}

// Normalize strips parameters from a client supplied Content-Type and falls
// back to Type when it is missing or generic.
func Normalize(contentType, name string, head []byte) string {
	ct := essence(contentType)
	if ct == "" || ct == fallback {
		return Type(name, head)
	}
	return ct
}

func essence(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(strings.ToLower(contentType))
	}
	return mediaType
}
