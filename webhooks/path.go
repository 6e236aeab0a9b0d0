package webhooks

import (
	"strings"

	"github.com/goliatone/go-issuesync/core"
)

// TypeFromPath extracts the webhook type token following the default
// /webhook/ marker.
func TypeFromPath(path string) string {
	return TypeFromPathWithMarker(path, core.DefaultWebhookPathMarker)
}

// TypeFromPathWithMarker returns the lower-cased segment between marker and
// the next slash, or "" when marker does not occur in path.
func TypeFromPathWithMarker(path string, marker string) string {
	if marker == "" {
		return ""
	}
	index := strings.Index(path, marker)
	if index < 0 {
		return ""
	}
	rest := path[index+len(marker):]
	if end := strings.IndexByte(rest, '/'); end >= 0 {
		rest = rest[:end]
	}
	return strings.ToLower(rest)
}
