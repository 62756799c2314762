// Package conditional builds cache validators for tile responses and
// evaluates conditional request headers against them.
package conditional

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Validators carries the cache validators attached to a tile response.
type Validators struct {
	ETag         string
	LastModified time.Time
}

// Result of evaluating conditional headers.
type Result int

const (
	Proceed Result = iota
	NotModified
)

// Build derives validators from the model, its fingerprint token and the
// tile path. The ETag is a strong validator: it changes whenever the
// fingerprint changes, and differs between tiles of the same model.
func Build(model, token, path string, updatedAt time.Time) Validators {
	h := xxhash.New()
	h.WriteString(model)
	h.Write([]byte{0x1f})
	h.WriteString(token)
	h.Write([]byte{0x1f})
	h.WriteString(path)
	return Validators{
		ETag:         fmt.Sprintf("%q", fmt.Sprintf("%016x", h.Sum64())),
		LastModified: updatedAt.Truncate(time.Second),
	}
}

// Evaluate decides whether the request can be answered with 304.
// If-None-Match takes precedence over If-Modified-Since.
func Evaluate(ifNoneMatch, ifModifiedSince string, v Validators) Result {
	if ifNoneMatch != "" {
		if etagMatch(ifNoneMatch, v.ETag) {
			return NotModified
		}
		return Proceed
	}
	if ifModifiedSince != "" && !v.LastModified.IsZero() {
		since, err := http.ParseTime(ifModifiedSince)
		if err != nil {
			return Proceed
		}
		if !v.LastModified.After(since) {
			return NotModified
		}
	}
	return Proceed
}

func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

// CacheControl renders the directive for private per-session tile content.
func CacheControl(maxAge time.Duration) string {
	return fmt.Sprintf("private, max-age=%d", int(maxAge.Seconds()))
}
