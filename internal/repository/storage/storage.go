package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound means the tile is absent in storage. The coordinator
	// maps it to the same client-visible outcome as access denial.
	ErrNotFound = errors.New("tile not found")

	// ErrStorageUnavailable is a transient storage failure; retrying the
	// whole request is safe.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrTruncated means fewer bytes were produced than the declared
	// length. It surfaces mid-stream and must abort the transfer.
	ErrTruncated = errors.New("truncated tile payload")

	// ErrInvalidPath rejects traversal outside the model tree.
	ErrInvalidPath = errors.New("invalid tile path")
)

// RangeNotSatisfiableError reports a requested range outside the
// resource bounds, carrying the total length for the Content-Range
// header of a 416 response.
type RangeNotSatisfiableError struct {
	Length int64
}

func (e *RangeNotSatisfiableError) Error() string {
	return fmt.Sprintf("range not satisfiable: resource length %d", e.Length)
}

// Meta describes one tile resource.
type Meta struct {
	Length      int64
	ModTime     time.Time
	ContentType string
}

// ByteRange is a resolved sub-interval of a resource.
type ByteRange struct {
	Start  int64
	Length int64
}

// End returns the inclusive last byte offset.
func (r ByteRange) End() int64 {
	return r.Start + r.Length - 1
}

// Stream is an open tile payload. Body is finite and not restartable;
// Range is non-nil when the body covers only a sub-interval.
type Stream struct {
	Body  io.ReadCloser
	Meta  Meta
	Range *ByteRange
}

// TileStorage resolves tile requests to byte streams.
type TileStorage interface {
	Stat(ctx context.Context, model, path string) (Meta, error)
	Open(ctx context.Context, model, path string, rng *RequestRange) (*Stream, error)
}

// tile payload types not covered by the platform mime database
var tileContentTypes = map[string]string{
	".json": "application/json",
	".b3dm": "application/octet-stream",
	".i3dm": "application/octet-stream",
	".pnts": "application/octet-stream",
	".cmpt": "application/octet-stream",
	".glb":  "model/gltf-binary",
	".gltf": "model/gltf+json",
}

// ContentType infers the MIME type of a tile from its extension.
func ContentType(path string) string {
	ext := filepath.Ext(path)
	if ct, ok := tileContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
