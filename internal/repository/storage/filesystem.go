package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/logger"
)

const metaCacheSize = 100_000

// Filesystem serves tiles from a directory tree: <root>/<model>/<path>.
// A directory path resolves to its tileset.json. Metadata lookups are
// memoized with a short TTL.
type Filesystem struct {
	root   string
	meta   *expirable.LRU[string, Meta]
	logger logger.Logger
}

var _ TileStorage = (*Filesystem)(nil)

func NewFilesystem(cfg config.Storage, l logger.Logger) *Filesystem {
	return &Filesystem{
		root:   cfg.Root,
		meta:   expirable.NewLRU[string, Meta](metaCacheSize, nil, cfg.MetaTTL),
		logger: l,
	}
}

// resolve maps (model, path) to an absolute file path, rejecting any
// traversal out of the model tree. Directories resolve to tileset.json.
func (f *Filesystem) resolve(model, path string) (string, error) {
	if model == "" || model == "." || model == ".." || strings.ContainsAny(model, "/\\") {
		return "", ErrInvalidPath
	}
	// Clean with a leading slash so ".." cannot climb above the model root.
	rel := filepath.Clean("/" + path)
	full := filepath.Join(f.root, model, rel)

	fi, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if fi.IsDir() {
		// assume the tileset manifest when a directory is addressed
		full = filepath.Join(full, "tileset.json")
	}
	return full, nil
}

func (f *Filesystem) Stat(ctx context.Context, model, path string) (Meta, error) {
	full, err := f.resolve(model, path)
	if err != nil {
		return Meta{}, err
	}

	if m, ok := f.meta.Get(full); ok {
		return m, nil
	}

	fi, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return Meta{}, ErrNotFound
		}
		return Meta{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	m := Meta{
		Length:      fi.Size(),
		ModTime:     fi.ModTime(),
		ContentType: ContentType(full),
	}
	f.meta.Add(full, m)
	return m, nil
}

func (f *Filesystem) Open(ctx context.Context, model, path string, rng *RequestRange) (*Stream, error) {
	full, err := f.resolve(model, path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	fi, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	meta := Meta{
		Length:      fi.Size(),
		ModTime:     fi.ModTime(),
		ContentType: ContentType(full),
	}

	if rng == nil {
		return &Stream{
			Body: &lengthReader{r: file, c: file, remaining: meta.Length},
			Meta: meta,
		}, nil
	}

	br, err := rng.Resolve(meta.Length)
	if err != nil {
		file.Close()
		return nil, err
	}
	if _, err := file.Seek(br.Start, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return &Stream{
		Body:  &lengthReader{r: file, c: file, remaining: br.Length},
		Meta:  meta,
		Range: &br,
	}, nil
}

// lengthReader bounds a reader to an exact byte count and turns a short
// read into ErrTruncated instead of a silent EOF.
type lengthReader struct {
	r         io.Reader
	c         io.Closer
	remaining int64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if err == io.EOF && l.remaining > 0 {
		return n, fmt.Errorf("%w: %d bytes missing", ErrTruncated, l.remaining)
	}
	return n, err
}

func (l *lengthReader) Close() error {
	return l.c.Close()
}
