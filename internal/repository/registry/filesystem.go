package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/logger"
)

const (
	versionFile   = ".version"
	rootTileset   = "tileset.json"
	metaCacheSize = 100_000
)

// FSRegistry derives fingerprints from the model directories under the
// storage root. A `.version` file inside the model directory wins;
// otherwise the token is derived from the root tileset's mtime and
// size. Results are memoized with a short TTL so hot models do not
// stat the filesystem on every request.
type FSRegistry struct {
	root   string
	cache  *expirable.LRU[string, Fingerprint]
	logger logger.Logger
}

var _ Registry = (*FSRegistry)(nil)

func NewFSRegistry(cfg config.Storage, l logger.Logger) *FSRegistry {
	return &FSRegistry{
		root:   cfg.Root,
		cache:  expirable.NewLRU[string, Fingerprint](metaCacheSize, nil, cfg.MetaTTL),
		logger: l,
	}
}

func (r *FSRegistry) Fingerprint(ctx context.Context, model string) (Fingerprint, error) {
	if !validModelID(model) {
		return Fingerprint{}, ErrUnknownModel
	}

	if fp, ok := r.cache.Get(model); ok {
		return fp, nil
	}

	fp, err := r.read(model)
	if err != nil {
		return Fingerprint{}, err
	}

	r.cache.Add(model, fp)
	return fp, nil
}

func (r *FSRegistry) read(model string) (Fingerprint, error) {
	dir := filepath.Join(r.root, model)
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		return Fingerprint{}, ErrUnknownModel
	}

	// explicit version file, written by the model publisher
	vp := filepath.Join(dir, versionFile)
	if data, err := os.ReadFile(vp); err == nil {
		token := strings.TrimSpace(string(data))
		if token != "" {
			updated := fi.ModTime()
			if vi, err := os.Stat(vp); err == nil {
				updated = vi.ModTime()
			}
			return Fingerprint{Token: token, UpdatedAt: updated}, nil
		}
	}

	// derive from the root tileset, falling back to the directory itself
	src := fi
	if ti, err := os.Stat(filepath.Join(dir, rootTileset)); err == nil {
		src = ti
	}
	token := fmt.Sprintf("%x-%x", src.ModTime().UnixNano(), src.Size())
	return Fingerprint{Token: token, UpdatedAt: src.ModTime()}, nil
}

// Invalidate drops the memoized fingerprint so the next lookup re-reads
// the filesystem.
func (r *FSRegistry) Invalidate(model string) {
	r.cache.Remove(model)
}

func validModelID(model string) bool {
	if model == "" || model == "." || model == ".." {
		return false
	}
	return !strings.ContainsAny(model, "/\\")
}
