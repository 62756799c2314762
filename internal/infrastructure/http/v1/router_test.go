package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishiev/rtiles/internal/infrastructure/http/v1/handler"
	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/internal/repository/cache"
	"github.com/ishiev/rtiles/internal/repository/registry"
	"github.com/ishiev/rtiles/internal/repository/storage"
	"github.com/ishiev/rtiles/internal/stat"
	"github.com/ishiev/rtiles/internal/usecase"
	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/logger"
)

// fullStack wires the complete service against a stub authority and a
// temp storage root.
func fullStack(t *testing.T, authorize func(session, model string) bool) *gin.Engine {
	t.Helper()

	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var session string
		if c, err := r.Cookie("session_id"); err == nil {
			session = c.Value
		}
		model := r.URL.Path[1:]
		if authorize(session, model) {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(authority.Close)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "city", "tiles"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "city", "tileset.json"), []byte(`{"asset":{"version":"1.1"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "city", "tiles", "0.b3dm"), []byte("0123456789"), 0o644))

	cfg := &config.Config{}
	cfg.HTTP.BasePath = "/3d"
	cfg.Access = config.Access{
		AuthorityURL: authority.URL,
		Timeout:      2 * time.Second,
		CacheTTL:     time.Minute,
		CacheSize:    64,
		CacheShards:  2,
		CookieName:   "session_id",
		SessionTTL:   time.Hour,
	}
	cfg.Storage = config.Storage{Root: root, MaxAge: 30 * time.Minute, MetaTTL: time.Minute}
	cfg.Cache = config.Cache{Backend: "memory", MaxEntries: 16, MaxObjectBytes: 1024, TTL: time.Minute}
	cfg.Admin.Token = "sekrit"

	l := logger.NewNoOp()
	resolver := access.NewAuthorityResolver(cfg.Access, l)
	accessCache := access.NewCache(resolver, cfg.Access, l)
	modelRegistry := registry.NewFSRegistry(cfg.Storage, l)
	tileStorage := storage.NewFilesystem(cfg.Storage, l)
	content := cache.NewMemoryCache(cfg.Cache)
	table := stat.New(l)
	t.Cleanup(table.Close)

	tileUC := usecase.NewTileUseCase(accessCache, modelRegistry, tileStorage, content, table,
		cfg.Storage.MaxAge, cfg.Cache.MaxObjectBytes, l)
	statUC := usecase.NewStatUseCase(accessCache, table)
	adminUC := usecase.NewAdminUseCase(accessCache, modelRegistry, l)

	h := handler.NewHandler(validator.New(), tileUC, statUC, adminUC, cfg.Admin.Token, l)
	return NewRouter(h, cfg, l)
}

func doRequest(r *gin.Engine, method, target, session string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if session != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: session})
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func allowAll(session, model string) bool { return session != "" }

func TestTileServed(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/3d/models/city/tiles/0.b3dm", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0123456789", w.Body.String())
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "private, max-age=1800", w.Header().Get("Cache-Control"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
	assert.Regexp(t, `^"[0-9a-f]{16}"$`, w.Header().Get("ETag"))
	assert.NotEmpty(t, w.Header().Get("Last-Modified"))
}

func TestTilesetAtModelRoot(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/3d/models/city/", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"asset":{"version":"1.1"}}`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	// content-cache hit keeps the manifest typing
	w = doRequest(r, http.MethodGet, "/3d/models/city/", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

// Denied access, an unknown model and a missing tile must produce
// byte-identical responses.
func TestForbiddenIndistinguishable(t *testing.T) {
	r := fullStack(t, func(session, model string) bool { return model == "city" })

	denied := doRequest(r, http.MethodGet, "/3d/models/terrain/tileset.json", "s1", nil)
	missingModel := doRequest(r, http.MethodGet, "/3d/models/ghost/tileset.json", "s1", nil)
	missingTile := doRequest(r, http.MethodGet, "/3d/models/city/nope.b3dm", "s1", nil)
	noSession := doRequest(r, http.MethodGet, "/3d/models/city/tileset.json", "", nil)

	for _, w := range []*httptest.ResponseRecorder{denied, missingModel, missingTile, noSession} {
		assert.Equal(t, http.StatusForbidden, w.Code)
	}
	assert.Equal(t, denied.Body.String(), missingModel.Body.String())
	assert.Equal(t, denied.Body.String(), missingTile.Body.String())
	assert.Equal(t, denied.Body.String(), noSession.Body.String())
}

func TestNotModified(t *testing.T) {
	r := fullStack(t, allowAll)

	first := doRequest(r, http.MethodGet, "/3d/models/city/tiles/0.b3dm", "s1", nil)
	require.Equal(t, http.StatusOK, first.Code)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := doRequest(r, http.MethodGet, "/3d/models/city/tiles/0.b3dm", "s1",
		map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Equal(t, etag, second.Header().Get("ETag"))
	assert.Empty(t, second.Body.String())
}

func TestPartialContent(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/3d/models/city/tiles/0.b3dm", "s1",
		map[string]string{"Range": "bytes=2-5"})
	require.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "2345", w.Body.String())
	assert.Equal(t, "bytes 2-5/10", w.Header().Get("Content-Range"))
}

func TestRangeNotSatisfiable(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/3d/models/city/tiles/0.b3dm", "s1",
		map[string]string{"Range": "bytes=100-"})
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */10", w.Header().Get("Content-Range"))
}

func TestMalformedRangeServedFull(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/3d/models/city/tiles/0.b3dm", "s1",
		map[string]string{"Range": "bytes=zzz"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0123456789", w.Body.String())
}

func TestAuthorityDown(t *testing.T) {
	authority := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	authority.Close()

	root := t.TempDir()

	cfg := &config.Config{}
	cfg.HTTP.BasePath = "/3d"
	cfg.Access = config.Access{
		AuthorityURL: authority.URL,
		Timeout:      time.Second,
		CacheTTL:     time.Minute,
		CacheSize:    64,
		CacheShards:  2,
		CookieName:   "session_id",
		SessionTTL:   time.Hour,
	}
	cfg.Storage = config.Storage{Root: root, MaxAge: time.Minute, MetaTTL: time.Minute}
	cfg.Cache = config.Cache{Backend: "off", MaxEntries: 1, MaxObjectBytes: 1, TTL: time.Minute}

	l := logger.NewNoOp()
	resolver := access.NewAuthorityResolver(cfg.Access, l)
	accessCache := access.NewCache(resolver, cfg.Access, l)
	modelRegistry := registry.NewFSRegistry(cfg.Storage, l)
	tileStorage := storage.NewFilesystem(cfg.Storage, l)
	table := stat.New(l)
	t.Cleanup(table.Close)

	tileUC := usecase.NewTileUseCase(accessCache, modelRegistry, tileStorage, nil, table,
		time.Minute, 0, l)
	statUC := usecase.NewStatUseCase(accessCache, table)
	adminUC := usecase.NewAdminUseCase(accessCache, modelRegistry, l)
	h := handler.NewHandler(validator.New(), tileUC, statUC, adminUC, "", l)
	r := NewRouter(h, cfg, l)

	w := doRequest(r, http.MethodGet, "/3d/models/city/tileset.json", "s1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthz(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/api/v1/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatEndpoint(t *testing.T) {
	r := fullStack(t, allowAll)

	served := doRequest(r, http.MethodGet, "/3d/models/city/tiles/0.b3dm", "s1", nil)
	require.Equal(t, http.StatusOK, served.Code)

	// stat inserts are async; poll until the sample lands
	require.Eventually(t, func() bool {
		w := doRequest(r, http.MethodGet, "/api/v1/stat/city", "s1", nil)
		if w.Code != http.StatusOK {
			return false
		}
		var body struct {
			Data struct {
				Hits  uint64 `json:"hits"`
				Bytes uint64 `json:"bytes"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			return false
		}
		return body.Data.Hits == 1 && body.Data.Bytes == 10
	}, time.Second, 10*time.Millisecond)
}

func TestStatRequiresSession(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/api/v1/stat", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestInvalidateRequiresToken(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodPost, "/api/v1/invalidate/model/city", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/invalidate/model/city", "",
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/invalidate/model/city", "",
		map[string]string{"X-Admin-Token": "sekrit"})
	assert.Equal(t, http.StatusOK, w.Code)
}

// A model invalidation must be visible to the next request: permissions
// are re-resolved against the authority.
func TestInvalidateModelRevokesAccess(t *testing.T) {
	allowed := true
	r := fullStack(t, func(session, model string) bool { return allowed })

	w := doRequest(r, http.MethodGet, "/3d/models/city/tileset.json", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	allowed = false
	// without invalidation the cached grant would still serve
	w = doRequest(r, http.MethodGet, "/3d/models/city/tileset.json", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodPost, "/api/v1/invalidate/model/city", "",
		map[string]string{"X-Admin-Token": "sekrit"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/3d/models/city/tileset.json", "s1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := fullStack(t, allowAll)

	w := doRequest(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rtiles_")
}
