package cache

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/ishiev/rtiles/pkg/config"
	"github.com/ishiev/rtiles/pkg/logger"
)

const (
	smallTileSize  = 1024      // 1KB
	mediumTileSize = 10 * 1024 // 10KB
	largeTileSize  = 50 * 1024 // 50KB
)

func generateTileData(size int) []byte {
	data := make([]byte, size)
	rand.Read(data)
	return data
}

func generateRandomKey() Key {
	return Key{
		Model:       fmt.Sprintf("model%d", rand.Intn(10)),
		Fingerprint: "rev1",
		Path:        fmt.Sprintf("tiles/%d/%d.b3dm", rand.Intn(20), rand.Intn(1000)),
	}
}

func setupMemoryCache(b *testing.B) TileCache {
	b.Helper()
	return NewMemoryCache(config.Cache{
		MaxEntries:     100_000,
		MaxObjectBytes: largeTileSize,
		TTL:            time.Hour,
	})
}

func setupSQLiteCache(b *testing.B) TileCache {
	b.Helper()
	path := filepath.Join(b.TempDir(), "bench.db")
	cache, err := NewSQLiteCache(path, logger.NewNoOp())
	if err != nil {
		b.Fatalf("Failed to create SQLite cache: %v", err)
	}
	b.Cleanup(func() { cache.Close() })
	return cache
}

func benchmarkSet(b *testing.B, cache TileCache, size int) {
	data := generateTileData(size)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cache.Set(generateRandomKey(), data); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

func benchmarkGet(b *testing.B, cache TileCache, size int) {
	data := generateTileData(size)
	keys := make([]Key, 1000)
	for i := range keys {
		keys[i] = generateRandomKey()
		if err := cache.Set(keys[i], data); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := cache.Get(keys[i%len(keys)]); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
	}
}

func BenchmarkMemorySetSmall(b *testing.B)  { benchmarkSet(b, setupMemoryCache(b), smallTileSize) }
func BenchmarkMemorySetMedium(b *testing.B) { benchmarkSet(b, setupMemoryCache(b), mediumTileSize) }
func BenchmarkMemorySetLarge(b *testing.B)  { benchmarkSet(b, setupMemoryCache(b), largeTileSize) }
func BenchmarkMemoryGetSmall(b *testing.B)  { benchmarkGet(b, setupMemoryCache(b), smallTileSize) }
func BenchmarkMemoryGetMedium(b *testing.B) { benchmarkGet(b, setupMemoryCache(b), mediumTileSize) }
func BenchmarkMemoryGetLarge(b *testing.B)  { benchmarkGet(b, setupMemoryCache(b), largeTileSize) }

func BenchmarkSQLiteSetSmall(b *testing.B)  { benchmarkSet(b, setupSQLiteCache(b), smallTileSize) }
func BenchmarkSQLiteSetMedium(b *testing.B) { benchmarkSet(b, setupSQLiteCache(b), mediumTileSize) }
func BenchmarkSQLiteGetSmall(b *testing.B)  { benchmarkGet(b, setupSQLiteCache(b), smallTileSize) }
func BenchmarkSQLiteGetMedium(b *testing.B) { benchmarkGet(b, setupSQLiteCache(b), mediumTileSize) }
