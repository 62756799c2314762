package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ishiev/rtiles/internal/conditional"
	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/internal/repository/cache"
	"github.com/ishiev/rtiles/internal/repository/registry"
	"github.com/ishiev/rtiles/internal/repository/storage"
	"github.com/ishiev/rtiles/internal/stat"
	"github.com/ishiev/rtiles/pkg/logger"
	"github.com/ishiev/rtiles/pkg/metrics"
)

// ErrForbidden covers both denied access and content that does not
// exist. Callers must not be able to tell the two apart.
var ErrForbidden = errors.New("forbidden")

type TileRequest struct {
	Session         access.Session
	Model           string
	Path            string
	IfNoneMatch     string
	IfModifiedSince string
	Range           *storage.RequestRange
}

type TileResponse struct {
	Status        int
	ETag          string
	LastModified  time.Time
	CacheControl  string
	ContentType   string
	ContentLength int64
	ContentRange  string
	Body          io.ReadCloser
}

// TileUseCase authorizes, validates and streams tile requests:
// permission first, then conditional headers, then content.
type TileUseCase struct {
	access         *access.Cache
	registry       registry.Registry
	storage        storage.TileStorage
	content        cache.TileCache
	stat           *stat.Stat
	maxAge         time.Duration
	maxCacheObject int64
	logger         logger.Logger
}

func NewTileUseCase(
	a *access.Cache,
	r registry.Registry,
	s storage.TileStorage,
	content cache.TileCache,
	st *stat.Stat,
	maxAge time.Duration,
	maxCacheObject int64,
	l logger.Logger,
) *TileUseCase {
	return &TileUseCase{
		access:         a,
		registry:       r,
		storage:        s,
		content:        content,
		stat:           st,
		maxAge:         maxAge,
		maxCacheObject: maxCacheObject,
		logger:         l,
	}
}

func (uc *TileUseCase) Stream(ctx context.Context, req TileRequest) (*TileResponse, error) {
	decision, err := uc.access.GetOrResolve(ctx, req.Session, req.Model)
	if err != nil {
		return nil, err
	}
	if decision != access.Allowed {
		return nil, ErrForbidden
	}

	fp, err := uc.registry.Fingerprint(ctx, req.Model)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownModel) {
			// model granted but absent on disk: indistinguishable from denied
			return nil, ErrForbidden
		}
		return nil, err
	}

	v := conditional.Build(req.Model, fp.Token, req.Path, fp.UpdatedAt)
	cc := conditional.CacheControl(uc.maxAge)

	if conditional.Evaluate(req.IfNoneMatch, req.IfModifiedSince, v) == conditional.NotModified {
		metrics.TileNotModified.Inc()
		return &TileResponse{
			Status:       http.StatusNotModified,
			ETag:         v.ETag,
			LastModified: v.LastModified,
			CacheControl: cc,
		}, nil
	}

	resp, err := uc.serve(ctx, req, fp)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	resp.ETag = v.ETag
	resp.LastModified = v.LastModified
	resp.CacheControl = cc

	uc.record(req.Model, resp.ContentLength)
	return resp, nil
}

// serve produces the tile body. Non-ranged requests for small tiles go
// through the content cache; everything else streams from storage.
func (uc *TileUseCase) serve(ctx context.Context, req TileRequest, fp registry.Fingerprint) (*TileResponse, error) {
	cacheable := req.Range == nil && uc.content != nil
	key := cache.Key{Model: req.Model, Fingerprint: fp.Token, Path: req.Path}

	if cacheable {
		data, hit, err := uc.content.Get(key)
		if err != nil {
			uc.logger.Warn("content cache get failed", "model", req.Model, "path", req.Path, "error", err)
		} else if hit {
			metrics.ContentCacheHits.Inc()
			return &TileResponse{
				Status:        http.StatusOK,
				ContentType:   tileContentType(req.Path),
				ContentLength: int64(len(data)),
				Body:          io.NopCloser(bytes.NewReader(data)),
			}, nil
		} else {
			metrics.ContentCacheMisses.Inc()
		}
	}

	stream, err := uc.storage.Open(ctx, req.Model, req.Path, req.Range)
	if err != nil {
		return nil, err
	}

	if stream.Range != nil {
		return &TileResponse{
			Status:        http.StatusPartialContent,
			ContentType:   stream.Meta.ContentType,
			ContentLength: stream.Range.Length,
			ContentRange:  fmt.Sprintf("bytes %d-%d/%d", stream.Range.Start, stream.Range.End(), stream.Meta.Length),
			Body:          stream.Body,
		}, nil
	}

	if cacheable && stream.Meta.Length <= uc.maxCacheObject {
		data, err := io.ReadAll(stream.Body)
		stream.Body.Close()
		if err != nil {
			return nil, err
		}
		if err := uc.content.Set(key, data); err != nil {
			uc.logger.Warn("content cache set failed", "model", req.Model, "path", req.Path, "error", err)
		}
		return &TileResponse{
			Status:        http.StatusOK,
			ContentType:   stream.Meta.ContentType,
			ContentLength: stream.Meta.Length,
			Body:          io.NopCloser(bytes.NewReader(data)),
		}, nil
	}

	return &TileResponse{
		Status:        http.StatusOK,
		ContentType:   stream.Meta.ContentType,
		ContentLength: stream.Meta.Length,
		Body:          stream.Body,
	}, nil
}

// tileContentType mirrors the storage layer's typing: an extensionless
// path addresses a directory, which serves its tileset manifest.
func tileContentType(path string) string {
	if filepath.Ext(path) == "" {
		return "application/json"
	}
	return storage.ContentType(path)
}

func (uc *TileUseCase) record(model string, n int64) {
	metrics.TileRequests.Inc()
	metrics.TileBytesServed.Add(float64(n))
	if err := uc.stat.Insert(stat.Key{Model: model}, stat.Metrics{Hits: 1, Bytes: uint64(n)}); err != nil {
		uc.logger.Debug("stat insert skipped", "model", model, "error", err)
	}
}
