package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ishiev/rtiles/internal/infrastructure/http/v1/middleware"
	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/internal/repository/storage"
	"github.com/ishiev/rtiles/internal/usecase"
	"github.com/ishiev/rtiles/pkg/metrics"
)

func (h *Handler) Tile(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session.ID == "" {
		h.RespondWithForbidden(c)
		return
	}

	model := c.Param("model")
	path := strings.TrimPrefix(c.Param("filepath"), "/")

	req := usecase.TileRequest{
		Session:         session,
		Model:           model,
		Path:            path,
		IfNoneMatch:     c.GetHeader("If-None-Match"),
		IfModifiedSince: c.GetHeader("If-Modified-Since"),
		Range:           storage.ParseRange(c.GetHeader("Range")),
	}

	start := time.Now()
	resp, err := h.tileUseCase.Stream(c.Request.Context(), req)
	if err != nil {
		h.respondTileError(c, err)
		return
	}
	elapsed := time.Since(start)
	defer metrics.StreamDuration.Observe(elapsed.Seconds())

	c.Header("ETag", resp.ETag)
	c.Header("Cache-Control", resp.CacheControl)
	c.Header("Accept-Ranges", "bytes")
	if !resp.LastModified.IsZero() {
		c.Header("Last-Modified", resp.LastModified.UTC().Format(http.TimeFormat))
	}

	if resp.Status == http.StatusNotModified {
		c.Status(http.StatusNotModified)
		return
	}

	if resp.ContentRange != "" {
		c.Header("Content-Range", resp.ContentRange)
	}

	defer resp.Body.Close()
	c.DataFromReader(resp.Status, resp.ContentLength, resp.ContentType, resp.Body, nil)
}

func (h *Handler) respondTileError(c *gin.Context, err error) {
	var rangeErr *storage.RangeNotSatisfiableError

	switch {
	case errors.Is(err, usecase.ErrForbidden):
		h.RespondWithForbidden(c)
	case errors.Is(err, access.ErrAuthorityUnavailable),
		errors.Is(err, storage.ErrStorageUnavailable):
		h.RespondWithUnavailable(c)
	case errors.As(err, &rangeErr):
		c.Header("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Length))
		h.RespondWithJSON(c, http.StatusRequestedRangeNotSatisfiable, "requested range not satisfiable", nil)
	default:
		h.logger.Error("tile request failed", "error", err)
		h.RespondWithInternalServerError(c)
	}
}
