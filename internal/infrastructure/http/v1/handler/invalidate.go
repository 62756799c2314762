package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const adminTokenHeader = "X-Admin-Token"

func (h *Handler) authorized(c *gin.Context) bool {
	if h.adminToken == "" {
		// no token configured: invalidation endpoints are disabled
		return false
	}
	got := c.GetHeader(adminTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) == 1
}

func (h *Handler) InvalidateModel(c *gin.Context) {
	if !h.authorized(c) {
		h.RespondWithForbidden(c)
		return
	}

	model := c.Param("model")
	if model == "" {
		h.RespondWithJSON(c, http.StatusBadRequest, "model is required", nil)
		return
	}

	h.adminUseCase.InvalidateModel(model)
	h.RespondWithJSON(c, http.StatusOK, "model invalidated", nil)
}

func (h *Handler) InvalidateSession(c *gin.Context) {
	if !h.authorized(c) {
		h.RespondWithForbidden(c)
		return
	}

	id := c.Param("id")
	if id == "" {
		h.RespondWithJSON(c, http.StatusBadRequest, "session id is required", nil)
		return
	}

	h.adminUseCase.InvalidateSession(id)
	h.RespondWithJSON(c, http.StatusOK, "session invalidated", nil)
}
