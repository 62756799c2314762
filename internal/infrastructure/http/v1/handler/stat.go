package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishiev/rtiles/internal/infrastructure/http/v1/middleware"
	"github.com/ishiev/rtiles/internal/repository/access"
	"github.com/ishiev/rtiles/internal/usecase"
)

func (h *Handler) Stat(c *gin.Context) {
	session := middleware.SessionFromContext(c)
	if session.ID == "" {
		h.RespondWithForbidden(c)
		return
	}

	model := c.Param("model")

	m, err := h.statUseCase.Get(c.Request.Context(), session, model)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrForbidden):
			h.RespondWithForbidden(c)
		case errors.Is(err, access.ErrAuthorityUnavailable):
			h.RespondWithUnavailable(c)
		default:
			h.RespondWithInternalServerError(c)
		}
		return
	}

	h.RespondWithJSON(c, http.StatusOK, "got stat", m)
}
