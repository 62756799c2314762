package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/ishiev/rtiles/internal/usecase"
	"github.com/ishiev/rtiles/pkg/logger"
)

const (
	internalServerErrorText = "the server encountered an error and could not process your request"
	// forbiddenText is returned for denied access and for content that
	// does not exist. The two cases must stay byte-identical.
	forbiddenText   = "access denied"
	unavailableText = "service temporarily unavailable"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type Handler struct {
	validate     *validator.Validate
	tileUseCase  *usecase.TileUseCase
	statUseCase  *usecase.StatUseCase
	adminUseCase *usecase.AdminUseCase
	adminToken   string
	logger       logger.Logger
}

func NewHandler(
	v *validator.Validate,
	tile *usecase.TileUseCase,
	stat *usecase.StatUseCase,
	admin *usecase.AdminUseCase,
	adminToken string,
	l logger.Logger,
) *Handler {
	return &Handler{
		validate:     v,
		tileUseCase:  tile,
		statUseCase:  stat,
		adminUseCase: admin,
		adminToken:   adminToken,
		logger:       l,
	}
}

func (h *Handler) RespondWithInternalServerError(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusInternalServerError, internalServerErrorText, nil)
}

func (h *Handler) RespondWithForbidden(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusForbidden, forbiddenText, nil)
}

func (h *Handler) RespondWithUnavailable(c *gin.Context) {
	h.RespondWithJSON(c, http.StatusServiceUnavailable, unavailableText, nil)
}

func (h *Handler) RespondWithJSON(c *gin.Context, code int, message string, data any) {
	success := code < 400

	r := response{
		Success: success,
		Message: message,
		Data:    data,
	}

	c.JSON(code, r)
}
