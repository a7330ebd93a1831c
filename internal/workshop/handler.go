package workshop

import (
	"errors"
	"net/http"

	"workshops/internal/api"
	"workshops/internal/logger"
	"workshops/internal/metrics"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// @Summary      List upcoming workshops
// @Description  Active public workshops that have not started yet, with seats left
// @Tags         workshops
// @Produce      json
// @Success      200 {array} workshop.WithStats
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/workshops [get]
func (h *Handler) ListPublic(c *gin.Context) {
	ws, err := h.service.ListPublic(c.Request.Context())
	if err != nil {
		logger.Error("list public workshops failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch workshops"})
		return
	}

	c.JSON(http.StatusOK, ws)
}

// @Summary      Get a workshop by share token
// @Tags         workshops
// @Produce      json
// @Param        token path string true "Access token"
// @Success      200 {object} workshop.WithStats
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/workshops/by-token/{token} [get]
func (h *Handler) GetByToken(c *gin.Context) {
	w, err := h.service.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Workshop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch workshop"})
		return
	}

	c.JSON(http.StatusOK, w)
}

// @Summary      List all workshops
// @Tags         admin,workshops
// @Produce      json
// @Security     AdminCookie
// @Success      200 {array} workshop.WithStats
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/workshops [get]
func (h *Handler) ListAll(c *gin.Context) {
	ws, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch workshops"})
		return
	}

	c.JSON(http.StatusOK, ws)
}

// @Summary      Create a workshop
// @Tags         admin,workshops
// @Accept       json
// @Produce      json
// @Security     AdminCookie
// @Param        request body workshop.CreateWorkshopRequest true "Workshop payload"
// @Success      201 {object} workshop.Workshop
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/workshops [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateWorkshopRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	w, err := h.service.CreateWorkshop(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidWorkshop) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		logger.Error("create workshop failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create workshop"})
		return
	}

	metrics.RecordAdminMutation("workshop", "create")
	logger.Info("workshop created", "workshop_id", w.ID)
	c.JSON(http.StatusCreated, w)
}
