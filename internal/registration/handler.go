package registration

import (
	"errors"
	"net/http"

	"workshops/internal/api"
	"workshops/internal/logger"

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

// @Summary      Register for a workshop
// @Description  Creates a pending registration and returns a payment link when one is available
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        request body registration.RegisterRequest true "Registration payload"
// @Success      201 {object} registration.RegisterResponse
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      409 {object} api.ErrorResponse
// @Failure      429 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrWorkshopNotFound), errors.Is(err, ErrWorkshopClosed):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Workshop not found"})
		case errors.Is(err, ErrNotEnoughSeats):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Not enough seats left"})
		default:
			logger.Error("registration failed", "workshop_id", req.WorkshopID, "error", err)
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create registration"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}
