package webhook

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"workshops/internal/api"
	"workshops/internal/logger"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 1 << 20

// skippedHeaders are not copied into the audit log.
var skippedHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
}

type Handler struct {
	processor *Processor
	audit     AuditRepository
}

func NewHandler(processor *Processor, audit AuditRepository) *Handler {
	return &Handler{
		processor: processor,
		audit:     audit,
	}
}

// @Summary      Payment provider webhook
// @Description  Accepts JSON, JSON array, urlencoded or raw-wrapped payloads. Always answers 200.
// @Tags         webhooks
// @Accept       json
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Success      200 {object} api.WebhookResponse
// @Router       /api/payment-webhook [post]
func (h *Handler) Receive(c *gin.Context) {
	headers := requestHeaders(c.Request.Header)

	var out Outcome
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		logger.Warn("webhook body not readable", "error", err, "read_bytes", len(body))
		out = h.processor.Reject(c.Request.Context(), body, headers, ReasonInvalidBody)
	} else {
		out = h.processor.Handle(c.Request.Context(), body, headers)
	}

	c.JSON(http.StatusOK, api.WebhookResponse{
		OK:             out.OK,
		Error:          out.Reason,
		RegistrationID: out.RegistrationID,
		Duplicate:      out.Duplicate,
	})
}

// @Summary      List webhook deliveries
// @Description  Audit view of received webhooks, newest first
// @Tags         admin
// @Produce      json
// @Param        matched query bool false "Filter by matched flag"
// @Param        limit query int false "Maximum rows (default 100)"
// @Success      200 {array} webhook.Event
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/webhook-events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	var filter EventFilter

	if v := c.Query("matched"); v != "" {
		matched, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid matched filter"})
			return
		}
		filter.Matched = &matched
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	events, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		logger.Error("failed to list webhook events", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to list webhook events"})
		return
	}

	c.JSON(http.StatusOK, events)
}

func requestHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if skippedHeaders[strings.ToLower(k)] {
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}
