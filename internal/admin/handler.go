package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"workshops/internal/api"
	"workshops/internal/logger"
	"workshops/internal/payment"
	"workshops/internal/registration"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

type Handler struct {
	gateway Gateway
	now     func() time.Time
}

func NewHandler(gateway Gateway) *Handler {
	return &Handler{
		gateway: gateway,
		now:     time.Now,
	}
}

// @Summary      Edit a workshop
// @Description  Allowed fields: title, description, event_at, capacity, price, payment_link, is_active, is_public
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     AdminCookie
// @Param        id path int true "Workshop ID"
// @Param        request body object true "Partial workshop"
// @Success      200 {object} workshop.Workshop
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/workshops/{id} [patch]
func (h *Handler) PatchWorkshop(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	raw, ok := bindPatch(c)
	if !ok {
		return
	}

	w, err := h.gateway.PatchWorkshop(c.Request.Context(), id, raw)
	if err != nil {
		respondError(c, err, "Failed to update workshop")
		return
	}

	c.JSON(http.StatusOK, w)
}

// @Summary      Delete a workshop
// @Description  Removes the workshop with its registrations and payments
// @Tags         admin
// @Produce      json
// @Security     AdminCookie
// @Param        id path int true "Workshop ID"
// @Success      200 {object} api.OKResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/workshops/{id} [delete]
func (h *Handler) DeleteWorkshop(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.gateway.DeleteWorkshop(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete workshop")
		return
	}

	c.JSON(http.StatusOK, api.OKResponse{OK: true})
}

// @Summary      List registrations
// @Tags         admin
// @Produce      json
// @Security     AdminCookie
// @Param        workshop_id query int false "Workshop ID"
// @Param        status query string false "pending, confirmed or cancelled"
// @Param        paid query bool false "Paid flag"
// @Param        from query string false "Created on or after (YYYY-MM-DD)"
// @Param        to query string false "Created on or before (YYYY-MM-DD)"
// @Success      200 {array} registration.WithWorkshop
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/registrations [get]
func (h *Handler) ListRegistrations(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		respondError(c, err, "")
		return
	}

	regs, err := h.gateway.ListRegistrations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to fetch registrations")
		return
	}

	c.JSON(http.StatusOK, regs)
}

// @Summary      Export registrations as CSV
// @Tags         admin
// @Produce      text/csv
// @Security     AdminCookie
// @Param        workshop_id query int false "Workshop ID"
// @Param        status query string false "pending, confirmed or cancelled"
// @Param        paid query bool false "Paid flag"
// @Param        from query string false "Created on or after (YYYY-MM-DD)"
// @Param        to query string false "Created on or before (YYYY-MM-DD)"
// @Success      200 {file} file
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/registrations/export [get]
func (h *Handler) ExportRegistrations(c *gin.Context) {
	filter, err := parseListFilter(c)
	if err != nil {
		respondError(c, err, "")
		return
	}

	var buf bytes.Buffer
	if err := h.gateway.ExportRegistrations(c.Request.Context(), &buf, filter); err != nil {
		respondError(c, err, "Failed to export registrations")
		return
	}

	filename := "registrations_" + h.now().Format(dateLayout) + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// @Summary      Edit a registration
// @Description  Allowed fields: seats, paid, amount_paid, payment_method, status, payment_link, full_name, email, phone
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     AdminCookie
// @Param        id path int true "Registration ID"
// @Param        request body object true "Partial registration"
// @Success      200 {object} admin.PatchResult
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/registrations/{id} [patch]
func (h *Handler) PatchRegistration(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	raw, ok := bindPatch(c)
	if !ok {
		return
	}

	res, err := h.gateway.PatchRegistration(c.Request.Context(), id, raw)
	if err != nil {
		respondError(c, err, "Failed to update registration")
		return
	}

	c.JSON(http.StatusOK, res)
}

// @Summary      Delete a registration
// @Tags         admin
// @Produce      json
// @Security     AdminCookie
// @Param        id path int true "Registration ID"
// @Success      200 {object} api.OKResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/registrations/{id} [delete]
func (h *Handler) DeleteRegistration(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.gateway.DeleteRegistration(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete registration")
		return
	}

	c.JSON(http.StatusOK, api.OKResponse{OK: true})
}

// @Summary      List payments of a registration
// @Tags         admin
// @Produce      json
// @Security     AdminCookie
// @Param        id path int true "Registration ID"
// @Success      200 {array} payment.Payment
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/registrations/{id}/payments [get]
func (h *Handler) ListPayments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	payments, err := h.gateway.ListPayments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch payments")
		return
	}

	c.JSON(http.StatusOK, payments)
}

// @Summary      Record a manual payment
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     AdminCookie
// @Param        id path int true "Registration ID"
// @Param        request body payment.AddPaymentRequest true "Payment"
// @Success      201 {object} payment.Result
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/registrations/{id}/payments [post]
func (h *Handler) AddPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req payment.AddPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	res, err := h.gateway.AddPayment(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to record payment")
		return
	}

	c.JSON(http.StatusCreated, res)
}

// @Summary      Delete a payment
// @Description  Removes a ledger row and recomputes the registration totals
// @Tags         admin
// @Produce      json
// @Security     AdminCookie
// @Param        id path int true "Registration ID"
// @Param        paymentId path int true "Payment ID"
// @Success      200 {object} payment.Result
// @Failure      401 {object} api.ErrorResponse
// @Failure      404 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /api/admin/registrations/{id}/payments/{paymentId} [delete]
func (h *Handler) DeletePayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	paymentID, ok := paramID(c, "paymentId")
	if !ok {
		return
	}

	res, err := h.gateway.DeletePayment(c.Request.Context(), id, paymentID)
	if err != nil {
		respondError(c, err, "Failed to delete payment")
		return
	}

	c.JSON(http.StatusOK, res)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}

func bindPatch(c *gin.Context) (map[string]json.RawMessage, bool) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&raw); err != nil || raw == nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return nil, false
	}
	return raw, true
}

func respondError(c *gin.Context, err error, message string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: verr.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Not found"})
	default:
		logger.Error(message, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: message})
	}
}

// parseListFilter reads the registration filters. from and to are calendar
// days and include the whole day.
func parseListFilter(c *gin.Context) (registration.ListFilter, error) {
	var f registration.ListFilter

	if v := c.Query("workshop_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, invalid("workshop_id", "must be a positive integer")
		}
		f.WorkshopID = &id
	}
	if v := c.Query("status"); v != "" {
		st := registration.Status(v)
		if !st.Valid() {
			return f, invalid("status", "must be pending, confirmed or cancelled")
		}
		f.Status = &st
	}
	if v := c.Query("paid"); v != "" {
		paid, err := strconv.ParseBool(v)
		if err != nil {
			return f, invalid("paid", "must be true or false")
		}
		f.Paid = &paid
	}
	if v := c.Query("from"); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, invalid("from", "must be a YYYY-MM-DD date")
		}
		f.From = &day
	}
	if v := c.Query("to"); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			return f, invalid("to", "must be a YYYY-MM-DD date")
		}
		end := day.AddDate(0, 0, 1).Add(-time.Microsecond)
		f.To = &end
	}

	return f, nil
}
