package auth

import (
	"net/http"

	"workshops/internal/api"
	"workshops/internal/logger"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Password string `json:"password" binding:"required" example:"s3cret"`
}

type Handler struct {
	cookie      *Cookie
	credentials Credentials
	secure      bool
}

// NewHandler builds the login handlers. secure marks the cookie HTTPS-only.
func NewHandler(cookie *Cookie, credentials Credentials, secure bool) *Handler {
	return &Handler{
		cookie:      cookie,
		credentials: credentials,
		secure:      secure,
	}
}

// @Summary      Admin login
// @Description  Checks the admin password and sets the signed session cookie
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body auth.LoginRequest true "Admin password"
// @Success      200 {object} api.OKResponse
// @Failure      400 {object} api.ValidationErrorResponse
// @Failure      401 {object} api.OKResponse
// @Router       /api/admin/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	if !h.credentials.Match(req.Password) {
		logger.Warn("admin login rejected", "client_ip", c.ClientIP())
		c.JSON(http.StatusUnauthorized, api.OKResponse{OK: false})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, h.cookie.Value(), 0, "/", "", h.secure, true)

	logger.Info("admin logged in", "client_ip", c.ClientIP())
	c.JSON(http.StatusOK, api.OKResponse{OK: true})
}

// @Summary      Admin logout
// @Description  Clears the admin session cookie
// @Tags         admin
// @Produce      json
// @Success      200 {object} api.OKResponse
// @Router       /api/admin/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.secure, true)
	c.JSON(http.StatusOK, api.OKResponse{OK: true})
}
