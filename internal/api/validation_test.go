package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required" binding:"required"`
	Email string `json:"email" validate:"omitempty,email" binding:"omitempty,email"`
	Seats int    `json:"seats" validate:"gte=1" binding:"gte=1"`
}

func TestValidateStruct(t *testing.T) {
	errs := ValidateStruct(sample{Email: "nope", Seats: 0})
	require.Len(t, errs, 3)

	byField := map[string]ValidationError{}
	for _, e := range errs {
		byField[e.Field] = e
	}
	assert.Equal(t, "Name is required", byField["Name"].Message)
	assert.Equal(t, "Email must be a valid email address", byField["Email"].Message)
	assert.Equal(t, "Seats must be greater than or equal to 1", byField["Seats"].Message)

	assert.Empty(t, ValidateStruct(sample{Name: "a", Seats: 1}))
}

func TestRespondBindError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/", func(c *gin.Context) {
		var req sample
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name    string
		body    string
		code    int
		details bool
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest, false},
		{"missing fields", `{"seats":0}`, http.StatusBadRequest, true},
		{"valid", `{"name":"x","seats":2}`, http.StatusNoContent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.details {
				var resp ValidationErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "validation failed", resp.Error)
				assert.NotEmpty(t, resp.Details)
			}
		})
	}
}
