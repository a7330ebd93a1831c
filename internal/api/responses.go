package api

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// WebhookResponse is returned for every webhook delivery, including rejected ones.
type WebhookResponse struct {
	OK             bool   `json:"ok" example:"true"`
	Error          string `json:"error,omitempty" example:"no matching registration"`
	RegistrationID *int64 `json:"registration_id,omitempty" example:"42"`
	Duplicate      bool   `json:"duplicate,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok" example:"true"`
}
