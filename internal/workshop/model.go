package workshop

import "time"

type Workshop struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	EventAt     time.Time `db:"event_at" json:"event_at"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Price       *int64    `db:"price" json:"price"`
	PaymentLink *string   `db:"payment_link" json:"payment_link"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	IsPublic    bool      `db:"is_public" json:"is_public"`
	AccessToken string    `db:"access_token" json:"access_token,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// WithStats carries the seats_left value computed by the workshops_with_stats view.
type WithStats struct {
	Workshop
	SeatsLeft int `db:"seats_left" json:"seats_left"`
}

type CreateWorkshopRequest struct {
	Title       string    `json:"title" binding:"required,max=200" example:"Sourdough basics"`
	Description string    `json:"description" example:"Hands-on evening class"`
	EventAt     time.Time `json:"event_at" binding:"required" example:"2026-11-20T18:00:00Z"`
	Capacity    int       `json:"capacity" binding:"required,gte=1" example:"12"`
	Price       *int64    `json:"price" binding:"omitempty,gte=0,lte=184467440737095516" example:"180"`
	PaymentLink *string   `json:"payment_link" binding:"omitempty,url" example:"https://pay.example.com/sourdough"`
	IsActive    *bool     `json:"is_active" example:"true"`
	IsPublic    *bool     `json:"is_public" example:"true"`
}
