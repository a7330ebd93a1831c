package registration

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Method string

const (
	MethodCash     Method = "cash"
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
	MethodOther    Method = "other"
)

type Registration struct {
	ID                int64     `db:"id" json:"id"`
	WorkshopID        int64     `db:"workshop_id" json:"workshop_id"`
	FullName          string    `db:"full_name" json:"full_name"`
	Email             string    `db:"email" json:"email"`
	Phone             string    `db:"phone" json:"phone"`
	Seats             int       `db:"seats" json:"seats"`
	Status            Status    `db:"status" json:"status"`
	Paid              bool      `db:"paid" json:"paid"`
	AmountPaid        int64     `db:"amount_paid" json:"amount_paid"`
	PaymentMethod     *Method   `db:"payment_method" json:"payment_method"`
	PaymentLink       *string   `db:"payment_link" json:"payment_link"`
	ExternalPaymentID *string   `db:"external_payment_id" json:"external_payment_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// WithWorkshop is a registration joined with the fields of its workshop
// that the admin views and the price computations need.
type WithWorkshop struct {
	Registration
	WorkshopTitle   string    `db:"workshop_title" json:"workshop_title"`
	WorkshopEventAt time.Time `db:"workshop_event_at" json:"workshop_event_at"`
	Price           *int64    `db:"price" json:"price"`
}

// Totals is the derived payment state of a registration.
type Totals struct {
	Total      *int64 `json:"total"`
	AmountPaid int64  `json:"amount_paid"`
	Paid       bool   `json:"paid"`
}

type ListFilter struct {
	WorkshopID *int64
	Status     *Status
	Paid       *bool
	From       *time.Time
	To         *time.Time
}

// MaxSeats caps the seats of a single registration.
const MaxSeats = 50

type RegisterRequest struct {
	WorkshopID int64  `json:"workshop_id" binding:"required,gt=0" example:"1"`
	FullName   string `json:"full_name" binding:"required,max=200" example:"Dana Levi"`
	Email      string `json:"email" binding:"omitempty,email" example:"dana@example.com"`
	Phone      string `json:"phone" binding:"omitempty,max=32" example:"050-1234567"`
	Seats      int    `json:"seats" binding:"omitempty,gte=1,lte=50" example:"2"`
}

type RegisterResponse struct {
	Message        string  `json:"message" example:"registered"`
	RegistrationID int64   `json:"registration_id" example:"42"`
	PaymentLink    *string `json:"payment_link,omitempty" example:"https://pay.example.com/abc"`
}
