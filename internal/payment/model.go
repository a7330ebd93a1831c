package payment

import (
	"time"

	"workshops/internal/registration"
)

type Source string

const (
	SourceAdmin   Source = "admin"
	SourceWebhook Source = "webhook"
)

func (s Source) Valid() bool {
	return s == SourceAdmin || s == SourceWebhook
}

// Payment is one ledger row. The sum of a registration's payments is its amount_paid.
type Payment struct {
	ID                int64                `db:"id" json:"id"`
	RegistrationID    int64                `db:"registration_id" json:"registration_id"`
	Amount            int64                `db:"amount" json:"amount"`
	Method            *registration.Method `db:"method" json:"method"`
	Source            Source               `db:"source" json:"source"`
	ExternalPaymentID *string              `db:"external_payment_id" json:"external_payment_id"`
	Note              *string              `db:"note" json:"note"`
	CreatedAt         time.Time            `db:"created_at" json:"created_at"`
	CreatedBy         *string              `db:"created_by" json:"created_by"`
}

type NewPayment struct {
	RegistrationID    int64
	Amount            int64
	Method            *registration.Method
	Source            Source
	ExternalPaymentID string
	Note              string
	CreatedBy         string
}

// Edit is an admin change to one registration, applied while its row is
// locked. Adjust may return a payment to book first; it sees the locked row
// and may reject the edit. Apply then mutates the row and returns its totals.
// Nothing is written unless both succeed.
type Edit struct {
	RegistrationID int64
	Adjust         func(reg registration.WithWorkshop) (*NewPayment, error)
	Apply          func(reg *registration.WithWorkshop) registration.Totals
}

// Result describes the registration after a ledger write.
type Result struct {
	Payment      *Payment                  `json:"payment,omitempty"`
	Registration registration.WithWorkshop `json:"registration"`
	Totals       registration.Totals       `json:"totals"`
	Duplicate    bool                      `json:"duplicate,omitempty"`
	BecamePaid   bool                      `json:"-"`
}

type AddPaymentRequest struct {
	Amount int64  `json:"amount" binding:"required,gt=0" example:"100"`
	Method string `json:"method" example:"cash"`
	Note   string `json:"note" binding:"max=500" example:"paid at the door"`
}
