package registration

import (
	"context"
	"time"
)

// CandidateQuery selects open registrations for a payer identity.
type CandidateQuery struct {
	Email       string
	PhoneDigits string
	PhoneDashed string
	Since       time.Time
}

type Repository interface {
	Create(ctx context.Context, reg *Registration) (*Registration, error)
	GetByID(ctx context.Context, id int64) (*Registration, error)
	GetWithWorkshop(ctx context.Context, id int64) (*WithWorkshop, error)
	List(ctx context.Context, filter ListFilter) ([]WithWorkshop, error)
	Delete(ctx context.Context, id int64) error
	FindCandidates(ctx context.Context, q CandidateQuery) ([]Registration, error)
	FindByExternalPaymentID(ctx context.Context, externalID string) (*Registration, error)
	SetPaymentLink(ctx context.Context, id int64, link string, externalID *string) error
}
