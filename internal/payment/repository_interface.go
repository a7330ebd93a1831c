package payment

import "context"

type Repository interface {
	Record(ctx context.Context, p NewPayment) (*Result, error)
	Edit(ctx context.Context, e Edit) (*Result, error)
	Delete(ctx context.Context, registrationID, paymentID int64) (*Result, error)
	ListByRegistration(ctx context.Context, registrationID int64) ([]Payment, error)
}
