package payment

import (
	"context"
	"errors"
	"fmt"

	"workshops/internal/email"
	"workshops/internal/logger"
	"workshops/internal/metrics"
)

var (
	ErrInvalidAmount = errors.New("payment amount must be positive")
	ErrInvalidSource = errors.New("invalid payment source")
)

type Notifier interface {
	SendPaymentConfirmed(ctx context.Context, to, name string, d email.PaymentDetails) error
}

// Ledger is the only writer of a registration's amount_paid.
type Ledger interface {
	RecordPayment(ctx context.Context, p NewPayment) (*Result, error)
	DeletePayment(ctx context.Context, registrationID, paymentID int64) (*Result, error)
	EditRegistration(ctx context.Context, e Edit) (*Result, error)
	ListPayments(ctx context.Context, registrationID int64) ([]Payment, error)
}

type ledger struct {
	repo     Repository
	notifier Notifier
}

// NewLedger builds the ledger service. notifier may be nil.
func NewLedger(repo Repository, notifier Notifier) Ledger {
	return &ledger{
		repo:     repo,
		notifier: notifier,
	}
}

func (l *ledger) RecordPayment(ctx context.Context, p NewPayment) (*Result, error) {
	if p.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if !p.Source.Valid() {
		return nil, ErrInvalidSource
	}

	res, err := l.repo.Record(ctx, p)
	if err != nil {
		metrics.RecordPayment(string(p.Source), "error", p.Amount)
		return nil, fmt.Errorf("record payment: %w", err)
	}

	if res.Duplicate {
		metrics.RecordPayment(string(p.Source), "duplicate", p.Amount)
		logger.Info("duplicate payment ignored",
			"registration_id", p.RegistrationID,
			"external_payment_id", p.ExternalPaymentID,
		)
		return res, nil
	}

	metrics.RecordPayment(string(p.Source), "recorded", p.Amount)
	logger.Info("payment recorded",
		"registration_id", p.RegistrationID,
		"amount", p.Amount,
		"source", p.Source,
		"amount_paid", res.Totals.AmountPaid,
		"paid", res.Totals.Paid,
		"status", res.Registration.Status,
	)

	if res.BecamePaid {
		l.notifyPaid(ctx, res)
	}

	return res, nil
}

// EditRegistration applies an admin edit together with its adjustment
// payment. The confirmation email goes out only after the commit.
func (l *ledger) EditRegistration(ctx context.Context, e Edit) (*Result, error) {
	res, err := l.repo.Edit(ctx, e)
	if err != nil {
		return nil, err
	}

	if res.Payment != nil {
		metrics.RecordPayment(string(res.Payment.Source), "recorded", res.Payment.Amount)
		logger.Info("payment recorded",
			"registration_id", e.RegistrationID,
			"amount", res.Payment.Amount,
			"source", res.Payment.Source,
			"amount_paid", res.Totals.AmountPaid,
			"paid", res.Totals.Paid,
			"status", res.Registration.Status,
		)
	}

	if res.BecamePaid {
		l.notifyPaid(ctx, res)
	}

	return res, nil
}

func (l *ledger) DeletePayment(ctx context.Context, registrationID, paymentID int64) (*Result, error) {
	res, err := l.repo.Delete(ctx, registrationID, paymentID)
	if err != nil {
		return nil, err
	}

	logger.Info("payment deleted",
		"registration_id", registrationID,
		"payment_id", paymentID,
		"amount_paid", res.Totals.AmountPaid,
		"paid", res.Totals.Paid,
	)
	return res, nil
}

func (l *ledger) ListPayments(ctx context.Context, registrationID int64) ([]Payment, error) {
	return l.repo.ListByRegistration(ctx, registrationID)
}

func (l *ledger) notifyPaid(ctx context.Context, res *Result) {
	reg := res.Registration
	if l.notifier == nil || reg.Email == "" {
		return
	}

	err := l.notifier.SendPaymentConfirmed(ctx, reg.Email, reg.FullName, email.PaymentDetails{
		WorkshopTitle: reg.WorkshopTitle,
		EventAt:       reg.WorkshopEventAt,
		AmountPaid:    res.Totals.AmountPaid,
	})
	if err != nil {
		logger.Warn("payment confirmation email not queued", "registration_id", reg.ID, "error", err)
	}
}
