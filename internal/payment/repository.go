package payment

import (
	"context"
	"database/sql"
	"errors"

	"workshops/internal/db"
	"workshops/internal/registration"

	"github.com/jmoiron/sqlx"
)

var (
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrPaymentNotFound      = errors.New("payment not found")
)

const paymentColumns = `id, registration_id, amount, method, source, external_payment_id, note, created_at, created_by`

const lockRegistration = `
	SELECT r.id, r.workshop_id, r.full_name, r.email, r.phone, r.seats, r.status, r.paid,
	       r.amount_paid, r.payment_method, r.payment_link, r.external_payment_id, r.created_at,
	       w.title AS workshop_title, w.event_at AS workshop_event_at, w.price
	FROM registrations r
	JOIN workshops w ON w.id = r.workshop_id
	WHERE r.id = $1
	FOR UPDATE OF r
`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// errAlreadyRecorded rolls back a transaction whose external id is taken.
var errAlreadyRecorded = errors.New("payment already recorded")

// Record appends a payment and recomputes the registration totals in one
// transaction. A repeated external id leaves everything untouched.
func (r *repository) Record(ctx context.Context, p NewPayment) (*Result, error) {
	var externalID *string
	if p.ExternalPaymentID != "" {
		externalID = &p.ExternalPaymentID
	}

	var (
		reg registration.WithWorkshop
		res *Result
	)
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		reg, err = lock(ctx, tx, p.RegistrationID)
		if err != nil {
			return err
		}

		if externalID != nil {
			exists, err := db.Exists(ctx, tx,
				`SELECT EXISTS(SELECT 1 FROM payments WHERE external_payment_id = $1)`,
				p.ExternalPaymentID,
			)
			if err != nil {
				return err
			}
			if exists {
				return errAlreadyRecorded
			}
		}

		created, err := insert(ctx, tx, p, externalID)
		if errors.Is(err, sql.ErrNoRows) {
			// a concurrent delivery inserted the same external id first
			return errAlreadyRecorded
		}
		if err != nil {
			return err
		}

		sum, err := ledgerSum(ctx, tx, reg.ID)
		if err != nil {
			return err
		}

		fallbackPaid := reg.Paid || p.Source == SourceWebhook
		res = settle(reg, sum, fallbackPaid)
		res.Payment = created

		_, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET amount_paid = $1, paid = $2, status = $3,
			    payment_method = COALESCE(payment_method, $4),
			    external_payment_id = COALESCE(external_payment_id, $5)
			WHERE id = $6`,
			res.Totals.AmountPaid, res.Totals.Paid, string(res.Registration.Status),
			p.Method, externalID, reg.ID,
		)
		return err
	})
	if errors.Is(err, errAlreadyRecorded) {
		return unchanged(reg), nil
	}
	if err != nil {
		return nil, err
	}

	if res.Registration.PaymentMethod == nil {
		res.Registration.PaymentMethod = p.Method
	}
	if res.Registration.ExternalPaymentID == nil {
		res.Registration.ExternalPaymentID = externalID
	}
	return res, nil
}

// Edit books the adjustment payment of an admin edit, if any, and saves the
// edited registration in one transaction.
func (r *repository) Edit(ctx context.Context, e Edit) (*Result, error) {
	res := &Result{}
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		reg, err := lock(ctx, tx, e.RegistrationID)
		if err != nil {
			return err
		}
		wasPaid := reg.Paid

		if e.Adjust != nil {
			p, err := e.Adjust(reg)
			if err != nil {
				return err
			}
			if p != nil {
				if p.Amount <= 0 {
					return ErrInvalidAmount
				}
				p.RegistrationID = reg.ID
				created, err := insert(ctx, tx, *p, nil)
				if err != nil {
					return err
				}
				sum, err := ledgerSum(ctx, tx, reg.ID)
				if err != nil {
					return err
				}
				reg = settle(reg, sum, reg.Paid).Registration
				res.Payment = created
			}
		}

		res.Totals = e.Apply(&reg)
		res.Registration = reg
		res.BecamePaid = !wasPaid && reg.Paid

		_, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET full_name = $1, email = $2, phone = $3, seats = $4, status = $5,
			    paid = $6, amount_paid = $7, payment_method = $8, payment_link = $9
			WHERE id = $10`,
			reg.FullName, reg.Email, reg.Phone, reg.Seats, string(reg.Status),
			reg.Paid, reg.AmountPaid, reg.PaymentMethod, reg.PaymentLink, reg.ID,
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Delete removes one payment and recomputes the totals from the rows left.
func (r *repository) Delete(ctx context.Context, registrationID, paymentID int64) (*Result, error) {
	var res *Result
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		reg, err := lock(ctx, tx, registrationID)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM payments WHERE id = $1 AND registration_id = $2`,
			paymentID, registrationID,
		)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPaymentNotFound
		}

		sum, err := ledgerSum(ctx, tx, reg.ID)
		if err != nil {
			return err
		}

		res = settle(reg, sum, reg.Paid && sum > 0)

		_, err = tx.ExecContext(ctx,
			`UPDATE registrations SET amount_paid = $1, paid = $2, status = $3 WHERE id = $4`,
			res.Totals.AmountPaid, res.Totals.Paid, string(res.Registration.Status), reg.ID,
		)
		return err
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (r *repository) ListByRegistration(ctx context.Context, registrationID int64) ([]Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE registration_id = $1
		ORDER BY created_at DESC
	`

	payments := []Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, registrationID); err != nil {
		return nil, err
	}

	return payments, nil
}

func lock(ctx context.Context, tx *sqlx.Tx, registrationID int64) (registration.WithWorkshop, error) {
	var reg registration.WithWorkshop
	err := tx.GetContext(ctx, &reg, lockRegistration, registrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return reg, ErrRegistrationNotFound
	}
	return reg, err
}

func insert(ctx context.Context, tx *sqlx.Tx, p NewPayment, externalID *string) (*Payment, error) {
	var created Payment
	err := tx.GetContext(ctx, &created, `
		INSERT INTO payments (registration_id, amount, method, source, external_payment_id, note, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_payment_id) DO NOTHING
		RETURNING `+paymentColumns,
		p.RegistrationID, p.Amount, p.Method, string(p.Source), externalID, nullIfEmpty(p.Note), nullIfEmpty(p.CreatedBy),
	)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func ledgerSum(ctx context.Context, tx *sqlx.Tx, registrationID int64) (int64, error) {
	var sum int64
	err := tx.GetContext(ctx, &sum,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE registration_id = $1`,
		registrationID,
	)
	return sum, err
}

// settle applies a new ledger sum to a locked registration.
func settle(reg registration.WithWorkshop, sum int64, fallbackPaid bool) *Result {
	totals := registration.ComputeTotals(reg.Price, reg.Seats, sum, fallbackPaid)
	wasPaid := reg.Paid

	reg.AmountPaid = totals.AmountPaid
	reg.Paid = totals.Paid
	reg.Status = registration.DeriveStatus(totals.Paid, reg.Status)

	return &Result{
		Registration: reg,
		Totals:       totals,
		BecamePaid:   !wasPaid && totals.Paid,
	}
}

func unchanged(reg registration.WithWorkshop) *Result {
	return &Result{
		Registration: reg,
		Totals:       registration.ComputeTotals(reg.Price, reg.Seats, reg.AmountPaid, reg.Paid),
		Duplicate:    true,
	}
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
