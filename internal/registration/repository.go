package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("registration not found")

const columns = `id, workshop_id, full_name, email, phone, seats, status, paid, amount_paid,
	payment_method, payment_link, external_payment_id, created_at`

const joinedColumns = `r.id, r.workshop_id, r.full_name, r.email, r.phone, r.seats, r.status, r.paid,
	r.amount_paid, r.payment_method, r.payment_link, r.external_payment_id, r.created_at,
	w.title AS workshop_title, w.event_at AS workshop_event_at, w.price`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, reg *Registration) (*Registration, error) {
	query := `
		INSERT INTO registrations (workshop_id, full_name, email, phone, seats, status, paid, amount_paid)
		VALUES ($1, $2, $3, $4, $5, 'pending', FALSE, 0)
		RETURNING ` + columns

	var created Registration
	err := r.db.GetContext(ctx, &created, query, reg.WorkshopID, reg.FullName, reg.Email, reg.Phone, reg.Seats)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Registration, error) {
	query := `SELECT ` + columns + ` FROM registrations WHERE id = $1`

	var reg Registration
	err := r.db.GetContext(ctx, &reg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

func (r *repository) GetWithWorkshop(ctx context.Context, id int64) (*WithWorkshop, error) {
	query := `
		SELECT ` + joinedColumns + `
		FROM registrations r
		JOIN workshops w ON w.id = r.workshop_id
		WHERE r.id = $1
	`

	var reg WithWorkshop
	err := r.db.GetContext(ctx, &reg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]WithWorkshop, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.WorkshopID != nil {
		add("r.workshop_id = $%d", *filter.WorkshopID)
	}
	if filter.Status != nil {
		add("r.status = $%d", string(*filter.Status))
	}
	if filter.Paid != nil {
		add("r.paid = $%d", *filter.Paid)
	}
	if filter.From != nil {
		add("r.created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("r.created_at <= $%d", *filter.To)
	}

	query := `
		SELECT ` + joinedColumns + `
		FROM registrations r
		JOIN workshops w ON w.id = r.workshop_id
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.created_at DESC"

	regs := []WithWorkshop{}
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, err
	}

	return regs, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

func (r *repository) FindCandidates(ctx context.Context, q CandidateQuery) ([]Registration, error) {
	query := `
		SELECT ` + columns + `
		FROM registrations
		WHERE status = 'pending'
		  AND paid = FALSE
		  AND created_at >= $1
		  AND (
		    ($2 <> '' AND lower(trim(email)) = $2)
		    OR ($3 <> '' AND phone IN ($3, $4))
		  )
		ORDER BY created_at DESC
	`

	regs := []Registration{}
	err := r.db.SelectContext(ctx, &regs, query, q.Since, q.Email, q.PhoneDigits, q.PhoneDashed)
	if err != nil {
		return nil, err
	}

	return regs, nil
}

// FindByExternalPaymentID looks the id up on the registration itself and on
// its ledger rows.
func (r *repository) FindByExternalPaymentID(ctx context.Context, externalID string) (*Registration, error) {
	query := `
		SELECT ` + columns + `
		FROM registrations
		WHERE external_payment_id = $1
		   OR id IN (SELECT registration_id FROM payments WHERE external_payment_id = $1)
		ORDER BY created_at DESC
		LIMIT 1
	`

	var reg Registration
	err := r.db.GetContext(ctx, &reg, query, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &reg, nil
}

func (r *repository) SetPaymentLink(ctx context.Context, id int64, link string, externalID *string) error {
	query := `
		UPDATE registrations
		SET payment_link = $1, external_payment_id = COALESCE($2, external_payment_id)
		WHERE id = $3
	`

	result, err := r.db.ExecContext(ctx, query, link, externalID, id)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
