package workshop

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"workshops/internal/db"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound   = errors.New("workshop not found")
	ErrTokenTaken = errors.New("access token already in use")
)

const columns = `id, title, description, event_at, capacity, price, payment_link,
	is_active, is_public, access_token, created_at`

const statsColumns = columns + `, seats_left`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, w *Workshop) (*Workshop, error) {
	query := `
		INSERT INTO workshops (title, description, event_at, capacity, price, payment_link, is_active, is_public, access_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + columns

	var created Workshop
	err := r.db.GetContext(ctx, &created, query,
		w.Title, w.Description, w.EventAt, w.Capacity, w.Price, w.PaymentLink,
		w.IsActive, w.IsPublic, w.AccessToken,
	)
	if db.IsUniqueViolation(err) {
		return nil, ErrTokenTaken
	}
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Workshop, error) {
	var w Workshop
	err := r.db.GetContext(ctx, &w, `SELECT `+columns+` FROM workshops WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &w, nil
}

func (r *repository) GetWithStats(ctx context.Context, id int64) (*WithStats, error) {
	var w WithStats
	err := r.db.GetContext(ctx, &w, `SELECT `+statsColumns+` FROM workshops_with_stats WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &w, nil
}

func (r *repository) GetByToken(ctx context.Context, token string) (*WithStats, error) {
	var w WithStats
	err := r.db.GetContext(ctx, &w, `SELECT `+statsColumns+` FROM workshops_with_stats WHERE access_token = $1`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &w, nil
}

func (r *repository) ListPublic(ctx context.Context, now time.Time) ([]WithStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM workshops_with_stats
		WHERE is_public = TRUE AND is_active = TRUE AND event_at >= $1
		ORDER BY event_at ASC
	`

	ws := []WithStats{}
	if err := r.db.SelectContext(ctx, &ws, query, now); err != nil {
		return nil, err
	}

	return ws, nil
}

func (r *repository) ListAll(ctx context.Context) ([]WithStats, error) {
	query := `
		SELECT ` + statsColumns + `
		FROM workshops_with_stats
		ORDER BY event_at DESC
	`

	ws := []WithStats{}
	if err := r.db.SelectContext(ctx, &ws, query); err != nil {
		return nil, err
	}

	return ws, nil
}

const updateQuery = `
	UPDATE workshops
	SET title = $1, description = $2, event_at = $3, capacity = $4, price = $5,
	    payment_link = $6, is_active = $7, is_public = $8
	WHERE id = $9
`

func (r *repository) Update(ctx context.Context, w *Workshop) error {
	result, err := r.db.ExecContext(ctx, updateQuery,
		w.Title, w.Description, w.EventAt, w.Capacity, w.Price,
		w.PaymentLink, w.IsActive, w.IsPublic, w.ID,
	)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

// UpdateRepriced saves the workshop and, when it has a price, re-derives paid
// and status of its registrations against that price in the same
// transaction. It returns the number of registrations whose paid flag or
// status changed.
func (r *repository) UpdateRepriced(ctx context.Context, w *Workshop) (int64, error) {
	var changed int64
	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, updateQuery,
			w.Title, w.Description, w.EventAt, w.Capacity, w.Price,
			w.PaymentLink, w.IsActive, w.IsPublic, w.ID,
		)
		if err != nil {
			return err
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		// without a price paid stays as the admin or the ledger left it
		if w.Price == nil {
			return nil
		}

		result, err = tx.ExecContext(ctx, `
			UPDATE registrations
			SET paid = amount_paid >= $1::bigint * seats,
			    status = CASE
			        WHEN status = 'pending' AND amount_paid >= $1::bigint * seats THEN 'confirmed'
			        ELSE status
			    END
			WHERE workshop_id = $2
			  AND (paid <> (amount_paid >= $1::bigint * seats)
			       OR (status = 'pending' AND amount_paid >= $1::bigint * seats))`,
			*w.Price, w.ID,
		)
		if err != nil {
			return err
		}
		changed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	return changed, nil
}

// Delete removes the workshop; registrations and their payments go with it
// through the foreign key cascade.
func (r *repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workshops WHERE id = $1`, id)
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
