package webhook

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

var ErrEventNotFound = errors.New("webhook event not found")

// Event is one row of the append-only webhook audit log.
type Event struct {
	ID             int64          `db:"id" json:"id"`
	Payload        types.JSONText `db:"payload" json:"payload" swaggertype:"object"`
	Headers        types.JSONText `db:"headers" json:"headers" swaggertype:"object"`
	Source         string         `db:"source" json:"source"`
	Matched        bool           `db:"matched" json:"matched"`
	RegistrationID *int64         `db:"registration_id" json:"registration_id"`
	Error          *string        `db:"error" json:"error"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

type EventFilter struct {
	Matched *bool
	Limit   int
}

type AuditRepository interface {
	Insert(ctx context.Context, payload, headers []byte, source string) (int64, error)
	MarkMatched(ctx context.Context, id, registrationID int64) error
	MarkFailed(ctx context.Context, id int64, reason string, registrationID *int64) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, filter EventFilter) ([]Event, error)
}

const eventColumns = `id, payload, headers, source, matched, registration_id, error, created_at`

type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Insert(ctx context.Context, payload, headers []byte, source string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `
		INSERT INTO webhook_events (payload, headers, source, matched)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id`,
		types.JSONText(payload), types.JSONText(headers), source,
	)
	return id, err
}

// MarkMatched flips the only mutable fields of an audit row.
func (r *auditRepository) MarkMatched(ctx context.Context, id, registrationID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET matched = TRUE, registration_id = $1, error = NULL WHERE id = $2`,
		registrationID, id,
	)
	return err
}

func (r *auditRepository) MarkFailed(ctx context.Context, id int64, reason string, registrationID *int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET error = $1, registration_id = COALESCE($2, registration_id) WHERE id = $3 AND matched = FALSE`,
		reason, registrationID, id,
	)
	return err
}

func (r *auditRepository) GetByID(ctx context.Context, id int64) (*Event, error) {
	var ev Event
	err := r.db.GetContext(ctx, &ev, `SELECT `+eventColumns+` FROM webhook_events WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *auditRepository) List(ctx context.Context, filter EventFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `SELECT ` + eventColumns + ` FROM webhook_events`
	args := []interface{}{}
	if filter.Matched != nil {
		query += ` WHERE matched = $1`
		args = append(args, *filter.Matched)
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	events := []Event{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, err
	}
	return events, nil
}

// auditPayload keeps JSON bodies as they are and wraps anything else as {"raw": body}.
func auditPayload(body []byte) []byte {
	if len(body) > 0 && json.Valid(body) {
		return body
	}
	raw := string(body)
	if raw == "" {
		raw = "(empty)"
	}
	out, _ := json.Marshal(map[string]string{"raw": raw})
	return out
}

func auditHeaders(headers map[string]string) []byte {
	if headers == nil {
		headers = map[string]string{}
	}
	out, err := json.Marshal(headers)
	if err != nil {
		return []byte("{}")
	}
	return out
}
