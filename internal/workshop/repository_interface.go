package workshop

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, w *Workshop) (*Workshop, error)
	GetByID(ctx context.Context, id int64) (*Workshop, error)
	GetWithStats(ctx context.Context, id int64) (*WithStats, error)
	GetByToken(ctx context.Context, token string) (*WithStats, error)
	ListPublic(ctx context.Context, now time.Time) ([]WithStats, error)
	ListAll(ctx context.Context) ([]WithStats, error)
	Update(ctx context.Context, w *Workshop) error
	UpdateRepriced(ctx context.Context, w *Workshop) (int64, error)
	Delete(ctx context.Context, id int64) error
}
