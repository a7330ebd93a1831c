package workshop

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidWorkshop = errors.New("invalid workshop")

const tokenAttempts = 3

type Service interface {
	CreateWorkshop(ctx context.Context, req CreateWorkshopRequest) (*Workshop, error)
	ListPublic(ctx context.Context) ([]WithStats, error)
	ListAll(ctx context.Context) ([]WithStats, error)
	GetByToken(ctx context.Context, token string) (*WithStats, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *service) CreateWorkshop(ctx context.Context, req CreateWorkshopRequest) (*Workshop, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || req.Capacity < 1 || req.EventAt.IsZero() {
		return nil, ErrInvalidWorkshop
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, ErrInvalidWorkshop
	}

	w := &Workshop{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		EventAt:     req.EventAt,
		Capacity:    req.Capacity,
		Price:       req.Price,
		PaymentLink: trimmedOrNil(req.PaymentLink),
		IsActive:    boolOr(req.IsActive, true),
		IsPublic:    boolOr(req.IsPublic, true),
	}

	var err error
	for i := 0; i < tokenAttempts; i++ {
		w.AccessToken = uuid.NewString()
		created, createErr := s.repo.Create(ctx, w)
		if createErr == nil {
			return created, nil
		}
		err = createErr
		if !errors.Is(err, ErrTokenTaken) {
			break
		}
	}
	return nil, err
}

// ListPublic returns active public workshops that have not started yet.
// Access tokens are not exposed on the public listing.
func (s *service) ListPublic(ctx context.Context) ([]WithStats, error) {
	ws, err := s.repo.ListPublic(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range ws {
		ws[i].AccessToken = ""
	}
	return ws, nil
}

func (s *service) ListAll(ctx context.Context) ([]WithStats, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) GetByToken(ctx context.Context, token string) (*WithStats, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}

	w, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !w.IsActive {
		return nil, ErrNotFound
	}

	return w, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
