package registration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"workshops/internal/email"
	"workshops/internal/logger"
	"workshops/internal/metrics"
	"workshops/internal/paylink"
	"workshops/internal/workshop"
)

var (
	ErrWorkshopNotFound = errors.New("workshop not found")
	ErrWorkshopClosed   = errors.New("workshop is not open for registration")
	ErrNotEnoughSeats   = errors.New("not enough seats left")
)

// Workshops is the part of the workshop store the registration flow reads.
type Workshops interface {
	GetWithStats(ctx context.Context, id int64) (*workshop.WithStats, error)
}

// LinkProvider issues a per-registration payment link.
type LinkProvider interface {
	CreateLink(ctx context.Context, amount int64, metadata map[string]string) (*paylink.Link, error)
}

type Notifier interface {
	SendRegistrationReceived(ctx context.Context, to, name string, d email.RegistrationDetails) error
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

type service struct {
	repo      Repository
	workshops Workshops
	links     LinkProvider
	notifier  Notifier
}

// NewService wires the public registration flow. links and notifier may be nil.
func NewService(repo Repository, workshops Workshops, links LinkProvider, notifier Notifier) Service {
	return &service{
		repo:      repo,
		workshops: workshops,
		links:     links,
		notifier:  notifier,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	seats := req.Seats
	if seats < 1 {
		seats = 1
	}

	w, err := s.workshops.GetWithStats(ctx, req.WorkshopID)
	if err != nil {
		if errors.Is(err, workshop.ErrNotFound) {
			return nil, ErrWorkshopNotFound
		}
		return nil, fmt.Errorf("load workshop: %w", err)
	}
	if !w.IsActive {
		return nil, ErrWorkshopClosed
	}
	if w.SeatsLeft < seats {
		metrics.RecordRegistration("no_seats")
		return nil, ErrNotEnoughSeats
	}

	reg, err := s.repo.Create(ctx, &Registration{
		WorkshopID: w.ID,
		FullName:   strings.TrimSpace(req.FullName),
		Email:      NormalizeEmail(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Seats:      seats,
	})
	if err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	metrics.RecordRegistration("created")
	logger.Info("registration created", "registration_id", reg.ID, "workshop_id", w.ID, "seats", seats)

	link := s.paymentLink(ctx, w, reg)

	if s.notifier != nil && reg.Email != "" {
		details := email.RegistrationDetails{
			WorkshopTitle: w.Title,
			EventAt:       w.EventAt,
			Seats:         reg.Seats,
		}
		if w.Price != nil {
			total := *w.Price * int64(reg.Seats)
			details.Total = &total
		}
		if link != nil {
			details.PaymentLink = *link
		}
		if err := s.notifier.SendRegistrationReceived(ctx, reg.Email, reg.FullName, details); err != nil {
			logger.Warn("registration email not queued", "registration_id", reg.ID, "error", err)
		}
	}

	msg := "registered; payment will be handled manually"
	if link != nil {
		msg = "registered; you can pay using the attached link"
	}

	return &RegisterResponse{
		Message:        msg,
		RegistrationID: reg.ID,
		PaymentLink:    link,
	}, nil
}

// paymentLink returns the workshop's static link, replaced by a dynamic one
// when a provider is configured and answers. Provider failures never fail
// the registration.
func (s *service) paymentLink(ctx context.Context, w *workshop.WithStats, reg *Registration) *string {
	link := w.PaymentLink
	if s.links == nil || w.Price == nil || *w.Price <= 0 {
		return link
	}

	l, err := s.links.CreateLink(ctx, *w.Price*int64(reg.Seats), map[string]string{
		"registration_id": strconv.FormatInt(reg.ID, 10),
	})
	if err != nil {
		logger.Warn("payment link provider failed", "registration_id", reg.ID, "error", err)
		return link
	}

	if l.URL != "" {
		url := l.URL
		link = &url
	}
	var externalID *string
	if l.ExternalID != "" {
		id := l.ExternalID
		externalID = &id
	}
	if link != nil {
		if err := s.repo.SetPaymentLink(ctx, reg.ID, *link, externalID); err != nil {
			logger.Warn("storing payment link failed", "registration_id", reg.ID, "error", err)
		}
	}

	return link
}
