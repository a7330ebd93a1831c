package webhook

import (
	"context"
	"errors"
	"sort"
	"time"

	"workshops/internal/registration"
)

var (
	ErrMissingIdentity = errors.New("payer email and phone are both missing")
	ErrNoMatch         = errors.New("no matching registration")
)

// DefaultWindow bounds how old a registration may be to receive a payment.
const DefaultWindow = 7 * 24 * time.Hour

// Identity is the payer as reported by the provider. RegistrationID is set
// when the provider echoes back the id it was given at link creation.
type Identity struct {
	Email          string
	PhoneDigits    string
	RegistrationID int64
}

func (i Identity) Empty() bool {
	return i.Email == "" && i.PhoneDigits == ""
}

// Store is the read side of the registration repository the matcher needs.
type Store interface {
	GetByID(ctx context.Context, id int64) (*registration.Registration, error)
	FindCandidates(ctx context.Context, q registration.CandidateQuery) ([]registration.Registration, error)
	FindByExternalPaymentID(ctx context.Context, externalID string) (*registration.Registration, error)
}

type Match struct {
	Registration registration.Registration
	// Idempotent means the external id was already settled on this registration.
	Idempotent bool
	Direct     bool
}

type Matcher struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

func NewMatcher(store Store, window time.Duration) *Matcher {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Matcher{
		store:  store,
		window: window,
		now:    time.Now,
	}
}

// FindRegistration selects at most one open registration to credit.
func (m *Matcher) FindRegistration(ctx context.Context, id Identity, externalID string) (*Match, error) {
	if externalID != "" {
		reg, err := m.store.FindByExternalPaymentID(ctx, externalID)
		switch {
		case err == nil && reg.Paid:
			return &Match{Registration: *reg, Idempotent: true}, nil
		case err != nil && !errors.Is(err, registration.ErrNotFound):
			return nil, err
		}
	}

	since := m.now().Add(-m.window)

	if id.RegistrationID > 0 {
		reg, err := m.store.GetByID(ctx, id.RegistrationID)
		if err != nil && !errors.Is(err, registration.ErrNotFound) {
			return nil, err
		}
		if err == nil && open(*reg, since) {
			return &Match{Registration: *reg, Direct: true}, nil
		}
	}

	if id.Empty() {
		return nil, ErrMissingIdentity
	}

	candidates, err := m.store.FindCandidates(ctx, registration.CandidateQuery{
		Email:       id.Email,
		PhoneDigits: id.PhoneDigits,
		PhoneDashed: registration.DashedPhone(id.PhoneDigits),
		Since:       since,
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})

	for _, c := range candidates {
		if !open(c, since) {
			continue
		}
		emailOK := id.Email != "" && registration.NormalizeEmail(c.Email) == id.Email
		phoneOK := id.PhoneDigits != "" && registration.PhoneDigits(c.Phone) == id.PhoneDigits
		if emailOK || phoneOK {
			return &Match{Registration: c}, nil
		}
	}

	return nil, ErrNoMatch
}

// open reports whether a registration may still receive a webhook payment.
func open(r registration.Registration, since time.Time) bool {
	return r.Status == registration.StatusPending && !r.Paid && !r.CreatedAt.Before(since)
}
