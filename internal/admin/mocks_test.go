package admin

import (
	"context"
	"time"

	"workshops/internal/payment"
	"workshops/internal/registration"
	"workshops/internal/workshop"

	"github.com/stretchr/testify/mock"
)

type MockWorkshopRepository struct {
	mock.Mock
}

func (m *MockWorkshopRepository) Create(ctx context.Context, w *workshop.Workshop) (*workshop.Workshop, error) {
	args := m.Called(ctx, w)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.Workshop), args.Error(1)
}

func (m *MockWorkshopRepository) GetByID(ctx context.Context, id int64) (*workshop.Workshop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.Workshop), args.Error(1)
}

func (m *MockWorkshopRepository) GetWithStats(ctx context.Context, id int64) (*workshop.WithStats, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.WithStats), args.Error(1)
}

func (m *MockWorkshopRepository) GetByToken(ctx context.Context, token string) (*workshop.WithStats, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workshop.WithStats), args.Error(1)
}

func (m *MockWorkshopRepository) ListPublic(ctx context.Context, now time.Time) ([]workshop.WithStats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]workshop.WithStats), args.Error(1)
}

func (m *MockWorkshopRepository) ListAll(ctx context.Context) ([]workshop.WithStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]workshop.WithStats), args.Error(1)
}

func (m *MockWorkshopRepository) Update(ctx context.Context, w *workshop.Workshop) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWorkshopRepository) UpdateRepriced(ctx context.Context, w *workshop.Workshop) (int64, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWorkshopRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) Create(ctx context.Context, reg *registration.Registration) (*registration.Registration, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registration.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) GetByID(ctx context.Context, id int64) (*registration.Registration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registration.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) GetWithWorkshop(ctx context.Context, id int64) (*registration.WithWorkshop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registration.WithWorkshop), args.Error(1)
}

func (m *MockRegistrationRepository) List(ctx context.Context, filter registration.ListFilter) ([]registration.WithWorkshop, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registration.WithWorkshop), args.Error(1)
}

func (m *MockRegistrationRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRegistrationRepository) FindCandidates(ctx context.Context, q registration.CandidateQuery) ([]registration.Registration, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]registration.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) FindByExternalPaymentID(ctx context.Context, externalID string) (*registration.Registration, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*registration.Registration), args.Error(1)
}

func (m *MockRegistrationRepository) SetPaymentLink(ctx context.Context, id int64, link string, externalID *string) error {
	return m.Called(ctx, id, link, externalID).Error(0)
}

type MockLedger struct {
	mock.Mock
	booked []payment.NewPayment
}

// EditRegistration runs the edit callbacks against the locked row the test
// returns. A non-nil error is reported after the callbacks ran, like a failed
// write, and nothing is booked then.
func (m *MockLedger) EditRegistration(ctx context.Context, e payment.Edit) (*payment.Result, error) {
	args := m.Called(ctx, e.RegistrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	reg := *args.Get(0).(*registration.WithWorkshop)
	wasPaid := reg.Paid

	adj, err := e.Adjust(reg)
	if err != nil {
		return nil, err
	}
	if adj != nil {
		reg.AmountPaid += adj.Amount
		totals := registration.ComputeTotals(reg.Price, reg.Seats, reg.AmountPaid, reg.Paid)
		reg.Paid = totals.Paid
		reg.Status = registration.DeriveStatus(reg.Paid, reg.Status)
	}
	totals := e.Apply(&reg)

	if err := args.Error(1); err != nil {
		return nil, err
	}
	if adj != nil {
		m.booked = append(m.booked, *adj)
	}
	return &payment.Result{Registration: reg, Totals: totals, BecamePaid: !wasPaid && reg.Paid}, nil
}

func (m *MockLedger) RecordPayment(ctx context.Context, p payment.NewPayment) (*payment.Result, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func (m *MockLedger) DeletePayment(ctx context.Context, registrationID, paymentID int64) (*payment.Result, error) {
	args := m.Called(ctx, registrationID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Result), args.Error(1)
}

func (m *MockLedger) ListPayments(ctx context.Context, registrationID int64) ([]payment.Payment, error) {
	args := m.Called(ctx, registrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]payment.Payment), args.Error(1)
}
