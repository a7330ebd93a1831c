package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"workshops/internal/payment"
	"workshops/internal/registration"
	"workshops/internal/workshop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	workshops *MockWorkshopRepository
	regs      *MockRegistrationRepository
	ledger    *MockLedger
	gateway   Gateway
}

func newFixture() *fixture {
	f := &fixture{
		workshops: new(MockWorkshopRepository),
		regs:      new(MockRegistrationRepository),
		ledger:    new(MockLedger),
	}
	f.gateway = NewGateway(f.workshops, f.regs, f.ledger)
	return f
}

func price(v int64) *int64 { return &v }

func patchBody(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

// storedReg is registration 1 on a workshop with the given price per seat.
func storedReg(seats int, amountPaid int64, paid bool, status registration.Status, p *int64) *registration.WithWorkshop {
	return &registration.WithWorkshop{
		Registration: registration.Registration{
			ID:         1,
			WorkshopID: 3,
			FullName:   "Dana Levi",
			Email:      "dana@example.com",
			Seats:      seats,
			Status:     status,
			Paid:       paid,
			AmountPaid: amountPaid,
			CreatedAt:  time.Now(),
		},
		WorkshopTitle: "Sourdough",
		Price:         p,
	}
}

func assertValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr
}

func TestPatchRegistration_RejectsEmptyPatch(t *testing.T) {
	f := newFixture()

	for _, body := range []string{`{}`, `{"id": 9, "workshop_id": 2, "created_at": "2020-01-01"}`} {
		_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, body))
		assertValidation(t, err)
	}

	f.ledger.AssertNotCalled(t, "EditRegistration", mock.Anything, mock.Anything)
}

func TestPatchRegistration_RejectsBadSeats(t *testing.T) {
	f := newFixture()

	for _, seats := range []string{`0`, `-1`, `1.5`, `"two"`, `null`, `51`, `9223372036854775807`} {
		_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"seats": `+seats+`}`))
		verr := assertValidation(t, err)
		assert.Equal(t, "seats", verr.Field, seats)
	}

	f.ledger.AssertNotCalled(t, "EditRegistration", mock.Anything, mock.Anything)
}

func TestPatchRegistration_AcceptsMaxSeats(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(1, 0, false, registration.StatusPending, price(100)), nil)

	res, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"seats": 50}`))
	require.NoError(t, err)
	assert.Equal(t, registration.MaxSeats, res.Registration.Seats)
	assert.Equal(t, int64(5000), *res.Totals.Total)
}

func TestPatchRegistration_RejectsBadValues(t *testing.T) {
	f := newFixture()

	for _, body := range []string{
		`{"status": "done"}`,
		`{"payment_method": "crypto"}`,
		`{"paid": "yes"}`,
		`{"amount_paid": -10}`,
		`{"full_name": "  "}`,
	} {
		_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, body))
		assertValidation(t, err)
	}
}

func TestPatchRegistration_ValidatesContactFields(t *testing.T) {
	f := newFixture()

	tests := []struct {
		body  string
		field string
	}{
		{`{"email": "not-an-address"}`, "email"},
		{`{"phone": "` + strings.Repeat("5", 40) + `"}`, "phone"},
		{`{"full_name": "` + strings.Repeat("a", 201) + `"}`, "full_name"},
	}

	for _, tt := range tests {
		_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, tt.body))
		verr := assertValidation(t, err)
		assert.Equal(t, tt.field, verr.Field, tt.body)
	}

	f.ledger.AssertNotCalled(t, "EditRegistration", mock.Anything, mock.Anything)
}

func TestPatchRegistration_SeatsDecreaseKeepsPaid(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(2, 200, true, registration.StatusConfirmed, price(100)), nil)

	res, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"seats": 1}`))
	require.NoError(t, err)

	require.NotNil(t, res.Totals.Total)
	assert.Equal(t, int64(100), *res.Totals.Total)
	assert.True(t, res.Totals.Paid)
	assert.Equal(t, 1, res.Registration.Seats)
	assert.Equal(t, int64(200), res.Registration.AmountPaid)
	assert.Equal(t, registration.StatusConfirmed, res.Registration.Status)
	assert.Empty(t, f.ledger.booked)
	f.ledger.AssertExpectations(t)
}

func TestPatchRegistration_SeatsIncreaseRecomputesPaid(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(2, 200, true, registration.StatusConfirmed, price(100)), nil)

	res, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"seats": 3}`))
	require.NoError(t, err)

	assert.False(t, res.Registration.Paid)
	assert.Equal(t, int64(300), *res.Totals.Total)
	// no downgrade on its own
	assert.Equal(t, registration.StatusConfirmed, res.Registration.Status)
}

func TestPatchRegistration_PaidIsAdvisoryWithPrice(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(1, 0, false, registration.StatusPending, price(100)), nil)

	res, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"paid": true}`))
	require.NoError(t, err)

	assert.False(t, res.Registration.Paid)
	assert.Equal(t, registration.StatusPending, res.Registration.Status)
}

func TestPatchRegistration_PaidSetDirectlyWithoutPrice(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(1, 0, false, registration.StatusPending, nil), nil)

	res, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"paid": true}`))
	require.NoError(t, err)

	assert.True(t, res.Registration.Paid)
	assert.Nil(t, res.Totals.Total)
	assert.Equal(t, registration.StatusConfirmed, res.Registration.Status)
}

func TestPatchRegistration_ExplicitStatusWins(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(1, 100, true, registration.StatusConfirmed, price(100)), nil)

	res, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"status": "cancelled", "phone": " 050-1111111 "}`))
	require.NoError(t, err)

	assert.Equal(t, registration.StatusCancelled, res.Registration.Status)
	assert.True(t, res.Registration.Paid)
	assert.Equal(t, "050-1111111", res.Registration.Phone)
}

func TestPatchRegistration_AmountRaiseIsBookedWithTheEdit(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(2, 100, false, registration.StatusPending, price(100)), nil)

	res, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"amount_paid": 200, "payment_method": "cash"}`))
	require.NoError(t, err)

	cash := registration.MethodCash
	assert.Equal(t, []payment.NewPayment{{
		RegistrationID: 1,
		Amount:         100,
		Method:         &cash,
		Source:         payment.SourceAdmin,
		Note:           adjustmentNote,
		CreatedBy:      CreatedBy,
	}}, f.ledger.booked)
	assert.Equal(t, int64(200), res.Registration.AmountPaid)
	assert.True(t, res.Registration.Paid)
	assert.Equal(t, registration.StatusConfirmed, res.Registration.Status)
	require.NotNil(t, res.Registration.PaymentMethod)
	assert.Equal(t, registration.MethodCash, *res.Registration.PaymentMethod)
	f.ledger.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything)
}

func TestPatchRegistration_FailedWriteBooksNoPayment(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(2, 100, false, registration.StatusPending, price(100)), assert.AnError)

	_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"amount_paid": 200, "seats": 3}`))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, f.ledger.booked)
}

func TestPatchRegistration_AmountCannotDropBelowLedger(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(2, 200, true, registration.StatusConfirmed, price(100)), nil)

	_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"amount_paid": 50}`))

	verr := assertValidation(t, err)
	assert.Equal(t, "amount_paid", verr.Field)
	assert.Empty(t, f.ledger.booked)
}

func TestPatchRegistration_UnchangedAmountSkipsLedger(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).
		Return(storedReg(2, 200, true, registration.StatusConfirmed, price(100)), nil)

	_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"amount_paid": 200}`))
	require.NoError(t, err)
	assert.Empty(t, f.ledger.booked)
}

func TestPatchRegistration_NotFound(t *testing.T) {
	f := newFixture()
	f.ledger.On("EditRegistration", mock.Anything, int64(1)).Return(nil, payment.ErrRegistrationNotFound)

	_, err := f.gateway.PatchRegistration(context.Background(), 1, patchBody(t, `{"seats": 2}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatchWorkshop(t *testing.T) {
	f := newFixture()
	f.workshops.On("GetByID", mock.Anything, int64(3)).Return(&workshop.Workshop{
		ID: 3, Title: "Old", Capacity: 10, Price: price(100), IsActive: true, IsPublic: true,
	}, nil)
	f.workshops.On("UpdateRepriced", mock.Anything, mock.Anything).Return(int64(0), nil)

	w, err := f.gateway.PatchWorkshop(context.Background(), 3, patchBody(t,
		`{"title": " New title ", "price": null, "capacity": 5, "is_public": false, "event_at": "2026-11-20T18:00", "access_token": "x"}`))
	require.NoError(t, err)

	assert.Equal(t, "New title", w.Title)
	assert.Nil(t, w.Price)
	assert.Equal(t, 5, w.Capacity)
	assert.False(t, w.IsPublic)
	assert.True(t, w.IsActive)
	assert.Equal(t, time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC), w.EventAt)
	assert.Empty(t, w.AccessToken)
	f.workshops.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPatchWorkshop_PriceRederivesRegistrations(t *testing.T) {
	f := newFixture()
	f.workshops.On("GetByID", mock.Anything, int64(3)).Return(&workshop.Workshop{
		ID: 3, Title: "Clay", Capacity: 10, Price: price(100),
	}, nil)
	f.workshops.On("UpdateRepriced", mock.Anything, mock.MatchedBy(func(w *workshop.Workshop) bool {
		return w.ID == 3 && w.Price != nil && *w.Price == 80
	})).Return(int64(2), nil).Once()

	w, err := f.gateway.PatchWorkshop(context.Background(), 3, patchBody(t, `{"price": 80}`))
	require.NoError(t, err)
	assert.Equal(t, int64(80), *w.Price)
	f.workshops.AssertExpectations(t)
	f.workshops.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPatchWorkshop_WithoutPriceKeepsRegistrations(t *testing.T) {
	f := newFixture()
	f.workshops.On("GetByID", mock.Anything, int64(3)).Return(&workshop.Workshop{
		ID: 3, Title: "Clay", Capacity: 10, Price: price(100),
	}, nil)
	f.workshops.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.gateway.PatchWorkshop(context.Background(), 3, patchBody(t, `{"capacity": 12}`))
	require.NoError(t, err)
	f.workshops.AssertNotCalled(t, "UpdateRepriced", mock.Anything, mock.Anything)
}

func TestPatchWorkshop_RepricedNotFound(t *testing.T) {
	f := newFixture()
	f.workshops.On("GetByID", mock.Anything, int64(3)).Return(&workshop.Workshop{ID: 3, Title: "Clay", Capacity: 10}, nil)
	f.workshops.On("UpdateRepriced", mock.Anything, mock.Anything).Return(int64(0), workshop.ErrNotFound)

	_, err := f.gateway.PatchWorkshop(context.Background(), 3, patchBody(t, `{"price": 50}`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPatchWorkshop_Invalid(t *testing.T) {
	for _, body := range []string{`{}`, `{"capacity": 0}`, `{"price": -1}`, `{"price": 9223372036854775807}`, `{"title": ""}`, `{"event_at": "tomorrow"}`} {
		f := newFixture()
		f.workshops.On("GetByID", mock.Anything, int64(3)).Return(&workshop.Workshop{ID: 3, Title: "Old", Capacity: 10}, nil)

		_, err := f.gateway.PatchWorkshop(context.Background(), 3, patchBody(t, body))
		assertValidation(t, err)
		f.workshops.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.workshops.AssertNotCalled(t, "UpdateRepriced", mock.Anything, mock.Anything)
	}
}

func TestDeleteWorkshop(t *testing.T) {
	f := newFixture()
	f.workshops.On("Delete", mock.Anything, int64(3)).Return(nil).Once()
	f.workshops.On("Delete", mock.Anything, int64(4)).Return(workshop.ErrNotFound).Once()

	assert.NoError(t, f.gateway.DeleteWorkshop(context.Background(), 3))
	assert.ErrorIs(t, f.gateway.DeleteWorkshop(context.Background(), 4), ErrNotFound)
}

func TestDeleteRegistration(t *testing.T) {
	f := newFixture()
	f.regs.On("Delete", mock.Anything, int64(1)).Return(registration.ErrNotFound)

	assert.ErrorIs(t, f.gateway.DeleteRegistration(context.Background(), 1), ErrNotFound)
}

func TestAddPayment(t *testing.T) {
	f := newFixture()
	transfer := registration.MethodTransfer
	f.ledger.On("RecordPayment", mock.Anything, payment.NewPayment{
		RegistrationID: 1,
		Amount:         150,
		Method:         &transfer,
		Source:         payment.SourceAdmin,
		Note:           "bank",
		CreatedBy:      "admin-ui",
	}).Return(&payment.Result{Totals: registration.Totals{AmountPaid: 150}}, nil)

	res, err := f.gateway.AddPayment(context.Background(), 1, payment.AddPaymentRequest{Amount: 150, Method: "Bank Transfer", Note: "bank"})
	require.NoError(t, err)
	assert.Equal(t, int64(150), res.Totals.AmountPaid)
}

func TestAddPayment_Errors(t *testing.T) {
	f := newFixture()

	_, err := f.gateway.AddPayment(context.Background(), 1, payment.AddPaymentRequest{Amount: 10, Method: "crypto"})
	assertValidation(t, err)

	f.ledger.On("RecordPayment", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("record payment: %w", payment.ErrRegistrationNotFound)).Once()
	_, err = f.gateway.AddPayment(context.Background(), 99, payment.AddPaymentRequest{Amount: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	f.ledger.On("RecordPayment", mock.Anything, mock.Anything).Return(nil, payment.ErrInvalidAmount).Once()
	_, err = f.gateway.AddPayment(context.Background(), 1, payment.AddPaymentRequest{Amount: 0})
	assertValidation(t, err)
}

func TestDeletePayment(t *testing.T) {
	f := newFixture()
	f.ledger.On("DeletePayment", mock.Anything, int64(1), int64(7)).Return(&payment.Result{
		Registration: *storedReg(2, 0, false, registration.StatusConfirmed, price(100)),
	}, nil)
	f.ledger.On("DeletePayment", mock.Anything, int64(1), int64(8)).Return(nil, payment.ErrPaymentNotFound)

	res, err := f.gateway.DeletePayment(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, registration.StatusConfirmed, res.Registration.Status)

	_, err = f.gateway.DeletePayment(context.Background(), 1, 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPayments(t *testing.T) {
	f := newFixture()
	f.regs.On("GetByID", mock.Anything, int64(1)).Return(&registration.Registration{ID: 1}, nil)
	f.regs.On("GetByID", mock.Anything, int64(2)).Return(nil, registration.ErrNotFound)
	f.ledger.On("ListPayments", mock.Anything, int64(1)).Return([]payment.Payment{{ID: 1, Amount: 50}}, nil)

	payments, err := f.gateway.ListPayments(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	_, err = f.gateway.ListPayments(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportRegistrations(t *testing.T) {
	f := newFixture()
	paid := true
	filter := registration.ListFilter{Paid: &paid}
	f.regs.On("List", mock.Anything, filter).Return([]registration.WithWorkshop{
		*storedReg(2, 200, true, registration.StatusConfirmed, price(100)),
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, f.gateway.ExportRegistrations(context.Background(), &buf, filter))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\ufeff"))
	assert.Contains(t, out, "Dana Levi")
}
