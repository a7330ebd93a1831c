package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"

	"workshops/internal/api"
	"workshops/internal/logger"
	"workshops/internal/metrics"
	"workshops/internal/payment"
	"workshops/internal/registration"
	"workshops/internal/workshop"
)

var ErrNotFound = errors.New("not found")

// CreatedBy tags ledger rows written from the admin screens.
const CreatedBy = "admin-ui"

const adjustmentNote = "admin adjustment of amount_paid"

// maxPrice keeps price * seats within a bigint.
const maxPrice = math.MaxInt64 / registration.MaxSeats

// PatchResult is a registration after an admin edit, with its derived totals.
type PatchResult struct {
	Registration registration.WithWorkshop `json:"registration"`
	Totals       registration.Totals       `json:"totals"`
}

// Gateway applies administrator edits while keeping the derived payment
// state consistent with the ledger.
type Gateway interface {
	PatchWorkshop(ctx context.Context, id int64, raw map[string]json.RawMessage) (*workshop.Workshop, error)
	DeleteWorkshop(ctx context.Context, id int64) error

	ListRegistrations(ctx context.Context, filter registration.ListFilter) ([]registration.WithWorkshop, error)
	ExportRegistrations(ctx context.Context, w io.Writer, filter registration.ListFilter) error
	PatchRegistration(ctx context.Context, id int64, raw map[string]json.RawMessage) (*PatchResult, error)
	DeleteRegistration(ctx context.Context, id int64) error

	ListPayments(ctx context.Context, registrationID int64) ([]payment.Payment, error)
	AddPayment(ctx context.Context, registrationID int64, req payment.AddPaymentRequest) (*payment.Result, error)
	DeletePayment(ctx context.Context, registrationID, paymentID int64) (*payment.Result, error)
}

type gateway struct {
	workshopStore workshop.Repository
	registrations registration.Repository
	ledger        payment.Ledger
}

func NewGateway(workshopStore workshop.Repository, registrations registration.Repository, ledger payment.Ledger) Gateway {
	return &gateway{
		workshopStore: workshopStore,
		registrations: registrations,
		ledger:        ledger,
	}
}

func (g *gateway) PatchWorkshop(ctx context.Context, id int64, raw map[string]json.RawMessage) (*workshop.Workshop, error) {
	fields := allowed(raw, workshopFields)
	if len(fields) == 0 {
		return nil, errEmptyPatch
	}

	w, err := g.workshopStore.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	if err := applyWorkshopPatch(w, fields); err != nil {
		return nil, err
	}

	if _, repriced := fields["price"]; !repriced {
		if err := g.workshopStore.Update(ctx, w); err != nil {
			return nil, notFound(err)
		}
		metrics.RecordAdminMutation("workshop", "update")
		logger.Info("workshop updated", "workshop_id", id, "fields", len(fields))
		return w, nil
	}

	changed, err := g.workshopStore.UpdateRepriced(ctx, w)
	if err != nil {
		return nil, notFound(err)
	}

	metrics.RecordAdminMutation("workshop", "update")
	logger.Info("workshop repriced",
		"workshop_id", id,
		"fields", len(fields),
		"price", w.Price,
		"registrations_changed", changed,
	)
	return w, nil
}

func applyWorkshopPatch(w *workshop.Workshop, fields map[string]json.RawMessage) error {
	for name, v := range fields {
		var err error
		switch name {
		case "title":
			w.Title, err = decodeRequiredString(name, v)
		case "description":
			w.Description, err = decodeString(name, v)
		case "event_at":
			w.EventAt, err = decodeTime(name, v)
		case "capacity":
			var n int64
			if n, err = decodeInt(name, v); err == nil {
				if n < 1 {
					return invalid(name, "must be at least 1")
				}
				w.Capacity = int(n)
			}
		case "price":
			if isNull(v) {
				w.Price = nil
				continue
			}
			var n int64
			if n, err = decodeInt(name, v); err == nil {
				if n < 0 || n > maxPrice {
					return invalid(name, "must be between 0 and %d", maxPrice)
				}
				w.Price = &n
			}
		case "payment_link":
			w.PaymentLink, err = decodeOptionalString(name, v)
		case "is_active":
			w.IsActive, err = decodeBool(name, v)
		case "is_public":
			w.IsPublic, err = decodeBool(name, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// DeleteWorkshop removes the workshop; registrations and their payments go
// with it through the foreign keys.
func (g *gateway) DeleteWorkshop(ctx context.Context, id int64) error {
	if err := g.workshopStore.Delete(ctx, id); err != nil {
		return notFound(err)
	}

	metrics.RecordAdminMutation("workshop", "delete")
	logger.Info("workshop deleted", "workshop_id", id)
	return nil
}

func (g *gateway) ListRegistrations(ctx context.Context, filter registration.ListFilter) ([]registration.WithWorkshop, error) {
	return g.registrations.List(ctx, filter)
}

func (g *gateway) ExportRegistrations(ctx context.Context, w io.Writer, filter registration.ListFilter) error {
	regs, err := g.registrations.List(ctx, filter)
	if err != nil {
		return err
	}
	return registration.WriteCSV(w, regs)
}

// registrationPatch is the decoded allow-listed part of a registration edit.
type registrationPatch struct {
	seats      *int
	paid       *bool
	amountPaid *int64
	method     **registration.Method
	status     *registration.Status
	link       **string
	fullName   *string
	email      *string
	phone      *string
}

func decodeRegistrationPatch(fields map[string]json.RawMessage) (*registrationPatch, error) {
	p := &registrationPatch{}
	for name, v := range fields {
		switch name {
		case "seats":
			n, err := decodeInt(name, v)
			if err != nil || n < 1 || n > registration.MaxSeats {
				return nil, invalid(name, "must be an integer between 1 and %d", registration.MaxSeats)
			}
			seats := int(n)
			p.seats = &seats
		case "paid":
			b, err := decodeBool(name, v)
			if err != nil {
				return nil, err
			}
			p.paid = &b
		case "amount_paid":
			n, err := decodeInt(name, v)
			if err != nil || n < 0 {
				return nil, invalid(name, "must be a non-negative whole number")
			}
			p.amountPaid = &n
		case "payment_method":
			m, err := decodeMethod(name, v)
			if err != nil {
				return nil, err
			}
			p.method = &m
		case "status":
			st, err := decodeStatus(name, v)
			if err != nil {
				return nil, err
			}
			p.status = &st
		case "payment_link":
			link, err := decodeOptionalString(name, v)
			if err != nil {
				return nil, err
			}
			p.link = &link
		case "full_name":
			s, err := decodeRequiredString(name, v)
			if err != nil {
				return nil, err
			}
			p.fullName = &s
		case "email":
			s, err := decodeString(name, v)
			if err != nil {
				return nil, err
			}
			p.email = &s
		case "phone":
			s, err := decodeString(name, v)
			if err != nil {
				return nil, err
			}
			p.phone = &s
		}
	}
	if err := p.validateContact(); err != nil {
		return nil, err
	}
	return p, nil
}

// contact holds the free-text fields of a patch with the limits the public
// registration form applies.
type contact struct {
	FullName string `validate:"max=200"`
	Email    string `validate:"omitempty,email"`
	Phone    string `validate:"max=32"`
}

var contactFields = map[string]string{"FullName": "full_name", "Email": "email", "Phone": "phone"}

func (p *registrationPatch) validateContact() error {
	var c contact
	if p.fullName != nil {
		c.FullName = *p.fullName
	}
	if p.email != nil {
		c.Email = *p.email
	}
	if p.phone != nil {
		c.Phone = *p.phone
	}

	errs := api.ValidateStruct(c)
	if len(errs) == 0 {
		return nil
	}
	return invalid(contactFields[errs[0].Field], "%s", errs[0].Message)
}

// PatchRegistration edits a registration. An amount_paid raise is booked as an
// admin adjustment payment in the same transaction as the edit, so the cached
// sum always equals the ledger. paid
// is recomputed from amount_paid when the price is known; an explicit status
// is kept as sent.
func (g *gateway) PatchRegistration(ctx context.Context, id int64, raw map[string]json.RawMessage) (*PatchResult, error) {
	fields := allowed(raw, registrationFields)
	if len(fields) == 0 {
		return nil, errEmptyPatch
	}

	p, err := decodeRegistrationPatch(fields)
	if err != nil {
		return nil, err
	}

	res, err := g.ledger.EditRegistration(ctx, payment.Edit{
		RegistrationID: id,
		Adjust:         p.adjustment,
		Apply:          p.apply,
	})
	if err != nil {
		return nil, ledgerError(err)
	}
	reg := res.Registration

	metrics.RecordAdminMutation("registration", "update")
	logger.Info("registration updated",
		"registration_id", id,
		"seats", reg.Seats,
		"amount_paid", reg.AmountPaid,
		"paid", reg.Paid,
		"status", reg.Status,
	)

	return &PatchResult{Registration: reg, Totals: res.Totals}, nil
}

// adjustment books the raise of amount_paid as an admin payment. Lowering
// it is refused; payments are deleted one by one instead.
func (p *registrationPatch) adjustment(reg registration.WithWorkshop) (*payment.NewPayment, error) {
	if p.amountPaid == nil || *p.amountPaid == reg.AmountPaid {
		return nil, nil
	}
	if *p.amountPaid < reg.AmountPaid {
		return nil, invalid("amount_paid", "cannot be lowered below the recorded payments (%d); delete a payment instead", reg.AmountPaid)
	}

	var method *registration.Method
	if p.method != nil {
		method = *p.method
	}
	return &payment.NewPayment{
		RegistrationID: reg.ID,
		Amount:         *p.amountPaid - reg.AmountPaid,
		Method:         method,
		Source:         payment.SourceAdmin,
		Note:           adjustmentNote,
		CreatedBy:      CreatedBy,
	}, nil
}

// apply sets the edited fields and re-derives paid and status. An explicit
// status wins over the derived one.
func (p *registrationPatch) apply(reg *registration.WithWorkshop) registration.Totals {
	if p.seats != nil {
		reg.Seats = *p.seats
	}
	if p.method != nil {
		reg.PaymentMethod = *p.method
	}
	if p.link != nil {
		reg.PaymentLink = *p.link
	}
	if p.fullName != nil {
		reg.FullName = *p.fullName
	}
	if p.email != nil {
		reg.Email = *p.email
	}
	if p.phone != nil {
		reg.Phone = *p.phone
	}

	fallbackPaid := reg.Paid
	if p.paid != nil {
		fallbackPaid = *p.paid
	}
	totals := registration.ComputeTotals(reg.Price, reg.Seats, reg.AmountPaid, fallbackPaid)
	reg.Paid = totals.Paid
	if p.status != nil {
		reg.Status = *p.status
	} else {
		reg.Status = registration.DeriveStatus(reg.Paid, reg.Status)
	}
	return totals
}

func (g *gateway) DeleteRegistration(ctx context.Context, id int64) error {
	if err := g.registrations.Delete(ctx, id); err != nil {
		return notFound(err)
	}

	metrics.RecordAdminMutation("registration", "delete")
	logger.Info("registration deleted", "registration_id", id)
	return nil
}

func (g *gateway) ListPayments(ctx context.Context, registrationID int64) ([]payment.Payment, error) {
	if _, err := g.registrations.GetByID(ctx, registrationID); err != nil {
		return nil, notFound(err)
	}
	return g.ledger.ListPayments(ctx, registrationID)
}

func (g *gateway) AddPayment(ctx context.Context, registrationID int64, req payment.AddPaymentRequest) (*payment.Result, error) {
	method, ok := registration.ParseMethod(req.Method)
	if !ok {
		return nil, invalid("method", "unknown payment method %q", req.Method)
	}

	res, err := g.ledger.RecordPayment(ctx, payment.NewPayment{
		RegistrationID: registrationID,
		Amount:         req.Amount,
		Method:         method,
		Source:         payment.SourceAdmin,
		Note:           req.Note,
		CreatedBy:      CreatedBy,
	})
	if err != nil {
		return nil, ledgerError(err)
	}

	metrics.RecordAdminMutation("payment", "create")
	return res, nil
}

func (g *gateway) DeletePayment(ctx context.Context, registrationID, paymentID int64) (*payment.Result, error) {
	res, err := g.ledger.DeletePayment(ctx, registrationID, paymentID)
	if err != nil {
		return nil, ledgerError(err)
	}

	metrics.RecordAdminMutation("payment", "delete")
	return res, nil
}

func notFound(err error) error {
	if errors.Is(err, workshop.ErrNotFound) || errors.Is(err, registration.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func ledgerError(err error) error {
	switch {
	case errors.Is(err, payment.ErrRegistrationNotFound), errors.Is(err, payment.ErrPaymentNotFound):
		return ErrNotFound
	case errors.Is(err, payment.ErrInvalidAmount):
		return invalid("amount", "must be positive")
	}
	return err
}
