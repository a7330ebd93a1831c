package webhook

import (
	"context"
	"errors"
	"fmt"

	"workshops/internal/logger"
	"workshops/internal/metrics"
	"workshops/internal/payment"
)

// Reasons written to the response and to the audit row.
const (
	ReasonInvalidBody     = "invalid body"
	ReasonNotPaid         = "not paid"
	ReasonInvalidAmount   = "invalid amount"
	ReasonMissingIdentity = "missing email/phone"
	ReasonNoMatch         = "no matching registration"
	ReasonDBError         = "db error"
	ReasonDuplicate       = "duplicate"
)

// RegistrationMatcher is implemented by *Matcher.
type RegistrationMatcher interface {
	FindRegistration(ctx context.Context, id Identity, externalID string) (*Match, error)
}

// Outcome is the result of processing one delivery.
type Outcome struct {
	EventID        int64
	OK             bool
	Reason         string
	Shape          string
	RegistrationID *int64
	Duplicate      bool
	Payment        *payment.Result
}

type Processor struct {
	normalizer *Normalizer
	matcher    RegistrationMatcher
	ledger     payment.Ledger
	audit      AuditRepository
	source     string
	scale      int64
}

// NewProcessor wires the webhook pipeline. scale converts provider sums to
// stored amounts: 1 for whole units, 100 for minor units.
func NewProcessor(matcher RegistrationMatcher, ledger payment.Ledger, audit AuditRepository, source string, scale int64) *Processor {
	if scale < 1 {
		scale = 1
	}
	if source == "" {
		source = "default"
	}
	return &Processor{
		normalizer: NewNormalizer(),
		matcher:    matcher,
		ledger:     ledger,
		audit:      audit,
		source:     source,
		scale:      scale,
	}
}

// Handle audits and processes a delivery. It never returns an error: every
// failure is reported through Outcome and the audit row.
func (p *Processor) Handle(ctx context.Context, body []byte, headers map[string]string) Outcome {
	eventID, err := p.audit.Insert(ctx, auditPayload(body), auditHeaders(headers), p.source)
	if err != nil {
		logger.Error("failed to write webhook audit row", "error", err)
	}

	out := p.process(ctx, body)
	out.EventID = eventID
	p.finish(ctx, &out)
	return out
}

// Reject audits a delivery that cannot be processed and reports reason
// without normalizing or matching it.
func (p *Processor) Reject(ctx context.Context, body []byte, headers map[string]string, reason string) Outcome {
	eventID, err := p.audit.Insert(ctx, auditPayload(body), auditHeaders(headers), p.source)
	if err != nil {
		logger.Error("failed to write webhook audit row", "error", err)
	}

	out := fail(reason, "", nil)
	out.EventID = eventID
	p.finish(ctx, &out)
	return out
}

// Replay re-runs a stored delivery through the pipeline and updates its audit row.
func (p *Processor) Replay(ctx context.Context, eventID int64) (Outcome, error) {
	ev, err := p.audit.GetByID(ctx, eventID)
	if err != nil {
		return Outcome{}, err
	}
	if ev.Matched {
		return Outcome{EventID: ev.ID, OK: true, RegistrationID: ev.RegistrationID, Duplicate: true}, nil
	}

	out := p.process(ctx, []byte(ev.Payload))
	out.EventID = ev.ID
	p.finish(ctx, &out)
	return out, nil
}

func (p *Processor) process(ctx context.Context, body []byte) Outcome {
	c, shape, err := p.normalizer.Normalize(body)
	if err != nil {
		return fail(ReasonInvalidBody, "", nil)
	}

	if !c.IsPaid() {
		return fail(ReasonNotPaid, shape, nil)
	}

	amount, err := c.Amount(p.scale)
	if err != nil {
		return fail(ReasonInvalidAmount, shape, nil)
	}

	match, err := p.matcher.FindRegistration(ctx, c.Identity(), c.ExternalID)
	switch {
	case errors.Is(err, ErrMissingIdentity):
		return fail(ReasonMissingIdentity, shape, nil)
	case errors.Is(err, ErrNoMatch):
		return fail(ReasonNoMatch, shape, nil)
	case err != nil:
		logger.Error("webhook matching failed", "error", err)
		return fail(ReasonDBError, shape, nil)
	}

	regID := match.Registration.ID
	if match.Idempotent {
		return Outcome{OK: true, Shape: shape, RegistrationID: &regID, Duplicate: true}
	}

	res, err := p.ledger.RecordPayment(ctx, payment.NewPayment{
		RegistrationID:    regID,
		Amount:            amount,
		Method:            c.Method(),
		Source:            payment.SourceWebhook,
		ExternalPaymentID: c.ExternalID,
		Note:              fmt.Sprintf("webhook %s", shape),
		CreatedBy:         "webhook:" + p.source,
	})
	if err != nil {
		logger.Error("webhook payment not recorded", "registration_id", regID, "error", err)
		return fail(ReasonDBError, shape, &regID)
	}

	return Outcome{
		OK:             true,
		Shape:          shape,
		RegistrationID: &regID,
		Duplicate:      res.Duplicate,
		Payment:        res,
	}
}

func (p *Processor) finish(ctx context.Context, out *Outcome) {
	var err error
	switch {
	case out.EventID == 0:
	case out.OK && !out.Duplicate:
		err = p.audit.MarkMatched(ctx, out.EventID, *out.RegistrationID)
	case out.Duplicate:
		err = p.audit.MarkFailed(ctx, out.EventID, ReasonDuplicate, out.RegistrationID)
	default:
		err = p.audit.MarkFailed(ctx, out.EventID, out.Reason, out.RegistrationID)
	}
	if err != nil {
		logger.Error("failed to update webhook audit row", "event_id", out.EventID, "error", err)
	}

	result := metricResult(out)
	metrics.RecordWebhook(result)
	if out.OK {
		logger.Info("webhook processed",
			"event_id", out.EventID,
			"shape", out.Shape,
			"registration_id", *out.RegistrationID,
			"duplicate", out.Duplicate,
		)
	} else {
		logger.Warn("webhook rejected", "event_id", out.EventID, "shape", out.Shape, "reason", out.Reason)
	}
}

func fail(reason, shape string, regID *int64) Outcome {
	return Outcome{Reason: reason, Shape: shape, RegistrationID: regID}
}

func metricResult(out *Outcome) string {
	switch {
	case out.OK && out.Duplicate:
		return "duplicate"
	case out.OK:
		return "matched"
	}
	switch out.Reason {
	case ReasonInvalidBody:
		return "invalid_body"
	case ReasonNotPaid:
		return "not_paid"
	case ReasonInvalidAmount:
		return "invalid_amount"
	case ReasonMissingIdentity:
		return "missing_identity"
	case ReasonNoMatch:
		return "no_match"
	}
	return "error"
}
