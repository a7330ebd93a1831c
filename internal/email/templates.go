package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

type RegistrationDetails struct {
	WorkshopTitle string
	EventAt       time.Time
	Seats         int
	Total         *int64
	PaymentLink   string
}

type PaymentDetails struct {
	WorkshopTitle string
	EventAt       time.Time
	AmountPaid    int64
}

var registrationHTML = template.Must(template.New("registration").Parse(`<div style="font-family:Arial,sans-serif">
  <h2>Hi {{.Name}},</h2>
  <p>Your registration for <b>{{.D.WorkshopTitle}}</b> was received.</p>
  <p>When: {{.When}}</p>
  <p>Seats: {{.D.Seats}}{{with .Total}} (total {{.}}){{end}}</p>
  {{if .D.PaymentLink}}<p>Payment link: <a href="{{.D.PaymentLink}}" target="_blank" rel="noreferrer">{{.D.PaymentLink}}</a></p>{{else}}<p>We will contact you to complete the payment.</p>{{end}}
  <hr/>
  <p>See you at the workshop!</p>
</div>`))

var paymentHTML = template.Must(template.New("payment").Parse(`<div style="font-family:Arial,sans-serif">
  <h2>Payment received</h2>
  <p>{{.Name}}, thank you! Your payment for <b>{{.D.WorkshopTitle}}</b> was received.</p>
  <p>When: {{.When}}</p>
  {{if .D.AmountPaid}}<p>Amount paid: {{.D.AmountPaid}}</p>{{end}}
  <hr/>
  <p>Looking forward to seeing you!</p>
</div>`))

func formatWhen(t time.Time) string {
	return t.Format("Jan 2, 2006 at 15:04")
}

// RegistrationReceived renders the confirmation sent right after a public registration.
func RegistrationReceived(to, name string, d RegistrationDetails) (Message, error) {
	var html bytes.Buffer
	data := map[string]interface{}{"Name": name, "D": d, "When": formatWhen(d.EventAt), "Total": d.Total}
	if err := registrationHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf("Hi %s,\nYour registration for %s was received.\nWhen: %s\nSeats: %d\n",
		name, d.WorkshopTitle, formatWhen(d.EventAt), d.Seats)
	if d.Total != nil {
		text += fmt.Sprintf("Total: %d\n", *d.Total)
	}
	if d.PaymentLink != "" {
		text += "\nPay here: " + d.PaymentLink + "\n"
	} else {
		text += "\nWe will contact you to complete the payment.\n"
	}

	return Message{
		To:      to,
		Name:    name,
		Subject: "Registration received - " + d.WorkshopTitle,
		HTML:    html.String(),
		Text:    text,
		Type:    "registration_received",
	}, nil
}

// PaymentConfirmed renders the notice sent when a registration becomes fully paid.
func PaymentConfirmed(to, name string, d PaymentDetails) (Message, error) {
	var html bytes.Buffer
	data := map[string]interface{}{"Name": name, "D": d, "When": formatWhen(d.EventAt)}
	if err := paymentHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf("Payment received\n%s, thank you! Your payment for %q was received.\nWhen: %s\n",
		name, d.WorkshopTitle, formatWhen(d.EventAt))
	if d.AmountPaid > 0 {
		text += fmt.Sprintf("Amount paid: %d\n", d.AmountPaid)
	}

	return Message{
		To:      to,
		Name:    name,
		Subject: "Payment received - " + d.WorkshopTitle,
		HTML:    html.String(),
		Text:    text,
		Type:    "payment_confirmed",
	}, nil
}

func (s *Service) SendRegistrationReceived(ctx context.Context, to, name string, d RegistrationDetails) error {
	msg, err := RegistrationReceived(to, name, d)
	if err != nil {
		return err
	}
	return s.Send(ctx, msg)
}

func (s *Service) SendPaymentConfirmed(ctx context.Context, to, name string, d PaymentDetails) error {
	msg, err := PaymentConfirmed(to, name, d)
	if err != nil {
		return err
	}
	return s.Send(ctx, msg)
}
