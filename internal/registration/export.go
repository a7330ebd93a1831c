package registration

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

var exportHeader = []string{
	"registration_id", "workshop", "workshop_date", "workshop_price",
	"full_name", "email", "phone",
	"seats", "paid", "amount_paid", "payment_method",
	"status", "payment_link", "external_payment_id", "registered_at",
}

// WriteCSV writes registrations as a UTF-8 CSV with a BOM so spreadsheet
// tools pick the right encoding.
func WriteCSV(w io.Writer, regs []WithWorkshop) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for _, r := range regs {
		paid := "no"
		if r.Paid {
			paid = "yes"
		}
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.WorkshopTitle,
			formatTime(r.WorkshopEventAt),
			optionalInt(r.Price),
			r.FullName,
			r.Email,
			r.Phone,
			strconv.Itoa(r.Seats),
			paid,
			strconv.FormatInt(r.AmountPaid, 10),
			optionalMethod(r.PaymentMethod),
			string(r.Status),
			optionalString(r.PaymentLink),
			optionalString(r.ExternalPaymentID),
			formatTime(r.CreatedAt),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func optionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalMethod(v *Method) string {
	if v == nil {
		return ""
	}
	return string(*v)
}
