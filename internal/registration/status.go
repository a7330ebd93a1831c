package registration

import (
	"strings"
	"unicode"
)

// DeriveStatus returns the lifecycle status that follows from the paid flag.
// Cancelled is terminal; only a pending registration is advanced.
func DeriveStatus(paid bool, current Status) Status {
	if current == StatusCancelled {
		return StatusCancelled
	}
	if paid && current == StatusPending {
		return StatusConfirmed
	}
	return current
}

// ComputeTotals derives the paid flag from the ledger sum. With no known
// price the flag falls back to the value supplied by the caller.
func ComputeTotals(price *int64, seats int, amountPaid int64, fallbackPaid bool) Totals {
	if price == nil {
		return Totals{AmountPaid: amountPaid, Paid: fallbackPaid}
	}
	total := *price * int64(seats)
	return Totals{
		Total:      &total,
		AmountPaid: amountPaid,
		Paid:       amountPaid >= total,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DashedPhone renders a 10-digit local number as XXX-XXXXXXX.
// Any other length yields an empty string.
func DashedPhone(digits string) string {
	if len(digits) != 10 {
		return ""
	}
	return digits[:3] + "-" + digits[3:]
}

// ParseMethod normalizes an admin-supplied payment method. Empty, "none" and
// "null" clear the method.
func ParseMethod(raw string) (*Method, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(v)

	var m Method
	switch v {
	case "", "none", "null":
		return nil, true
	case "cash":
		m = MethodCash
	case "card", "credit", "creditcard":
		m = MethodCard
	case "transfer", "banktransfer", "bank":
		m = MethodTransfer
	case "other":
		m = MethodOther
	default:
		return nil, false
	}
	return &m, true
}
