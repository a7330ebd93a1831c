package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"workshops/internal/registration"
)

// ValidationError is a rejected admin input. Handlers answer it with 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var errEmptyPatch = &ValidationError{Message: "no editable fields in request"}

var workshopFields = []string{
	"title", "description", "event_at", "capacity", "price",
	"payment_link", "is_active", "is_public",
}

var registrationFields = []string{
	"seats", "paid", "amount_paid", "payment_method", "status",
	"payment_link", "full_name", "email", "phone",
}

// eventAtLayouts are accepted for event_at besides RFC 3339.
var eventAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// allowed keeps the allow-listed keys of a patch body.
func allowed(raw map[string]json.RawMessage, fields []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := raw[f]; ok {
			out[f] = v
		}
	}
	return out
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func decodeString(field string, v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", invalid(field, "must be a string")
	}
	return strings.TrimSpace(s), nil
}

func decodeRequiredString(field string, v json.RawMessage) (string, error) {
	s, err := decodeString(field, v)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", invalid(field, "must not be empty")
	}
	return s, nil
}

// decodeOptionalString maps null and blank strings to nil.
func decodeOptionalString(field string, v json.RawMessage) (*string, error) {
	if isNull(v) {
		return nil, nil
	}
	s, err := decodeString(field, v)
	if err != nil || s == "" {
		return nil, err
	}
	return &s, nil
}

func decodeBool(field string, v json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false, invalid(field, "must be true or false")
	}
	return b, nil
}

// decodeInt accepts whole JSON numbers only.
func decodeInt(field string, v json.RawMessage) (int64, error) {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()

	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, invalid(field, "must be a whole number")
	}
	i, err := n.Int64()
	if err != nil {
		return 0, invalid(field, "must be a whole number")
	}
	return i, nil
}

func decodeTime(field string, v json.RawMessage) (time.Time, error) {
	s, err := decodeString(field, v)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range eventAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid(field, "must be a date and time")
}

func decodeMethod(field string, v json.RawMessage) (*registration.Method, error) {
	if isNull(v) {
		return nil, nil
	}
	s, err := decodeString(field, v)
	if err != nil {
		return nil, err
	}
	m, ok := registration.ParseMethod(s)
	if !ok {
		return nil, invalid(field, "unknown payment method %q", s)
	}
	return m, nil
}

func decodeStatus(field string, v json.RawMessage) (registration.Status, error) {
	s, err := decodeString(field, v)
	if err != nil {
		return "", err
	}
	st := registration.Status(strings.ToLower(s))
	if !st.Valid() {
		return "", invalid(field, "must be pending, confirmed or cancelled")
	}
	return st, nil
}
