package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"workshops/internal/registration"
)

var (
	ErrNormalization = errors.New("webhook payload could not be normalized")
	ErrNotPaid       = errors.New("payment not completed")
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// paidStatusText is the provider's localized "paid" status.
const paidStatusText = "שולם"

// foldedKeys are copied from the top level of a form body when the
// bracketed data[...] fields do not carry them.
var foldedKeys = []string{"status", "statusCode", "payerEmail", "payerPhone"}

// Canonical is the provider-independent view of a webhook delivery.
type Canonical struct {
	Status         string
	StatusCode     string
	Sum            string
	PayerEmail     string
	PayerPhone     string
	PaymentType    string
	ExternalID     string
	RegistrationID int64
}

// IsPaid reports whether the delivery announces a completed payment.
func (c Canonical) IsPaid() bool {
	return c.StatusCode == "2" || c.Status == paidStatusText || strings.EqualFold(c.Status, "paid")
}

// Amount parses Sum into the configured unit. scale is 1 for whole currency
// units and 100 for minor units; extra fraction digits are dropped.
func (c Canonical) Amount(scale int64) (int64, error) {
	return parseAmount(c.Sum, scale)
}

// Method maps the provider payment type onto a registration payment method.
func (c Canonical) Method() *registration.Method {
	var m registration.Method
	switch strings.ToLower(strings.TrimSpace(c.PaymentType)) {
	case "":
		return nil
	case "2", "card", "credit", "creditcard":
		m = registration.MethodCard
	case "1", "cash":
		m = registration.MethodCash
	case "3", "bank", "transfer", "bit", "banktransfer":
		m = registration.MethodTransfer
	default:
		m = registration.MethodOther
	}
	return &m
}

func (c Canonical) Identity() Identity {
	return Identity{
		Email:          registration.NormalizeEmail(c.PayerEmail),
		PhoneDigits:    registration.PhoneDigits(c.PayerPhone),
		RegistrationID: c.RegistrationID,
	}
}

// detector recognizes one wire shape and returns its data object.
type detector struct {
	name   string
	detect func(body []byte) (map[string]interface{}, bool)
}

// Normalizer tries each known wire shape in priority order.
type Normalizer struct {
	detectors []detector
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		detectors: []detector{
			{"json_array", detectJSONArray},
			{"json_data", detectDataObject},
			{"json_raw", detectRawString},
			{"urlencoded", detectURLEncoded},
			{"json_plain", detectPlainObject},
		},
	}
}

// Normalize returns the canonical fields and the name of the shape that
// matched. It never panics on hostile input.
func (n *Normalizer) Normalize(body []byte) (c Canonical, shape string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, shape, err = Canonical{}, "", ErrNormalization
		}
	}()

	for _, d := range n.detectors {
		if data, ok := d.detect(body); ok {
			return canonicalFrom(data), d.name, nil
		}
	}
	return Canonical{}, "", ErrNormalization
}

func detectJSONArray(body []byte) (map[string]interface{}, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var arr []interface{}
	if err := decodeJSON(trimmed, &arr); err != nil || len(arr) == 0 {
		return nil, false
	}
	first, ok := arr[0].(map[string]interface{})
	if !ok {
		return nil, false
	}
	data, ok := first["data"].(map[string]interface{})
	return data, ok
}

func detectDataObject(body []byte) (map[string]interface{}, bool) {
	obj, ok := jsonObject(body)
	if !ok {
		return nil, false
	}
	data, ok := obj["data"].(map[string]interface{})
	return data, ok
}

func detectRawString(body []byte) (map[string]interface{}, bool) {
	obj, ok := jsonObject(body)
	if !ok {
		return nil, false
	}
	raw, ok := obj["raw"].(string)
	if !ok {
		return nil, false
	}
	return parseForm(raw)
}

func detectURLEncoded(body []byte) (map[string]interface{}, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '{' || trimmed[0] == '[' {
		return nil, false
	}
	if !bytes.Contains(trimmed, []byte("=")) {
		return nil, false
	}
	return parseForm(string(trimmed))
}

func detectPlainObject(body []byte) (map[string]interface{}, bool) {
	return jsonObject(body)
}

func jsonObject(body []byte) (map[string]interface{}, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]interface{}
	if err := decodeJSON(trimmed, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func decodeJSON(b []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// parseForm rebuilds the data object from data[key] and data[a][b] form keys.
func parseForm(text string) (map[string]interface{}, bool) {
	values, err := url.ParseQuery(text)
	if err != nil && len(values) == 0 {
		return nil, false
	}
	if len(values) == 0 {
		return nil, false
	}

	data := map[string]interface{}{}
	for key, vals := range values {
		if len(vals) == 0 || !strings.HasPrefix(key, "data[") || !strings.HasSuffix(key, "]") {
			continue
		}
		path := strings.Split(key[len("data["):len(key)-1], "][")
		setPath(data, path, vals[0])
	}

	for _, k := range foldedKeys {
		if _, ok := data[k]; ok {
			continue
		}
		if v := values.Get(k); v != "" {
			data[k] = v
		}
	}
	if v := values.Get("metadata[registration_id]"); v != "" {
		if _, ok := data["metadata"]; !ok {
			data["metadata"] = map[string]interface{}{"registration_id": v}
		}
	}

	return data, true
}

func setPath(m map[string]interface{}, path []string, value string) {
	for i, p := range path {
		if p == "" {
			return
		}
		if i == len(path)-1 {
			m[p] = value
			return
		}
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			m[p] = next
		}
		m = next
	}
}

func canonicalFrom(data map[string]interface{}) Canonical {
	c := Canonical{
		Status:      field(data, "status"),
		StatusCode:  field(data, "statusCode"),
		Sum:         field(data, "sum"),
		PayerEmail:  field(data, "payerEmail", "email"),
		PayerPhone:  field(data, "payerPhone", "phone"),
		PaymentType: field(data, "paymentType", "method"),
		ExternalID:  field(data, "transactionId", "paymentId", "id"),
	}

	regID := field(data, "metadata[registration_id]")
	if meta, ok := data["metadata"].(map[string]interface{}); ok {
		if v := field(meta, "registration_id"); v != "" {
			regID = v
		}
	}
	if id, err := strconv.ParseInt(regID, 10, 64); err == nil && id > 0 {
		c.RegistrationID = id
	}

	return c
}

// field returns the first non-empty scalar among keys, as text.
func field(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		var s string
		switch v := m[k].(type) {
		case string:
			s = v
		case json.Number:
			s = v.String()
		case bool:
			s = strconv.FormatBool(v)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func parseAmount(sum string, scale int64) (int64, error) {
	s := strings.Replace(strings.TrimSpace(sum), ",", ".", 1)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if scale < 1 {
		scale = 1
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if !digitsOnly(intPart) || !digitsOnly(fracPart) {
		return 0, ErrInvalidAmount
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || whole > math.MaxInt64/scale {
		return 0, ErrInvalidAmount
	}
	amount := whole * scale

	// keep as many fraction digits as the scale has zeros
	for unit := scale / 10; unit >= 1 && fracPart != ""; unit /= 10 {
		digit := int64(fracPart[0]-'0') * unit
		if amount > math.MaxInt64-digit {
			return 0, ErrInvalidAmount
		}
		amount += digit
		fracPart = fracPart[1:]
	}

	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}

func digitsOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
