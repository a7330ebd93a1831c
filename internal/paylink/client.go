package paylink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNoURL = errors.New("payment link response carried no url")

// Link is a payment page issued for one registration.
type Link struct {
	URL        string
	ExternalID string
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type createRequest struct {
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// linkResponse lists the field names providers are known to use.
type linkResponse struct {
	URL         string          `json:"url"`
	Link        string          `json:"link"`
	PaymentURL  string          `json:"payment_url"`
	RedirectURL string          `json:"redirect_url"`
	ID          json.RawMessage `json:"id"`
	ExternalID  json.RawMessage `json:"external_id"`
}

// CreateLink asks the provider for a payment page of amount.
func (c *Client) CreateLink(ctx context.Context, amount int64, metadata map[string]string) (*Link, error) {
	body, err := json.Marshal(createRequest{Amount: amount, Metadata: metadata})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/links", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payment links request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payment links API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var lr linkResponse
	if err := json.Unmarshal(raw, &lr); err != nil {
		return nil, fmt.Errorf("decode payment link: %w", err)
	}

	link := &Link{
		URL:        firstNonEmpty(lr.URL, lr.Link, lr.PaymentURL, lr.RedirectURL),
		ExternalID: firstNonEmpty(scalar(lr.ID), scalar(lr.ExternalID)),
	}
	if link.URL == "" {
		return nil, ErrNoURL
	}

	return link, nil
}

// scalar renders a JSON string or number as text.
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
