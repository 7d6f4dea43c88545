// Package paymentsapi talks to a remote dashboard's payments endpoints.
package paymentsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gymdash/internal/core"
	"gymdash/internal/dues"
)

const (
	duePath      = "/api/payments/due"
	confirmPath  = "/api/payments/confirm"
	reminderPath = "/api/payments/reminder"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type Client struct {
	base string
	http *http.Client
}

var (
	_ dues.Lister  = (*Client)(nil)
	_ dues.Mutator = (*Client)(nil)
)

// New returns a client for baseURL. A nil httpClient uses a 10s timeout client.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid payments api url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{base: strings.TrimRight(u.String(), "/"), http: httpClient}, nil
}

// wirePayment accepts whatever the server sends; bad fields decode to defaults.
type wirePayment struct {
	ID             json.RawMessage `json:"id"`
	MemberID       json.RawMessage `json:"memberId"`
	MemberName     json.RawMessage `json:"memberName"`
	AmountCRC      json.RawMessage `json:"amountCRC"`
	DueDate        json.RawMessage `json:"dueDate"`
	Status         json.RawMessage `json:"status"`
	LastReminderAt json.RawMessage `json:"lastReminderAt"`
}

// decodePayment reads one record. Records that are not objects or have no
// readable due date are reported as not ok.
func decodePayment(raw json.RawMessage) (core.PendingPayment, bool) {
	var w wirePayment
	if err := json.Unmarshal(raw, &w); err != nil {
		return core.PendingPayment{}, false
	}
	due, err := core.ParseDate(rawString(w.DueDate))
	if err != nil {
		return core.PendingPayment{}, false
	}
	return core.PendingPayment{
		ID:             rawString(w.ID),
		MemberID:       rawString(w.MemberID),
		MemberName:     rawString(w.MemberName),
		AmountCRC:      core.LenientAmount(w.AmountCRC),
		DueDate:        due,
		Status:         core.PaymentStatus(rawString(w.Status)),
		LastReminderAt: rawTime(w.LastReminderAt),
	}, true
}

// rawString returns raw as a string, or "" when it is anything else.
func rawString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func rawTime(raw json.RawMessage) *time.Time {
	s := rawString(raw)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// ListDue fetches payments due in [from, to]. Records without a readable due
// date can not be placed on the calendar and are skipped. Statuses are kept
// as sent, so anything other than pending never reaches the day map.
func (c *Client) ListDue(ctx context.Context, from, to core.Date) ([]core.PendingPayment, error) {
	q := url.Values{}
	if !from.IsZero() {
		q.Set("from", from.Key())
	}
	if !to.IsZero() {
		q.Set("to", to.Key())
	}
	path := duePath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get due payments: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, duePath); err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode due payments: %w", err)
	}
	out := make([]core.PendingPayment, 0, len(records))
	for _, raw := range records {
		if p, ok := decodePayment(raw); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) Confirm(ctx context.Context, paymentID string) error {
	return c.post(ctx, confirmPath, paymentID)
}

func (c *Client) Remind(ctx context.Context, paymentID string) error {
	return c.post(ctx, reminderPath, paymentID)
}

func (c *Client) post(ctx context.Context, path, paymentID string) error {
	body, err := json.Marshal(map[string]string{"paymentId": paymentID})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s %s: %w", path, paymentID, core.ErrPaymentNotFound)
	}
	return checkStatus(resp, path)
}

func checkStatus(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method: resp.Request.Method,
		Path:   path,
		Code:   resp.StatusCode,
		Body:   strings.TrimSpace(string(b)),
	}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
