// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for common
// query parsing, body decoding, and input sanitization patterns.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gymdash/internal/calendar"
	"gymdash/internal/core"
)

// maxBodyBytes caps request bodies; member forms are the largest payload.
const maxBodyBytes = 64 << 10

// RangeParams holds the from/to bounds of a due-payments query.
type RangeParams struct {
	From core.Date
	To   core.Date
}

// ParseRangeParams reads from and to as YYYY-MM-DD. An omitted bound is
// left zero, which the stores treat as open. Given bounds must be ordered.
func ParseRangeParams(query url.Values) (RangeParams, error) {
	var rp RangeParams
	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return RangeParams{}, fmt.Errorf("from: %w", err)
		}
		rp.From = d
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return RangeParams{}, fmt.Errorf("to: %w", err)
		}
		rp.To = d
	}
	if !rp.From.IsZero() && !rp.To.IsZero() && rp.To.Before(rp.From) {
		return RangeParams{}, fmt.Errorf("%w: from %s is after to %s", core.ErrInvalidDate, rp.From.Key(), rp.To.Key())
	}
	return rp, nil
}

// ParseDateParam reads a single YYYY-MM-DD value.
func ParseDateParam(values url.Values, key string) (core.Date, error) {
	return core.ParseDate(values.Get(key))
}

// ParseMonthParam reads month=YYYY-MM, using fallback's month when absent.
// Malformed values also fall back so a bad link still shows a calendar.
func ParseMonthParam(query url.Values, fallback core.Date) core.Date {
	m, err := calendar.ParseMonth(strings.TrimSpace(query.Get("month")), fallback)
	if err != nil {
		return calendar.StartOfMonth(fallback)
	}
	return m
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Has reports whether key was sent at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		return p.formData.Has(key)
	}
	return false
}

// Bool reads key as a boolean. Form checkboxes send "on".
func (p *RequestBodyParser) Bool(key string) (bool, bool) {
	raw := strings.ToLower(p.Get(key))
	switch raw {
	case "true", "1", "on", "yes":
		return true, true
	case "false", "0", "off", "no":
		return false, true
	}
	return false, false
}

// MemberForm collects the editable member fields. Notes keep their line
// breaks; the service strips markup.
func (p *RequestBodyParser) MemberForm() core.MemberForm {
	return core.MemberForm{
		Name:             p.Get("name"),
		Email:            p.Get("email"),
		Phone:            p.Get("phone"),
		Identification:   p.Get("identification"),
		MembershipType:   core.MembershipType(p.Get("membershipType")),
		EmergencyContact: p.Get("emergencyContact"),
		EmergencyPhone:   p.Get("emergencyPhone"),
		Notes:            p.Get("notes"),
	}
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Formato de solicitud inválido")
	}
	return nil
}
