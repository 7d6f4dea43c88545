package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"gymdash/internal/core"
)

func TestParseRangeParams(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{
			name:     "valid month range",
			query:    url.Values{"from": {"2025-09-01"}, "to": {"2025-09-30"}},
			wantFrom: "2025-09-01",
			wantTo:   "2025-09-30",
		},
		{
			name:     "single day",
			query:    url.Values{"from": {"2025-09-13"}, "to": {"2025-09-13"}},
			wantFrom: "2025-09-13",
			wantTo:   "2025-09-13",
		},
		{
			name:     "open upper bound",
			query:    url.Values{"from": {"2025-09-01"}},
			wantFrom: "2025-09-01",
		},
		{
			name:  "no bounds",
			query: url.Values{},
		},
		{
			name:    "malformed from",
			query:   url.Values{"from": {"01/09/2025"}, "to": {"2025-09-30"}},
			wantErr: true,
		},
		{
			name:    "reversed bounds",
			query:   url.Values{"from": {"2025-09-30"}, "to": {"2025-09-01"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRangeParams(tt.query)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidDate) {
					t.Fatalf("expected ErrInvalidDate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRangeParams() error = %v", err)
			}
			if got.From.String() != tt.wantFrom || got.To.String() != tt.wantTo {
				t.Errorf("range = %s..%s, want %s..%s", got.From, got.To, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestParseMonthParam(t *testing.T) {
	fallback := core.NewDate(2025, 9, 13)
	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{"explicit month", url.Values{"month": {"2025-12"}}, "2025-12-01"},
		{"missing month", url.Values{}, "2025-09-01"},
		{"malformed month", url.Values{"month": {"diciembre"}}, "2025-09-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMonthParam(tt.query, fallback).Key(); got != tt.want {
				t.Errorf("ParseMonthParam() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"paymentId": "mock-s-001", "name": "test", "amount": 42.5, "isActive": false}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("IsJSON() should return true")
	}
	if got := parser.Get("paymentId"); got != "mock-s-001" {
		t.Errorf("Get(paymentId) = %q, want %q", got, "mock-s-001")
	}
	if got := parser.Get("amount"); got != "42.5" {
		t.Errorf("Get(amount) = %q, want %q", got, "42.5")
	}
	if v, ok := parser.Bool("isActive"); !ok || v {
		t.Errorf("Bool(isActive) = %v, %v; want false, true", v, ok)
	}
	if parser.Has("missing") {
		t.Error("Has(missing) should be false")
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "paymentId=mock-s-002&isActive=on&name=Ana+Rojas"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("IsJSON() should return false for form data")
	}
	if got := parser.Get("paymentId"); got != "mock-s-002" {
		t.Errorf("Get(paymentId) = %q, want %q", got, "mock-s-002")
	}
	if got := parser.Get("name"); got != "Ana Rojas" {
		t.Errorf("Get(name) = %q, want %q", got, "Ana Rojas")
	}
	if v, ok := parser.Bool("isActive"); !ok || !v {
		t.Errorf("Bool(isActive) = %v, %v; want true, true", v, ok)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("paymentId"); got != "" {
		t.Errorf("Get(paymentId) = %q, want empty", got)
	}
	if _, ok := parser.Bool("isActive"); ok {
		t.Error("Bool() on empty body should not report a value")
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"paymentId":`))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err == nil {
		t.Fatal("Parse() should fail on truncated JSON")
	}
	if parser.IsJSON() {
		t.Error("IsJSON() should be false after a failed parse")
	}
}

func TestRequestBodyParser_MemberForm(t *testing.T) {
	body := `{"name":" Carlos Pérez ","email":"carlos@example.com","phone":"8888-1234","identification":"1-1234-5678","membershipType":"quarterly","notes":"Lesión\nrodilla"}`
	req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader(body))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	form := parser.MemberForm()
	if form.Name != "Carlos Pérez" {
		t.Errorf("Name = %q", form.Name)
	}
	if form.MembershipType != core.PlanQuarterly {
		t.Errorf("MembershipType = %q", form.MembershipType)
	}
	if form.Notes != "Lesión\nrodilla" {
		t.Errorf("Notes = %q", form.Notes)
	}
}

func TestParseFormOrFail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=a%ZZ"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp := ParseFormOrFail(req)
	if resp == nil {
		t.Fatal("ParseFormOrFail() should fail on an invalid escape")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusBadRequest)
	}

	ok := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=a%40b.cr"))
	ok.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(ok); resp != nil {
		t.Error("ParseFormOrFail() should succeed on a valid form")
	}
}

func TestSafeReturnPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/?month=2025-09", "/?month=2025-09"},
		{"/ui/stats", "/ui/stats"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"/\\evil.example", "/"},
		{"javascript:alert(1)", "/"},
		{"/login?return=/", "/"},
		{"relative/path", "/"},
	}
	for _, tt := range tests {
		if got := safeReturnPath(tt.in); got != tt.want {
			t.Errorf("safeReturnPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"payment missing", core.ErrPaymentNotFound, http.StatusNotFound},
		{"member missing", core.ErrMemberNotFound, http.StatusNotFound},
		{"already confirmed", core.ErrAlreadyConfirmed, http.StatusConflict},
		{"inactive member", core.ErrMemberInactive, http.StatusConflict},
		{"bad date", core.ErrInvalidDate, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
