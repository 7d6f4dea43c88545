package paymentsapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gymdash/internal/calendar"
	"gymdash/internal/core"
)

func TestListDue(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/payments/due" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"a","memberId":"m1","memberName":"Carlos Pérez","amountCRC":25000,"dueDate":"2025-09-13","status":"pending","lastReminderAt":null},
			{"id":"b","memberId":"m2","amountCRC":"abc","dueDate":"2025-09-13","status":"pending"},
			{"id":"c","memberId":"m3","amountCRC":15000,"dueDate":"not-a-date","status":"pending"},
			{"id":"d","memberId":"m4","amountCRC":15000,"dueDate":"2025-09-02T00:00:00Z","status":"confirmed","lastReminderAt":"2025-09-01T10:00:00Z"}
		]`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.ListDue(context.Background(), core.NewDate(2025, 9, 1), core.NewDate(2025, 10, 5))
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if gotQuery != "from=2025-09-01&to=2025-10-05" {
		t.Fatalf("query = %s", gotQuery)
	}
	if len(got) != 3 {
		t.Fatalf("got %d payments, want 3", len(got))
	}
	if got[1].AmountCRC != 0 || got[1].DisplayName() != core.MemberNamePlaceholder {
		t.Fatalf("malformed record not defaulted: %+v", got[1])
	}
	if got[2].Status != core.StatusConfirmed || got[2].DueDate.Key() != "2025-09-02" || got[2].LastReminderAt == nil {
		t.Fatalf("record d = %+v", got[2])
	}
}

func TestListDue_KeepsNonPendingStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"a","memberId":"m1","amountCRC":25000,"dueDate":"2025-09-13","status":"pending"},
			{"id":"b","memberId":"m2","amountCRC":25000,"dueDate":"2025-09-13","status":"cancelled"},
			{"id":"c","memberId":"m3","amountCRC":25000,"dueDate":"2025-09-13"},
			{"id":"d","memberId":"m4","amountCRC":25000,"dueDate":"2025-09-13","status":7}
		]`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, nil)
	got, err := c.ListDue(context.Background(), core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d payments, want 4", len(got))
	}
	for _, p := range got[1:] {
		if p.Status == core.StatusPending {
			t.Errorf("payment %s decoded as pending", p.ID)
		}
	}

	days := calendar.Aggregate(got)
	if n := days.Count("2025-09-13"); n != 1 {
		t.Fatalf("day count = %d, want 1", n)
	}
	if id := days.Items("2025-09-13")[0].ID; id != "a" {
		t.Fatalf("kept payment %s, want a", id)
	}
}

func TestListDue_BadFieldsDefaultPerRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"a","memberId":"m1","memberName":123,"amountCRC":25000,"dueDate":"2025-09-13","status":"pending","lastReminderAt":""},
			{"id":42,"memberId":["m2"],"memberName":"Ana Rojas","amountCRC":20000,"dueDate":"2025-09-18","status":"pending","lastReminderAt":"yesterday"},
			"not an object",
			{"id":"c","memberId":"m3","amountCRC":15000,"dueDate":20250925,"status":"pending"},
			{"id":"d","memberId":"m4","memberName":"Luis","amountCRC":15000,"dueDate":"2025-09-25","status":"pending","lastReminderAt":"2025-09-20T09:30:00Z"}
		]`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, nil)
	got, err := c.ListDue(context.Background(), core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d payments, want 3", len(got))
	}

	tests := []struct {
		name        string
		p           core.PendingPayment
		id, display string
		hasReminder bool
	}{
		{"numeric name and empty reminder", got[0], "a", core.MemberNamePlaceholder, false},
		{"non-string ids and bad reminder", got[1], "", "Ana Rojas", false},
		{"well formed", got[2], "d", "Luis", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.p.ID != tt.id {
				t.Errorf("ID = %q, want %q", tt.p.ID, tt.id)
			}
			if tt.p.DisplayName() != tt.display {
				t.Errorf("DisplayName() = %q, want %q", tt.p.DisplayName(), tt.display)
			}
			if (tt.p.LastReminderAt != nil) != tt.hasReminder {
				t.Errorf("LastReminderAt = %v, want set=%v", tt.p.LastReminderAt, tt.hasReminder)
			}
		})
	}
	if got[1].MemberID != "" || got[1].AmountCRC != 20000 {
		t.Fatalf("record b = %+v", got[1])
	}
}

func TestListDue_NonSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, nil)
	_, err := c.ListDue(context.Background(), core.Date{}, core.Date{})
	if !IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected 502 StatusError, got %v", err)
	}
}

func TestListDue_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, nil)
	if _, err := c.ListDue(context.Background(), core.Date{}, core.Date{}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestConfirmAndRemind(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			PaymentID string `json:"paymentId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		calls = append(calls, r.Method+" "+r.URL.Path+" "+body.PaymentID)
		if body.PaymentID == "ghost" {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}
		if body.PaymentID == "broken" {
			http.Error(w, "oops", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, _ := New(srv.URL, nil)
	ctx := context.Background()
	if err := c.Confirm(ctx, "mock-s-001"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if err := c.Remind(ctx, "mock-s-002"); err != nil {
		t.Fatalf("Remind: %v", err)
	}
	if err := c.Confirm(ctx, "ghost"); !errors.Is(err, core.ErrPaymentNotFound) {
		t.Fatalf("Confirm ghost err = %v", err)
	}
	if err := c.Remind(ctx, "broken"); !IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("Remind broken err = %v", err)
	}

	want := []string{
		"POST /api/payments/confirm mock-s-001",
		"POST /api/payments/reminder mock-s-002",
		"POST /api/payments/confirm ghost",
		"POST /api/payments/reminder broken",
	}
	for i, w := range want {
		if calls[i] != w {
			t.Errorf("call %d = %q, want %q", i, calls[i], w)
		}
	}
}

func TestNew_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8080", "::"} {
		if _, err := New(raw, nil); err == nil {
			t.Errorf("New(%q) should fail", raw)
		}
	}
}
