package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-09-13", "2025-09-13", true},
		{" 2025-09-01 ", "2025-09-01", true},
		{"2025-09-30T23:30:00-06:00", "2025-09-30", true},
		{"2025-09-01T00:00:00Z", "2025-09-01", true},
		{"2025-13-01", "", false},
		{"13/09/2025", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.Key() != tc.want {
				t.Fatalf("ParseDate(%q) = %v, %v; want %s", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("ParseDate(%q) expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateOfKeepsLocalDay(t *testing.T) {
	cr := time.FixedZone("CST", -6*3600)
	late := time.Date(2025, 9, 30, 23, 30, 0, 0, cr)
	if got := DateOf(late).Key(); got != "2025-09-30" {
		t.Fatalf("DateOf = %s, want 2025-09-30", got)
	}
}

func TestDateJSON(t *testing.T) {
	var p PendingPayment
	raw := `{"id":"p1","memberId":"m1","memberName":"Ana","amountCRC":25000,"dueDate":"2025-09-18","status":"pending","lastReminderAt":null}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.DueDate.Key() != "2025-09-18" {
		t.Fatalf("dueDate = %s", p.DueDate.Key())
	}
	if p.LastReminderAt != nil {
		t.Fatalf("lastReminderAt should be nil")
	}
	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Fatalf("round trip mismatch:\n got %s\nwant %s", out, raw)
	}
}

func TestPendingPaymentOverdue(t *testing.T) {
	today := NewDate(2025, 9, 10)
	cases := []struct {
		due  Date
		want bool
	}{
		{NewDate(2025, 9, 9), true},
		{NewDate(2025, 9, 10), false},
		{NewDate(2025, 9, 11), false},
		{NewDate(2024, 12, 31), true},
	}
	for _, tc := range cases {
		p := PendingPayment{DueDate: tc.due}
		if got := p.IsOverdue(today); got != tc.want {
			t.Errorf("due %s overdue = %v, want %v", tc.due, got, tc.want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := (PendingPayment{}).DisplayName(); got != MemberNamePlaceholder {
		t.Fatalf("DisplayName() = %q", got)
	}
	if got := (PendingPayment{MemberName: "Ana Rojas"}).DisplayName(); got != "Ana Rojas" {
		t.Fatalf("DisplayName() = %q", got)
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{MemberID: "m1", AmountCRC: 25000, DueDate: NewDate(2025, 9, 1), Status: StatusPending}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []Payment{
		{MemberID: "m1", AmountCRC: 1, Status: StatusPending},
		{MemberID: "m1", AmountCRC: -1, DueDate: NewDate(2025, 9, 1), Status: StatusPending},
		{AmountCRC: 1, DueDate: NewDate(2025, 9, 1), Status: StatusPending},
		{MemberID: "m1", AmountCRC: 1, DueDate: NewDate(2025, 9, 1), Status: "void"},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("bad case %d expected error", i)
		}
	}
}

func TestReference(t *testing.T) {
	got := Reference("mbr-0001-extra", NewDate(2025, 9, 13))
	if got != "GM-mbr-0001-20250913" {
		t.Fatalf("Reference = %s", got)
	}
}
