package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar key format used on the wire and in the day map.
const DateLayout = "2006-01-02"

// Membership plans
const (
	PlanMonthly   MembershipType = "monthly"
	PlanQuarterly MembershipType = "quarterly"
	PlanAnnual    MembershipType = "annual"
)

// Payment statuses
const (
	StatusPending   PaymentStatus = "pending"
	StatusConfirmed PaymentStatus = "confirmed"
)

// MemberNamePlaceholder is shown when a payment's member can not be resolved.
const MemberNamePlaceholder = "Miembro"

type (
	MembershipType string

	PaymentStatus string

	// Date is a calendar day with no time-of-day or zone meaning.
	// It is stored as UTC midnight so comparisons never shift across days.
	Date struct {
		time.Time
	}

	// PendingPayment is one membership payment obligation.
	PendingPayment struct {
		ID             string        `json:"id"`
		MemberID       string        `json:"memberId"`
		MemberName     string        `json:"memberName"`
		AmountCRC      int64         `json:"amountCRC"`
		DueDate        Date          `json:"dueDate"`
		Status         PaymentStatus `json:"status"`
		LastReminderAt *time.Time    `json:"lastReminderAt"`
	}

	// Payment is the stored form of a payment obligation.
	Payment struct {
		ID          string
		MemberID    string
		AmountCRC   int64
		DueDate     Date
		Status      PaymentStatus
		Method      string
		Plan        MembershipType
		Reference   string
		ConfirmedAt *time.Time
		CreatedAt   time.Time
	}

	// Reminder records a request to remind a member about a payment.
	Reminder struct {
		ID          string
		PaymentID   string
		RequestedAt time.Time
		ProcessedAt *time.Time
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrMemberNotFound   = errors.New("member not found")
	ErrMemberInactive   = errors.New("member is inactive")
	ErrAlreadyConfirmed = errors.New("payment already confirmed")
	ErrUnknownPlan      = errors.New("unknown membership plan")
	ErrAdminNotFound    = errors.New("admin not found")
	ErrEmailTaken       = errors.New("email already registered")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day t falls on in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate reads a YYYY-MM-DD day. A full RFC 3339 timestamp is accepted and
// reduced to its written date part without converting zones.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && (s[len(DateLayout)] == 'T' || s[len(DateLayout)] == ' ') {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Key returns the YYYY-MM-DD form used to group payments by day.
func (d Date) Key() string {
	return d.Format(DateLayout)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Key()
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// AddDays shifts d by n days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysInMonth returns the number of days in d's month.
func (d Date) DaysInMonth() int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Key())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if string(b) == "null" {
			*d = Date{}
			return nil
		}
		return fmt.Errorf("%w: %s", ErrInvalidDate, b)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Valid reports whether t is a known plan.
func (t MembershipType) Valid() bool {
	switch t {
	case PlanMonthly, PlanQuarterly, PlanAnnual:
		return true
	}
	return false
}

// IsOverdue reports whether p is due before today.
func (p PendingPayment) IsOverdue(today Date) bool {
	return p.DueDate.Before(today)
}

// DisplayName returns the member name or the placeholder.
func (p PendingPayment) DisplayName() string {
	if strings.TrimSpace(p.MemberName) == "" {
		return MemberNamePlaceholder
	}
	return p.MemberName
}

func (p Payment) Validate() error {
	if p.DueDate.IsZero() {
		return ErrInvalidDate
	}
	if p.AmountCRC < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(p.MemberID) == "" {
		return ErrMemberNotFound
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	return nil
}

// Reference builds the human-readable payment reference, e.g. GM-<member>-20250913.
func Reference(memberID string, due Date) string {
	short := memberID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("GM-%s-%s", short, due.Format("20060102"))
}
