package calendar

import (
	"reflect"
	"testing"

	"gymdash/internal/core"
)

func pending(id, due string, amount int64) core.PendingPayment {
	d, _ := core.ParseDate(due)
	return core.PendingPayment{ID: id, DueDate: d, AmountCRC: amount, Status: core.StatusPending}
}

func confirmed(id, due string, amount int64) core.PendingPayment {
	p := pending(id, due, amount)
	p.Status = core.StatusConfirmed
	return p
}

func TestAggregate_SkipsConfirmed(t *testing.T) {
	list := []core.PendingPayment{
		pending("a", "2025-09-13", 25000),
		confirmed("b", "2025-09-13", 15000),
	}

	days := Aggregate(list)

	items := days.Items("2025-09-13")
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("bucket 2025-09-13 = %+v, want only a", items)
	}
	if got := days.Total("2025-09-13"); got != 25000 {
		t.Errorf("Total = %d, want 25000", got)
	}
	if len(days) != 1 {
		t.Errorf("expected one key, got %d", len(days))
	}
}

func TestAggregate_KeepsEveryPendingOnce(t *testing.T) {
	list := []core.PendingPayment{
		pending("p1", "2025-09-05", 25000),
		confirmed("c1", "2025-09-05", 25000),
		pending("p2", "2025-09-13", 25000),
		pending("p3", "2025-09-05", 20000),
		pending("p4", "2025-10-01", 15000),
		{ID: "x", DueDate: core.NewDate(2025, 9, 5), Status: "void"},
	}

	days := Aggregate(list)

	seen := map[string]int{}
	for key, bucket := range days {
		for _, p := range bucket {
			if p.Status != core.StatusPending {
				t.Fatalf("non-pending payment %s in bucket %s", p.ID, key)
			}
			if p.DueDate.Key() != key {
				t.Fatalf("payment %s due %s filed under %s", p.ID, p.DueDate.Key(), key)
			}
			seen[p.ID]++
		}
	}
	want := map[string]int{"p1": 1, "p2": 1, "p3": 1, "p4": 1}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("bucketed ids = %v, want %v", seen, want)
	}

	bucket := days.Items("2025-09-05")
	if bucket[0].ID != "p1" || bucket[1].ID != "p3" {
		t.Errorf("bucket order = %s,%s; want input order p1,p3", bucket[0].ID, bucket[1].ID)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	list := []core.PendingPayment{
		pending("a", "2025-09-13", 25000),
		pending("b", "2025-09-13", 15000),
		pending("c", "2025-09-02", 5000),
	}

	first := Aggregate(list)
	second := Aggregate(list)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregations differ:\n%v\n%v", first, second)
	}

	first["2025-09-13"][0].ID = "mutated"
	if second["2025-09-13"][0].ID == "mutated" {
		t.Fatalf("maps share backing storage")
	}
}

func TestAggregate_Empty(t *testing.T) {
	days := Aggregate(nil)
	if len(days) != 0 {
		t.Fatalf("expected empty map")
	}
	if days.Count("2025-09-01") != 0 || days.Total("2025-09-01") != 0 {
		t.Fatalf("missing key should report zero")
	}
}

func TestSummarize(t *testing.T) {
	days := Aggregate([]core.PendingPayment{
		pending("a", "2025-09-13", 25000),
		pending("b", "2025-09-13", 15000),
	})

	s := days.Summarize(core.NewDate(2025, 9, 13), core.NewDate(2025, 9, 20))
	if s.Count != 2 || s.TotalCRC != 40000 || !s.Overdue {
		t.Fatalf("summary = %+v", s)
	}
	if core.FormatCRC(s.TotalCRC) != "₡40,000" {
		t.Fatalf("formatted total = %s", core.FormatCRC(s.TotalCRC))
	}
}

func TestIsOverdue(t *testing.T) {
	today := core.NewDate(2025, 9, 15)
	tests := []struct {
		name string
		due  core.Date
		want bool
	}{
		{"yesterday", core.NewDate(2025, 9, 14), true},
		{"today", today, false},
		{"tomorrow", core.NewDate(2025, 9, 16), false},
		{"previous year", core.NewDate(2024, 12, 31), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOverdue(tt.due, today); got != tt.want {
				t.Errorf("IsOverdue(%s) = %v, want %v", tt.due, got, tt.want)
			}
		})
	}
}
