package memory

import (
	"context"
	"time"

	"gymdash/internal/core"
)

type seedMember struct {
	id, name, email, phone, identification string
}

var seedMembers = []seedMember{
	{"F6xAgp7gRSOyoMVabaEY", "Carlos Pérez", "carlos.perez@example.com", "8801-0001", "1-0101-0001"},
	{"G7kQ1n0b2c3d4e5f6g7", "María Fernández", "maria.fernandez@example.com", "8801-0002", "1-0101-0002"},
	{"H8h9i0j1k2l3m4n5o6p", "Ana Rojas", "ana.rojas@example.com", "8801-0003", "1-0101-0003"},
	{"J1k2l3m4n5o6p7q8r9s", "Luis Castro", "luis.castro@example.com", "8801-0004", "1-0101-0004"},
}

type seedPayment struct {
	id, memberID, reference string
	amount                  int64
	due                     core.Date
	status                  core.PaymentStatus
	created                 time.Time
}

var seedPayments = []seedPayment{
	{"mock-s-001", "F6xAgp7gRSOyoMVabaEY", "GM-mbr-0001-20250913", 25000, core.NewDate(2025, 9, 13), core.StatusPending, time.Date(2025, 9, 13, 20, 26, 33, 0, time.UTC)},
	{"mock-s-002", "G7kQ1n0b2c3d4e5f6g7", "GM-mbr-0002-20250903", 25000, core.NewDate(2025, 9, 5), core.StatusPending, time.Date(2025, 9, 3, 14, 0, 0, 0, time.UTC)},
	{"mock-s-003", "H8h9i0j1k2l3m4n5o6p", "GM-mbr-0003-20250910", 25000, core.NewDate(2025, 9, 18), core.StatusPending, time.Date(2025, 9, 10, 14, 0, 0, 0, time.UTC)},
	{"mock-s-004", "J1k2l3m4n5o6p7q8r9s", "GM-mbr-0004-20250921", 20000, core.NewDate(2025, 9, 25), core.StatusPending, time.Date(2025, 9, 21, 14, 0, 0, 0, time.UTC)},
	{"mock-s-005", "G7kQ1n0b2c3d4e5f6g7", "GM-mbr-0005-20250902", 15000, core.NewDate(2025, 9, 2), core.StatusConfirmed, time.Date(2025, 9, 2, 14, 0, 0, 0, time.UTC)},
}

// Seeded returns a store preloaded with the demo gym: four members and their
// September 2025 payments.
func Seeded() *Store {
	s := New()
	ctx := context.Background()
	joined := core.NewDate(2025, 8, 13)
	for _, m := range seedMembers {
		_ = s.CreateMember(ctx, core.Member{
			ID:             m.id,
			Name:           m.name,
			Email:          m.email,
			Phone:          m.phone,
			Identification: m.identification,
			MembershipType: core.PlanMonthly,
			IsActive:       true,
			JoinDate:       joined,
			CreatedAt:      joined.Time,
			UpdatedAt:      joined.Time,
		})
	}
	for _, p := range seedPayments {
		pay := core.Payment{
			ID:        p.id,
			MemberID:  p.memberID,
			AmountCRC: p.amount,
			DueDate:   p.due,
			Status:    p.status,
			Method:    "cash",
			Plan:      core.PlanMonthly,
			Reference: p.reference,
			CreatedAt: p.created,
		}
		if p.status == core.StatusConfirmed {
			at := p.created
			pay.ConfirmedAt = &at
		}
		_ = s.CreatePayment(ctx, pay)
	}
	return s
}
