package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymdash/internal/core"
	"gymdash/internal/store/memory"
)

func newMemberService(t *testing.T) (*MemberService, *memory.Store) {
	t.Helper()
	repo := memory.New()
	now := func() time.Time { return fixedNow }
	payments := NewPaymentService(repo, nil, PaymentOptions{MonthlyFee: 25000, Now: now, NewID: sequentialIDs("pay")})
	svc := NewMemberService(repo, payments, MemberOptions{
		Location: time.UTC,
		Now:      now,
		NewID:    sequentialIDs("mbr"),
	})
	return svc, repo
}

func validForm() core.MemberForm {
	return core.MemberForm{
		Name:           "Ana Rojas",
		Email:          "ana@gym.cr",
		Phone:          "8888-0003",
		Identification: "1-0000-0003",
		MembershipType: core.PlanMonthly,
	}
}

func TestMemberService_CreateSchedulesFirstPayment(t *testing.T) {
	svc, repo := newMemberService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, validForm())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID != "mbr-1" || !m.IsActive || m.TotalCheckIns != 0 || m.LastCheckIn != nil {
		t.Fatalf("unexpected member: %+v", m)
	}
	if m.JoinDate.Key() != "2025-09-14" {
		t.Fatalf("join date = %s", m.JoinDate.Key())
	}

	due, _ := repo.ListDue(ctx, m.JoinDate, m.JoinDate)
	if len(due) != 1 || due[0].MemberName != "Ana Rojas" || due[0].AmountCRC != 25000 {
		t.Fatalf("first payment = %+v", due)
	}
}

func TestMemberService_CreateRejectsInvalidForm(t *testing.T) {
	svc, _ := newMemberService(t)
	form := validForm()
	form.Email = "nope"
	form.Name = "<script>alert(1)</script>"

	_, err := svc.Create(context.Background(), form)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Fields["email"] != "Email inválido" || verr.Fields["name"] != "Nombre es requerido" {
		t.Fatalf("fields = %v", verr.Fields)
	}
}

func TestMemberService_SanitizesFreeText(t *testing.T) {
	svc, _ := newMemberService(t)
	form := validForm()
	form.Notes = `<b>Rodilla</b> lesionada <script>alert("x")</script>`

	m, err := svc.Create(context.Background(), form)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.Notes != "Rodilla lesionada" {
		t.Fatalf("notes = %q", m.Notes)
	}
}

func TestMemberService_UpdateAndDelete(t *testing.T) {
	svc, repo := newMemberService(t)
	ctx := context.Background()
	m, _ := svc.Create(ctx, validForm())

	form := core.FormOf(m)
	form.Phone = "7000-0000"
	updated, err := svc.Update(ctx, m.ID, form)
	if err != nil || updated.Phone != "7000-0000" {
		t.Fatalf("Update: %+v %v", updated, err)
	}

	if _, err := svc.Update(ctx, "ghost", form); !errors.Is(err, core.ErrMemberNotFound) {
		t.Fatalf("Update unknown err = %v", err)
	}

	deleted, err := svc.Delete(ctx, m.ID)
	if err != nil || deleted.Name != "Ana Rojas" {
		t.Fatalf("Delete: %+v %v", deleted, err)
	}
	due, _ := repo.ListDue(ctx, core.Date{}, core.Date{})
	if len(due) != 1 || due[0].DisplayName() != core.MemberNamePlaceholder {
		t.Fatalf("payments of deleted members stay with the placeholder: %+v", due)
	}
}

func TestMemberService_StatusAndCheckIn(t *testing.T) {
	svc, _ := newMemberService(t)
	ctx := context.Background()
	m, _ := svc.Create(ctx, validForm())

	checked, err := svc.CheckIn(ctx, m.ID)
	if err != nil || checked.TotalCheckIns != 1 {
		t.Fatalf("CheckIn: %+v %v", checked, err)
	}

	off, err := svc.ToggleStatus(ctx, m.ID)
	if err != nil || off.IsActive {
		t.Fatalf("ToggleStatus: %+v %v", off, err)
	}
	if _, err := svc.CheckIn(ctx, m.ID); !errors.Is(err, core.ErrMemberInactive) {
		t.Fatalf("inactive check-in err = %v", err)
	}

	on, err := svc.SetStatus(ctx, m.ID, true)
	if err != nil || !on.IsActive {
		t.Fatalf("SetStatus: %+v %v", on, err)
	}
}

func TestMemberService_List(t *testing.T) {
	svc, _ := newMemberService(t)
	ctx := context.Background()
	_, _ = svc.Create(ctx, validForm())
	other := validForm()
	other.Name = "Luis Castro"
	other.Email = "luis@gym.cr"
	m, _ := svc.Create(ctx, other)
	_, _ = svc.SetStatus(ctx, m.ID, false)

	active, _ := svc.List(ctx, "", core.FilterActive)
	if len(active) != 1 || active[0].Name != "Ana Rojas" {
		t.Fatalf("active = %+v", active)
	}
	found, _ := svc.List(ctx, "LUIS", core.FilterAll)
	if len(found) != 1 || found[0].ID != m.ID {
		t.Fatalf("search = %+v", found)
	}
}
