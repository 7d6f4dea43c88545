package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"gymdash/internal/core"
	applog "gymdash/internal/log"
	"gymdash/internal/store"
)

// ValidationError carries per-field messages from a rejected member form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid member form: %d field(s)", len(e.Fields))
}

type MemberOptions struct {
	Location *time.Location
	Now      func() time.Time
	NewID    func() string
	Logger   *applog.Logger
}

// MemberService owns the member lifecycle. New members get their first
// payment scheduled on the join date.
type MemberService struct {
	repo     store.MemberStore
	payments *PaymentService
	policy   *bluemonday.Policy
	loc      *time.Location
	now      func() time.Time
	newID    func() string
	logger   *applog.Logger
}

func NewMemberService(repo store.MemberStore, payments *PaymentService, opts MemberOptions) *MemberService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	return &MemberService{
		repo:     repo,
		payments: payments,
		policy:   bluemonday.StrictPolicy(),
		loc:      opts.Location,
		now:      opts.Now,
		newID:    opts.NewID,
		logger:   opts.Logger.WithComponent(applog.ComponentMembers),
	}
}

// clean strips markup from free text. The result is plain text; templates
// escape it again on render.
func (s *MemberService) clean(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s *MemberService) sanitize(f core.MemberForm) core.MemberForm {
	f.Name = s.clean(f.Name)
	f.EmergencyContact = s.clean(f.EmergencyContact)
	f.Notes = s.clean(f.Notes)
	return f
}

func validate(f core.MemberForm) error {
	if errs := core.ValidateMemberForm(f); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (s *MemberService) Create(ctx context.Context, form core.MemberForm) (core.Member, error) {
	form = s.sanitize(form)
	if err := validate(form); err != nil {
		return core.Member{}, err
	}

	now := s.now()
	m := core.Member{
		ID:        s.newID(),
		IsActive:  true,
		JoinDate:  core.DateOf(now.In(s.loc)),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	form.Apply(&m)

	if err := s.repo.CreateMember(ctx, m); err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", err)
	}
	s.logger.InfoContext(ctx, "Member created", applog.FieldMemberID, m.ID)

	if s.payments != nil {
		if _, _, err := s.payments.SchedulePayment(ctx, m, m.JoinDate); err != nil {
			s.logger.WarnContext(ctx, "Failed to schedule first payment",
				applog.FieldMemberID, m.ID,
				applog.FieldError, err)
		}
	}
	return m, nil
}

func (s *MemberService) Update(ctx context.Context, id string, form core.MemberForm) (core.Member, error) {
	form = s.sanitize(form)
	if err := validate(form); err != nil {
		return core.Member{}, err
	}
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	form.Apply(&m)
	m.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateMember(ctx, m); err != nil {
		return core.Member{}, fmt.Errorf("update member: %w", err)
	}
	s.logger.InfoContext(ctx, "Member updated", applog.FieldMemberID, m.ID)
	return m, nil
}

// Delete removes the member and returns what was removed. Their payments stay.
func (s *MemberService) Delete(ctx context.Context, id string) (core.Member, error) {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	if err := s.repo.DeleteMember(ctx, id); err != nil {
		return core.Member{}, fmt.Errorf("delete member: %w", err)
	}
	s.logger.InfoContext(ctx, "Member deleted", applog.FieldMemberID, id)
	return m, nil
}

func (s *MemberService) Get(ctx context.Context, id string) (core.Member, error) {
	return s.repo.GetMember(ctx, id)
}

// List returns members matching search and status (all, active, inactive).
func (s *MemberService) List(ctx context.Context, search, status string) ([]core.Member, error) {
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return core.FilterMembers(members, search, status), nil
}

func (s *MemberService) SetStatus(ctx context.Context, id string, active bool) (core.Member, error) {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	if m.IsActive == active {
		return m, nil
	}
	m.IsActive = active
	m.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateMember(ctx, m); err != nil {
		return core.Member{}, fmt.Errorf("update member status: %w", err)
	}
	s.logger.InfoContext(ctx, "Member status changed",
		applog.FieldMemberID, id,
		"active", active)
	return m, nil
}

// ToggleStatus flips the member between active and inactive.
func (s *MemberService) ToggleStatus(ctx context.Context, id string) (core.Member, error) {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	return s.SetStatus(ctx, id, !m.IsActive)
}

func (s *MemberService) CheckIn(ctx context.Context, id string) (core.Member, error) {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return core.Member{}, err
	}
	if !m.IsActive {
		return m, core.ErrMemberInactive
	}
	m, err = s.repo.RecordCheckIn(ctx, id, s.now())
	if err != nil {
		return core.Member{}, fmt.Errorf("record check-in: %w", err)
	}
	s.logger.InfoContext(ctx, "Check-in registered", applog.FieldMemberID, id)
	return m, nil
}
