package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"gymdash/internal/core"
	applog "gymdash/internal/log"
	"gymdash/internal/notify"
	"gymdash/internal/services"
)

// memberChanged answers a successful member mutation. The JSON body is the
// member; HX-Trigger carries the toast and refresh events for the page.
func (s *Server) memberChanged(w http.ResponseWriter, status int, m core.Member, n notify.Notification) {
	atomic.AddInt64(&s.appMetrics.memberChanges, 1)
	// Names and scheduled payments show up in cached months.
	s.deps.Fetcher.InvalidateAll()

	NewHTMXResponse().
		Status(status).
		Header("Content-Type", "application/json").
		TriggerMembersChanged().
		TriggerStatsRefresh().
		Notifications([]notify.Notification{n}).
		Body(mustJSON(m)).
		Write(w)
}

func (s *Server) memberFailed(w http.ResponseWriter, r *http.Request, op, id string, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Datos inválidos", Errors: verr.Fields})
		return
	}
	status, msg := statusFor(err)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentMembers)
	args := []any{applog.FieldOperation, op, applog.FieldMemberID, id, applog.FieldError, err}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Member operation failed", args...)
	} else {
		logger.WarnContext(r.Context(), "Member operation rejected", args...)
	}
	writeJSONError(w, status, msg)
}

// memberForm decodes the request body into a member form.
func memberForm(w http.ResponseWriter, r *http.Request) (core.MemberForm, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return core.MemberForm{}, false
	}
	return p.MemberForm(), true
}

// handleListMembers serves GET /api/members?search=&status=all|active|inactive.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := strings.TrimSpace(q.Get("status"))
	switch status {
	case "":
		status = core.FilterAll
	case core.FilterAll, core.FilterActive, core.FilterInactive:
	default:
		writeJSONError(w, http.StatusBadRequest, "Estado inválido")
		return
	}

	members, err := s.deps.Members.List(r.Context(), sanitizeInput(q.Get("search")), status)
	if err != nil {
		s.memberFailed(w, r, applog.OpList, "", err)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	form, ok := memberForm(w, r)
	if !ok {
		return
	}
	m, err := s.deps.Members.Create(r.Context(), form)
	if err != nil {
		s.memberFailed(w, r, applog.OpCreate, "", err)
		return
	}
	s.memberChanged(w, http.StatusCreated, m, notify.MemberAdded(m.Name))
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.deps.Members.Get(r.Context(), id)
	if err != nil {
		s.memberFailed(w, r, applog.OpRead, id, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form, ok := memberForm(w, r)
	if !ok {
		return
	}
	m, err := s.deps.Members.Update(r.Context(), id, form)
	if err != nil {
		s.memberFailed(w, r, applog.OpUpdate, id, err)
		return
	}
	s.memberChanged(w, http.StatusOK, m, notify.MemberUpdated(m.Name))
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.deps.Members.Delete(r.Context(), id)
	if err != nil {
		s.memberFailed(w, r, applog.OpDelete, id, err)
		return
	}
	s.memberChanged(w, http.StatusOK, m, notify.MemberDeleted(m.Name))
}

// handleMemberStatus sets isActive when the body carries it and toggles
// the member otherwise.
func (s *Server) handleMemberStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return
	}

	var (
		m   core.Member
		err error
	)
	if p.Has("isActive") {
		active, ok := p.Bool("isActive")
		if !ok {
			writeJSONError(w, http.StatusBadRequest, "isActive inválido")
			return
		}
		m, err = s.deps.Members.SetStatus(r.Context(), id, active)
	} else {
		m, err = s.deps.Members.ToggleStatus(r.Context(), id)
	}
	if err != nil {
		s.memberFailed(w, r, applog.OpUpdate, id, err)
		return
	}
	s.memberChanged(w, http.StatusOK, m, notify.MemberStatusChanged(m.Name, m.IsActive))
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.deps.Members.CheckIn(r.Context(), id)
	if err != nil {
		s.memberFailed(w, r, "checkin", id, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.memberChanges, 1)
	NewHTMXResponse().
		Header("Content-Type", "application/json").
		TriggerStatsRefresh().
		Notifications([]notify.Notification{notify.CheckInRegistered(m.Name)}).
		Body(mustJSON(m)).
		Write(w)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
