package http

import (
	"net/http"
	"sync/atomic"

	"gymdash/internal/core"
	applog "gymdash/internal/log"
)

// handleListDue serves GET /api/payments/due. Records of every status are
// returned; the calendar keeps only pending ones.
func (s *Server) handleListDue(w http.ResponseWriter, r *http.Request) {
	rp, err := ParseRangeParams(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Fecha inválida")
		return
	}

	items, err := s.deps.Lister.ListDue(r.Context(), rp.From, rp.To)
	if err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentPayments).
			ErrorContext(r.Context(), "List due payments failed",
				applog.NewFields().WithRange(rp.From.String(), rp.To.String()).WithError(err).ToSlice()...)
		status, msg := statusFor(err)
		writeJSONError(w, status, msg)
		return
	}

	out := make([]core.PendingPayment, 0, len(items))
	for _, p := range items {
		p.MemberName = p.DisplayName()
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, out)
}

type okBody struct {
	OK bool `json:"ok"`
}

// paymentID reads paymentId from a JSON or form body.
func paymentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Formato de solicitud inválido")
		return "", false
	}
	id := p.Get("paymentId")
	if id == "" {
		writeJSONError(w, http.StatusBadRequest, "paymentId es requerido")
		return "", false
	}
	return id, true
}

// handleConfirmPayment serves POST /api/payments/confirm.
func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Mutator.Confirm(r.Context(), id); err != nil {
		s.paymentActionFailed(w, r, applog.OpConfirm, id, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.confirmed, 1)
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

// handleRemindPayment serves POST /api/payments/reminder.
func (s *Server) handleRemindPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentID(w, r)
	if !ok {
		return
	}
	if err := s.deps.Mutator.Remind(r.Context(), id); err != nil {
		s.paymentActionFailed(w, r, applog.OpRemind, id, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.reminders, 1)
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func (s *Server) paymentActionFailed(w http.ResponseWriter, r *http.Request, op, id string, err error) {
	status, msg := statusFor(err)
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentPayments)
	args := []any{applog.FieldOperation, op, applog.FieldPaymentID, id, applog.FieldError, err}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Payment action failed", args...)
	} else {
		logger.WarnContext(r.Context(), "Payment action rejected", args...)
	}
	writeJSONError(w, status, msg)
}
