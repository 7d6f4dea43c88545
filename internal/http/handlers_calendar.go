package http

import (
	"net/http"
	"sync/atomic"

	"gymdash/internal/auth"
	"gymdash/internal/calendar"
	"gymdash/internal/calview"
	"gymdash/internal/core"
	applog "gymdash/internal/log"
	"gymdash/internal/notify"
)

func (s *Server) today() core.Date {
	return calendar.Today(s.deps.Clock.Now(), s.deps.Location)
}

// controller builds a calendar controller for the signed-in viewer. Every
// request gets its own; the fetch cache is what is shared.
func (s *Server) controller(r *http.Request, sink notify.Sink, month core.Date) (*calview.Controller, error) {
	return calview.New(calview.Deps{
		Session:  auth.FromContext(r.Context()),
		Sink:     sink,
		Fetcher:  s.deps.Fetcher,
		Mutator:  s.deps.Mutator,
		Clock:    s.deps.Clock,
		Location: s.deps.Location,
		Logger:   applog.FromContext(r.Context()),
	}, month)
}

// loadCalendar resolves month and nav from the query and loads that month.
func (s *Server) loadCalendar(r *http.Request, sink notify.Sink) (*calview.Controller, error) {
	q := r.URL.Query()
	month := ParseMonthParam(q, s.today())
	switch q.Get("nav") {
	case "prev":
		month = calendar.AddMonths(month, -1)
	case "next":
		month = calendar.AddMonths(month, 1)
	case "today":
		month = s.today()
	}
	c, err := s.controller(r, sink, month)
	if err != nil {
		return nil, err
	}
	c.Load(r.Context())
	return c, nil
}

func fetchFailed() notify.Notification {
	return notify.Error("No se pudieron cargar los pagos pendientes. Intenta de nuevo.", "Calendario")
}

// handleCalendar renders the month grid partial.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCalendar(r, &notify.Recorder{})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Calendar controller setup failed", applog.FieldError, err)
		InternalServerError("No se pudo mostrar el calendario").Write(w)
		return
	}

	view := newCalendarView(c)
	html, err := s.renderHTML(r, "calendar.html", view)
	if err != nil {
		InternalServerError("No se pudo mostrar el calendario").Write(w)
		return
	}

	resp := NewHTMXResponse().BodyHTML(html)
	if view.Failed {
		resp.Notifications([]notify.Notification{fetchFailed()})
	}
	resp.Write(w)
}

// dayController loads the month containing the date query parameter.
func (s *Server) dayController(w http.ResponseWriter, r *http.Request, date core.Date, sink notify.Sink) (*calview.Controller, bool) {
	c, err := s.controller(r, sink, date)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Calendar controller setup failed", applog.FieldError, err)
		InternalServerError("No se pudo mostrar el día").Write(w)
		return nil, false
	}
	c.Load(r.Context())
	return c, true
}

// handleDaySummary renders the hover card. Days without pending payments
// answer 204 so nothing is shown.
func (s *Server) handleDaySummary(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDateParam(r.URL.Query(), "date")
	if err != nil {
		BadRequestError("Fecha inválida").Write(w)
		return
	}
	c, ok := s.dayController(w, r, date, &notify.Recorder{})
	if !ok {
		return
	}
	if !c.EnterCell(date) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	sum, _ := c.Hover()
	s.render(w, r, http.StatusOK, "summary.html", sum)
}

// handleDayDetail renders the modal listing the day's pending payments.
func (s *Server) handleDayDetail(w http.ResponseWriter, r *http.Request) {
	date, err := ParseDateParam(r.URL.Query(), "date")
	if err != nil {
		BadRequestError("Fecha inválida").Write(w)
		return
	}
	c, ok := s.dayController(w, r, date, &notify.Recorder{})
	if !ok {
		return
	}
	if !c.ClickCell(date) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	modal, _ := c.Modal()
	s.render(w, r, http.StatusOK, "day.html", newDayView(modal))
}

// modalAction opens the day named in the body and returns the controller
// with its recorder, ready for a confirm or reminder.
func (s *Server) modalAction(w http.ResponseWriter, r *http.Request) (*calview.Controller, *notify.Recorder, string, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return nil, nil, "", false
	}
	id := p.Get("paymentId")
	date, err := core.ParseDate(p.Get("date"))
	if id == "" || err != nil {
		BadRequestError("Falta el pago o la fecha").Write(w)
		return nil, nil, "", false
	}

	rec := &notify.Recorder{}
	c, ok := s.dayController(w, r, date, rec)
	if !ok {
		return nil, nil, "", false
	}
	c.ClickCell(date)
	return c, rec, id, true
}

// handleCalendarConfirm confirms a payment from the modal. On success the
// refreshed grid replaces the calendar and the modal is closed; on failure
// the page is left as is and only the error toast is shown.
func (s *Server) handleCalendarConfirm(w http.ResponseWriter, r *http.Request) {
	c, rec, id, ok := s.modalAction(w, r)
	if !ok {
		return
	}

	if err := c.Confirm(r.Context(), id); err != nil {
		NewHTMXResponse().NoSwap().Notifications(rec.Drain()).Write(w)
		return
	}
	atomic.AddInt64(&s.appMetrics.confirmed, 1)

	view := newCalendarView(c)
	html, err := s.renderHTML(r, "calendar.html", view)
	if err != nil {
		NewHTMXResponse().NoSwap().TriggerModalClose().Notifications(rec.Drain()).Write(w)
		return
	}
	NewHTMXResponse().
		Header("HX-Retarget", "#calendar").
		Header("HX-Reswap", "outerHTML").
		TriggerModalClose().
		TriggerStatsRefresh().
		Notifications(rec.Drain()).
		BodyHTML(html).
		Write(w)
}

// handleCalendarRemind records a reminder. The modal stays open.
func (s *Server) handleCalendarRemind(w http.ResponseWriter, r *http.Request) {
	c, rec, id, ok := s.modalAction(w, r)
	if !ok {
		return
	}
	if err := c.Remind(r.Context(), id); err == nil {
		atomic.AddInt64(&s.appMetrics.reminders, 1)
	}
	NewHTMXResponse().NoSwap().Notifications(rec.Drain()).Write(w)
}
