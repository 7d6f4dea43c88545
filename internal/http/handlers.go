package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"gymdash/internal/auth"
	"gymdash/internal/calendar"
	applog "gymdash/internal/log"
	"gymdash/internal/notify"
)

// handleIndex renders the dashboard with the requested month preloaded.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c, err := s.loadCalendar(r, &notify.Recorder{})
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Calendar controller setup failed", applog.FieldError, err)
		InternalServerError("No se pudo mostrar el calendario").Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "index.html", indexView{
		Session:  auth.FromContext(r.Context()),
		Calendar: newCalendarView(c),
	})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "not_configured"
	}

	checks["cache"] = map[string]interface{}{
		"due_entries": s.deps.Fetcher.Cache().Size(),
		"status":      "ok",
	}
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	counters := []struct {
		name, help string
		value      int64
	}{
		{"http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests},
		{"http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors},
		{"payments_confirmed_total", "Payments confirmed through the dashboard", atomic.LoadInt64(&s.appMetrics.confirmed)},
		{"payment_reminders_total", "Reminder requests recorded", atomic.LoadInt64(&s.appMetrics.reminders)},
		{"member_changes_total", "Member create, update, delete, status and check-in operations", atomic.LoadInt64(&s.appMetrics.memberChanges)},
		{"template_errors_total", "Failed template renders", atomic.LoadInt64(&s.appMetrics.renderErrors)},
		{"security_suspicious_requests_total", "Requests flagged as probes", securityMetrics.SuspiciousRequests},
		{"security_blocked_requests_total", "Requests rejected as probes", securityMetrics.BlockedRequests},
		{"rate_limit_hits_total", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits},
	}

	w.WriteHeader(http.StatusOK)
	for _, c := range counters {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(w, "%s %d\n\n", c.name, c.value)
	}

	fmt.Fprintf(w, "# HELP due_cache_entries Cached due-payment ranges\n")
	fmt.Fprintf(w, "# TYPE due_cache_entries gauge\n")
	fmt.Fprintf(w, "due_cache_entries %d\n\n", s.deps.Fetcher.Cache().Size())

	fmt.Fprintf(w, "# HELP rate_limit_active_clients Clients tracked by the rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_active_clients gauge\n")
	fmt.Fprintf(w, "rate_limit_active_clients %d\n\n", s.rateLimiter.ActiveClients())

	fmt.Fprintf(w, "# HELP http_last_response_microseconds Duration of the latest request\n")
	fmt.Fprintf(w, "# TYPE http_last_response_microseconds gauge\n")
	fmt.Fprintf(w, "http_last_response_microseconds %d\n\n", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP app_uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE app_uptime_seconds gauge\n")
	fmt.Fprintf(w, "app_uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}

// handleStatsAPI serves GET /api/stats?month=YYYY-MM.
func (s *Server) handleStatsAPI(w http.ResponseWriter, r *http.Request) {
	month := ParseMonthParam(r.URL.Query(), s.today())
	stats, err := s.deps.Stats.Stats(r.Context(), month)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Stats failed", applog.FieldMonth, calendar.MonthKey(month), applog.FieldError, err)
		writeJSONError(w, http.StatusInternalServerError, "Error interno")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleStatsPartial renders the stats cards.
func (s *Server) handleStatsPartial(w http.ResponseWriter, r *http.Request) {
	month := ParseMonthParam(r.URL.Query(), s.today())
	stats, err := s.deps.Stats.Stats(r.Context(), month)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Stats failed", applog.FieldMonth, calendar.MonthKey(month), applog.FieldError, err)
		s.render(w, r, http.StatusOK, "stats.html", statsView{Title: calendar.MonthTitle(month), Month: calendar.MonthKey(month), Failed: true})
		return
	}
	s.render(w, r, http.StatusOK, "stats.html", statsView{DashboardStats: stats, Title: calendar.MonthTitle(month), Month: calendar.MonthKey(month)})
}
