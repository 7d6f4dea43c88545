package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"gymdash/internal/auth"
	"gymdash/internal/cache"
	"gymdash/internal/calview"
	"gymdash/internal/dues"
	applog "gymdash/internal/log"
	"gymdash/internal/middleware/ratelimit"
	"gymdash/internal/middleware/security"
	"gymdash/internal/middleware/trace"
	"gymdash/internal/services"
	appweb "gymdash/web"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes to. Lister and Mutator are
// either the local payment service or the remote payments API client.
type Deps struct {
	Lister   dues.Lister
	Mutator  dues.Mutator
	Fetcher  *dues.Fetcher
	Members  *services.MemberService
	Stats    *services.StatsService
	Auth     *auth.Service
	Sessions *auth.Manager
	Store    Pinger
	Caches   *cache.Manager
	Location *time.Location
	Clock    calview.Clock
	Logger   *applog.Logger
	// TrustedProxies extends the networks whose forwarding headers are used
	// for the client IP.
	TrustedProxies []string
}

func (d Deps) validate() error {
	var missing []string
	if d.Lister == nil {
		missing = append(missing, "lister")
	}
	if d.Mutator == nil {
		missing = append(missing, "mutator")
	}
	if d.Fetcher == nil {
		missing = append(missing, "fetcher")
	}
	if d.Members == nil {
		missing = append(missing, "members")
	}
	if d.Stats == nil {
		missing = append(missing, "stats")
	}
	if d.Auth == nil {
		missing = append(missing, "auth")
	}
	if d.Sessions == nil {
		missing = append(missing, "sessions")
	}
	if len(missing) > 0 {
		return fmt.Errorf("http server: missing dependencies %v", missing)
	}
	return nil
}

type appMetrics struct {
	uptime        time.Time
	confirmed     int64
	reminders     int64
	memberChanges int64
	renderErrors  int64
}

type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	logger    *applog.Logger

	traceMiddleware  *trace.Middleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	if deps.Clock == nil {
		deps.Clock = calview.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = applog.Discard()
	}
	if deps.Caches == nil {
		deps.Caches = cache.NewManager(deps.Logger)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := deps.Logger.WithComponent(applog.ComponentHTTP)
	detector := security.NewDetector()
	for _, cidr := range deps.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		deps:             deps,
		templates:        t,
		logger:           logger,
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(deps.Logger, detector.ExtractClientIP),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	sub, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /register", s.handleRegister)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, security.NoStore(auth.RequireSignedIn(h)))
	}

	protected("GET /{$}", s.handleIndex)

	protected("GET /api/payments/due", s.handleListDue)
	protected("POST /api/payments/confirm", s.handleConfirmPayment)
	protected("POST /api/payments/reminder", s.handleRemindPayment)

	protected("GET /api/members", s.handleListMembers)
	protected("POST /api/members", s.handleCreateMember)
	protected("GET /api/members/{id}", s.handleGetMember)
	protected("PUT /api/members/{id}", s.handleUpdateMember)
	protected("DELETE /api/members/{id}", s.handleDeleteMember)
	protected("POST /api/members/{id}/status", s.handleMemberStatus)
	protected("POST /api/members/{id}/checkin", s.handleCheckIn)

	protected("GET /api/stats", s.handleStatsAPI)

	protected("GET /ui/calendar", s.handleCalendar)
	protected("GET /ui/calendar/summary", s.handleDaySummary)
	protected("GET /ui/calendar/day", s.handleDayDetail)
	protected("POST /ui/calendar/confirm", s.handleCalendarConfirm)
	protected("POST /ui/calendar/reminder", s.handleCalendarRemind)
	protected("GET /ui/stats", s.handleStatsPartial)

	// Wrapped inside out; tracing is outermost and sees every rejection.
	var handler http.Handler = mux
	handler = deps.Sessions.LoadSession(handler)
	handler = s.rateLimiter.Middleware(detector.ExtractClientIP, s.rateLimited)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	deps.Caches.Register(deps.Fetcher.Cache())
	deps.Caches.StartCleanup(10 * time.Minute)

	return s, nil
}

// rateLimited answers throttled requests in the caller's format.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Demasiadas solicitudes. Intenta de nuevo en un minuto."
	if isHTMX(r) {
		NewHTMXResponse().
			Status(http.StatusTooManyRequests).
			NoSwap().
			TriggerErrorNotification(msg).
			Write(w)
		return
	}
	writeJSONError(w, http.StatusTooManyRequests, msg)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.deps.Caches.Stop()

		shutdownErr = s.Server.Shutdown(ctx)
		if errors.Is(shutdownErr, http.ErrServerClosed) {
			shutdownErr = nil
		}
	})

	return shutdownErr
}

// renderHTML executes a named template into a string.
func (s *Server) renderHTML(r *http.Request, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		atomic.AddInt64(&s.appMetrics.renderErrors, 1)
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Template execution failed", err,
				applog.ComponentTemplate, applog.OpRender, applog.LogFields{"template": name})
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// render writes a full template response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	html, err := s.renderHTML(r, name, data)
	if err != nil {
		InternalServerError("No se pudo mostrar la página").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(html).Write(w)
}
