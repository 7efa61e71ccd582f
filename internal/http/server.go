package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"portfel/internal/auth"
	plog "portfel/internal/log"
	"portfel/internal/middleware/ratelimit"
	"portfel/internal/middleware/security"
	"portfel/internal/middleware/trace"
	"portfel/internal/services"
	appweb "portfel/web"
)

// Services groups the domain services the handlers call.
type Services struct {
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Cyclic       *services.CyclicService
	Categories   *services.CategoryService
	Budgets      *services.BudgetService
	Reports      *services.ReportService
}

// Pinger is checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig holds the HTTP-level settings.
type ServerConfig struct {
	Addr          string
	SessionTTL    time.Duration
	SecureCookies bool
	// AuthRequestsPerMinute limits login, register and reset posts per client.
	AuthRequestsPerMinute int
	Logger                *plog.Logger
}

type appMetrics struct {
	uptime time.Time
}

type Server struct {
	http.Server
	config    ServerConfig
	svc       Services
	sessions  *auth.Sessions
	db        Pinger
	templates map[string]*template.Template
	logger    *plog.Logger

	securityDetector *security.Detector
	authLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware
	appMetrics       appMetrics
	clock            func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(cfg ServerConfig, svc Services, sessions *auth.Sessions, db Pinger) (*Server, error) {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * 24 * time.Hour
	}
	if cfg.AuthRequestsPerMinute <= 0 {
		cfg.AuthRequestsPerMinute = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = plog.New(plog.DefaultConfig())
	}
	logger = logger.WithComponent(plog.ComponentHTTP)

	templates, err := loadTemplates(appweb.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	detector := security.NewDetector()
	s := &Server{
		config:           cfg,
		svc:              svc,
		sessions:         sessions,
		db:               db,
		templates:        templates,
		logger:           logger,
		securityDetector: detector,
		authLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.AuthRequestsPerMinute}),
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP),
		appMetrics:       appMetrics{uptime: time.Now()},
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.flagSuspicious(handler)
	handler = detector.SameOrigin(handler)
	headers := security.DefaultHeadersConfig()
	headers.HTTPSOnly = cfg.SecureCookies
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = plog.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", plog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	limited := func(h http.HandlerFunc) http.Handler {
		return s.authLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited)(h)
	}

	// accounts
	mux.HandleFunc("GET /register", s.handleRegisterForm)
	mux.Handle("POST /register", limited(s.handleRegister))
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.Handle("POST /login", limited(s.handleLogin))
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /reset-password", s.handleResetRequestForm)
	mux.Handle("POST /reset-password", limited(s.handleResetRequest))
	mux.HandleFunc("GET /reset-password/{token}", s.handleResetForm)
	mux.Handle("POST /reset-password/{token}", limited(s.handleReset))

	// views
	mux.Handle("GET /{$}", security.NoStore(s.withActor(s.handleDashboard)))
	mux.Handle("GET /history", security.NoStore(s.withActor(s.handleHistory)))
	mux.Handle("GET /analysis", security.NoStore(s.withActor(s.handleAnalysis)))

	// transactions
	mux.HandleFunc("GET /transactions/new", s.withActor(s.handleTransactionForm))
	mux.HandleFunc("POST /transactions/new", s.withActor(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions/{id}/edit", s.withActor(s.handleEditTransactionForm))
	mux.HandleFunc("POST /transactions/{id}/edit", s.withActor(s.handleEditTransaction))
	mux.HandleFunc("POST /transactions/{id}/delete", s.withActor(s.handleDeleteTransaction))
	mux.HandleFunc("POST /transfers/{ref}/delete", s.withActor(s.handleDeleteTransfer))

	// cyclic templates
	mux.HandleFunc("GET /cyclic", s.withActor(s.handleCyclicList))
	mux.HandleFunc("POST /cyclic", s.withActor(s.handleCreateCyclic))
	mux.HandleFunc("GET /cyclic/{id}/edit", s.withActor(s.handleEditCyclicForm))
	mux.HandleFunc("POST /cyclic/{id}/edit", s.withActor(s.handleEditCyclic))
	mux.HandleFunc("POST /cyclic/{id}/delete", s.withActor(s.handleDeleteCyclic))

	// categories
	mux.HandleFunc("GET /categories", s.withActor(s.handleCategoryList))
	mux.HandleFunc("POST /categories", s.withActor(s.handleCreateCategory))
	mux.HandleFunc("GET /categories/{id}/edit", s.withActor(s.handleEditCategoryForm))
	mux.HandleFunc("POST /categories/{id}/edit", s.withActor(s.handleEditCategory))
	mux.HandleFunc("POST /categories/{id}/delete", s.withActor(s.handleDeleteCategory))

	// sub-budgets
	mux.HandleFunc("POST /budgets", s.withActor(s.handleCreateBudget))
	mux.HandleFunc("POST /budgets/{id}/switch", s.withActor(s.handleSwitchBudget))
	mux.HandleFunc("POST /budgets/{id}/rename", s.withActor(s.handleRenameBudget))
	mux.HandleFunc("POST /budgets/{id}/delete", s.withActor(s.handleDeleteBudget))
	mux.HandleFunc("GET /transfer", s.withActor(s.handleTransferForm))
	mux.HandleFunc("POST /transfer", s.withActor(s.handleTransfer))
}

// flagSuspicious logs requests that look like scans. They are still served;
// the router answers most of them with 404.
func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			plog.FromContext(r.Context()).WithComponent(plog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request",
				plog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
				plog.FieldMethod, r.Method,
				plog.FieldPath, r.URL.Path,
				plog.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	plog.FromContext(r.Context()).WithComponent(plog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		plog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		plog.FieldPath, r.URL.Path)
	http.Error(w, "Too many attempts. Please try again in a minute.", http.StatusTooManyRequests)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.authLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
