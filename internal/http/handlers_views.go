package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"portfel/internal/core"
	"portfel/internal/services"
)

type dashboardView struct {
	services.Dashboard
	Household  core.Household
	InviteCode string
	InviteURL  string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, a services.Actor) {
	ctx := r.Context()
	d, err := s.svc.Reports.Dashboard(ctx, a)
	if err != nil {
		s.serverError(w, r, "dashboard", err)
		return
	}
	h, err := s.svc.Accounts.Household(ctx, a)
	if err != nil {
		s.serverError(w, r, "dashboard", err)
		return
	}
	code := s.svc.Accounts.InviteCode(a.HouseholdID)
	s.render(w, r, "dashboard.html", dashboardView{
		Dashboard:  d,
		Household:  h,
		InviteCode: code,
		InviteURL:  "/register?invite=" + code,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, a services.Actor) {
	rows, err := s.svc.Reports.History(r.Context(), a)
	if err != nil {
		s.serverError(w, r, "history", err)
		return
	}
	s.render(w, r, "history.html", struct {
		Transactions []core.TransactionView
	}{rows})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request, a services.Actor) {
	dr := ParseDateRange(r.URL.Query())
	res, err := s.svc.Reports.Analysis(r.Context(), a, dr.From, dr.To)
	if err != nil {
		s.serverError(w, r, "analysis", err)
		return
	}

	type bar struct {
		core.CategoryAmount
		Width int
	}
	view := struct {
		services.Analysis
		Bars []bar
	}{Analysis: res}
	for _, c := range res.ByCategory {
		width := 0
		if res.Total.IsPositive() {
			width = int(c.Amount.Mul(hundred).Div(res.Total).Round(0).IntPart())
			if width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		view.Bars = append(view.Bars, bar{CategoryAmount: c, Width: width})
	}
	s.render(w, r, "analysis.html", view)
}

func (s *Server) today() core.Date {
	if s.clock != nil {
		return core.DateOf(s.clock())
	}
	return core.Today()
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{}

	if len(s.templates) == 0 {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.db == nil {
		checks["database"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if err := s.db.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.authLimiter.ActiveClients(),
		"status":         "ok",
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and security counters in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	sec := s.securityDetector.GetMetrics()
	rl := s.authLimiter.GetMetrics()
	tr := s.traceMiddleware.GetMetrics()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", tr.TotalRequests)

	fmt.Fprintf(w, "# HELP http_client_errors_total Responses with a 4xx status\n")
	fmt.Fprintf(w, "# TYPE http_client_errors_total counter\n")
	fmt.Fprintf(w, "http_client_errors_total %d\n\n", tr.ClientErrors)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", tr.ServerErrors)

	fmt.Fprintf(w, "# HELP rate_limit_rejected_total Requests rejected by the auth rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_rejected_total counter\n")
	fmt.Fprintf(w, "rate_limit_rejected_total %d\n\n", rl.Rejected)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", sec.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP cross_site_rejected_total Cross-site form posts rejected\n")
	fmt.Fprintf(w, "# TYPE cross_site_rejected_total counter\n")
	fmt.Fprintf(w, "cross_site_rejected_total %d\n\n", sec.CrossSiteRejected)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.appMetrics.uptime).Seconds())
}
