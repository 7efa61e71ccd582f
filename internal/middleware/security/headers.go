package security

import (
	"fmt"
	"net/http"
	"strings"
)

// HeadersConfig lists the response headers every page carries.
type HeadersConfig struct {
	CSP []string

	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	// HTTPSOnly sends HSTS on plain connections too. Set it when a proxy
	// terminates TLS in front of the server.
	HTTPSOnly bool

	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string
}

// DefaultHeadersConfig allows only same-origin resources. Pages load no
// third-party scripts and forms post only to the app.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: []string{
			"default-src 'self'",
			"script-src 'self'",
			"style-src 'self'",
			"img-src 'self' data:",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		FrameOptions:          "DENY",
		ReferrerPolicy:        "same-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
	}
}

// HeadersMiddleware sets a fixed header set, computed once.
type HeadersMiddleware struct {
	static    http.Header
	hsts      string
	httpsOnly bool
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := http.Header{}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Resource-Policy", "same-origin")
	if cfg.FrameOptions != "" {
		h.Set("X-Frame-Options", cfg.FrameOptions)
	}
	if len(cfg.CSP) > 0 {
		h.Set("Content-Security-Policy", strings.Join(cfg.CSP, "; "))
	}
	if cfg.ReferrerPolicy != "" {
		h.Set("Referrer-Policy", cfg.ReferrerPolicy)
	}
	if cfg.PermissionsPolicy != "" {
		h.Set("Permissions-Policy", cfg.PermissionsPolicy)
	}

	m := &HeadersMiddleware{static: h, httpsOnly: cfg.HTTPSOnly}
	if cfg.HSTSMaxAge > 0 {
		m.hsts = fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			m.hsts += "; includeSubDomains"
		}
	}
	return m
}

func (m *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range m.static {
			dst[k] = v
		}
		if m.hsts != "" && (r.TLS != nil || m.httpsOnly) {
			dst.Set("Strict-Transport-Security", m.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers cache embedded assets for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", maxAge)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NoStore marks responses as uncacheable. Pages showing balances use it.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
