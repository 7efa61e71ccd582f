package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"portfel/internal/auth"
	plog "portfel/internal/log"
	"portfel/internal/services"
)

const sessionCookie = "portfel_session"

type contextKey string

const (
	actorKey contextKey = "actor"
	tokenKey contextKey = "session_token"
)

// actorFrom returns the actor the auth middleware resolved for the request.
func actorFrom(ctx context.Context) (services.Actor, bool) {
	a, ok := ctx.Value(actorKey).(services.Actor)
	return a, ok
}

func sessionToken(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

func (s *Server) sessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) expiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// startSession creates a session for userID and returns the redirect that
// sets its cookie.
func (s *Server) startSession(ctx context.Context, userID int64, location string) (*RedirectBuilder, error) {
	actor, err := s.svc.Accounts.ResolveActor(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	token, err := s.sessions.Create(ctx, userID, actor.ActiveBudgetID)
	if err != nil {
		return nil, err
	}
	return s.redirect(location).Cookie(s.sessionCookie(token, s.config.SessionTTL)), nil
}

// requireActor resolves the session cookie to a services.Actor and stores it
// in the request context. Anonymous requests are sent to the login page.
func (s *Server) requireActor(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		c, err := r.Cookie(sessionCookie)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		sess, err := s.sessions.Lookup(ctx, c.Value)
		if errors.Is(err, auth.ErrNoSession) {
			s.redirect("/login").Cookie(s.expiredSessionCookie()).Write(w, r)
			return
		}
		if err != nil {
			s.serverError(w, r, "session lookup", err)
			return
		}

		actor, err := s.svc.Accounts.ResolveActor(ctx, sess.UserID, sess.ActiveBudgetID)
		if err != nil {
			plog.FromContext(ctx).WarnContext(ctx, "Session without usable household",
				plog.FieldUserID, sess.UserID, plog.FieldError, err)
			_ = s.sessions.Destroy(ctx, c.Value)
			s.redirect("/login").Cookie(s.expiredSessionCookie()).Error("Your account has no household.").Write(w, r)
			return
		}

		ctx = context.WithValue(ctx, actorKey, actor)
		ctx = plog.ContextWith(ctx, plog.FieldUserID, actor.UserID, plog.FieldHouseholdID, actor.HouseholdID)
		ctx = context.WithValue(ctx, tokenKey, c.Value)
		next(w, r.WithContext(ctx))
	}
}

// withActor adapts a handler that needs the request actor.
func (s *Server) withActor(h func(http.ResponseWriter, *http.Request, services.Actor)) http.HandlerFunc {
	return s.requireActor(func(w http.ResponseWriter, r *http.Request) {
		a, _ := actorFrom(r.Context())
		h(w, r, a)
	})
}
