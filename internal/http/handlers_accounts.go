package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"portfel/internal/auth"
	"portfel/internal/core"
	plog "portfel/internal/log"
	"portfel/internal/services"
)

const resetRequestedMessage = "If that address is registered, a reset link is on its way."

type registerView struct {
	Name          string
	Email         string
	HouseholdName string
	InviteCode    string
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", registerView{InviteCode: r.URL.Query().Get("invite")})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/register").Error("Invalid form.").Write(w, r)
		return
	}
	req := services.RegisterRequest{
		Name:          sanitizeInput(r.PostForm.Get("name")),
		Email:         strings.TrimSpace(r.PostForm.Get("email")),
		Password:      r.PostForm.Get("password"),
		HouseholdName: sanitizeInput(r.PostForm.Get("household_name")),
		InviteCode:    strings.TrimSpace(r.PostForm.Get("invite_code")),
	}

	u, err := s.svc.Accounts.Register(r.Context(), req)
	if err != nil {
		// Keep the invite code so a retry does not lose it.
		back := "/register"
		if req.InviteCode != "" && !errors.Is(err, services.ErrBadInvite) {
			back += "?invite=" + url.QueryEscape(req.InviteCode)
		}
		s.fail(w, r, back, "register", err)
		return
	}

	rb, err := s.startSession(r.Context(), u.ID, "/")
	if err != nil {
		s.fail(w, r, "/login", "register", err)
		return
	}
	plog.FromContext(r.Context()).InfoContext(r.Context(), "User registered", plog.FieldUserID, u.ID)
	rb.Success("Welcome to portfel, " + u.Name + "!").Write(w, r)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/login").Error("Invalid form.").Write(w, r)
		return
	}
	u, err := s.svc.Accounts.Authenticate(r.Context(), r.PostForm.Get("email"), r.PostForm.Get("password"))
	if err != nil {
		if errors.Is(err, core.ErrBadCredentials) {
			plog.FromContext(r.Context()).InfoContext(r.Context(), "Login failed",
				plog.FieldOperation, plog.OpLogin,
				plog.FieldClientIP, s.securityDetector.ExtractClientIP(r))
		}
		s.fail(w, r, "/login", plog.OpLogin, err)
		return
	}

	rb, err := s.startSession(r.Context(), u.ID, "/")
	if err != nil {
		s.fail(w, r, "/login", plog.OpLogin, err)
		return
	}
	plog.FromContext(r.Context()).InfoContext(r.Context(), "User logged in", plog.FieldUserID, u.ID)
	rb.Write(w, r)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if err := s.sessions.Destroy(r.Context(), c.Value); err != nil {
			plog.FromContext(r.Context()).WarnContext(r.Context(), "Session destroy failed", plog.FieldError, err)
		}
	}
	s.redirect("/login").Cookie(s.expiredSessionCookie()).Success("Logged out.").Write(w, r)
}

func (s *Server) handleResetRequestForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "reset_request.html", nil)
}

// handleResetRequest answers the same way whether or not the address exists.
func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.redirect("/reset-password").Error("Invalid form.").Write(w, r)
		return
	}
	if err := s.svc.Accounts.RequestPasswordReset(r.Context(), r.PostForm.Get("email")); err != nil {
		plog.FromContext(r.Context()).ErrorContext(r.Context(), "Password reset request failed", plog.FieldError, err)
	}
	s.redirect("/login").Notify(NotificationInfo, resetRequestedMessage).Write(w, r)
}

func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if _, err := s.svc.Accounts.CheckResetToken(token); err != nil {
		s.redirect("/reset-password").Error(userMessage(err)).Write(w, r)
		return
	}
	s.render(w, r, "reset_password.html", struct{ Token string }{token})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if err := r.ParseForm(); err != nil {
		s.redirect("/reset-password/" + token).Error("Invalid form.").Write(w, r)
		return
	}

	userID, err := s.svc.Accounts.ResetPassword(r.Context(), token, r.PostForm.Get("password"))
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		s.redirect("/reset-password").Error(userMessage(err)).Write(w, r)
		return
	case err != nil:
		s.fail(w, r, "/reset-password/"+token, "reset_password", err)
		return
	}

	if err := s.sessions.DestroyUser(r.Context(), userID); err != nil {
		plog.FromContext(r.Context()).WarnContext(r.Context(), "Could not end old sessions", plog.FieldUserID, userID, plog.FieldError, err)
	}
	s.redirect("/login").Success("Password changed. You can log in now.").Write(w, r)
}
