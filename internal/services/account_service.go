package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"

	"portfel/internal/auth"
	"portfel/internal/core"
	"portfel/internal/defaults"
	"portfel/internal/notify"
	"portfel/internal/storage"
)

// AccountService handles registration, login, households and password resets.
type AccountService struct {
	storage  *storage.SQLiteRepository
	signer   *auth.Signer
	mailer   notify.Sender
	defaults defaults.Household
	baseURL  string
}

func NewAccountService(storage *storage.SQLiteRepository, signer *auth.Signer, mailer notify.Sender, d defaults.Household, baseURL string) *AccountService {
	if mailer == nil {
		mailer = notify.LogSender{}
	}
	return &AccountService{
		storage:  storage,
		signer:   signer,
		mailer:   mailer,
		defaults: d,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// RegisterRequest is the registration form. With an InviteCode the user joins
// that household; otherwise HouseholdName is required and a new household is
// created with default data.
type RegisterRequest struct {
	Name          string
	Email         string
	Password      string
	HouseholdName string
	InviteCode    string
}

// ErrHouseholdNameRequired is returned when registering without an invite code or household name.
var ErrHouseholdNameRequired = errors.New("household name required")

// ErrBadInvite is returned for an invite code that does not verify.
var ErrBadInvite = errors.New("invalid invite code")

func normalizeEmail(s string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || addr.Name != "" {
		return "", core.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// Register creates a user and attaches them to a household.
func (s *AccountService) Register(ctx context.Context, r RegisterRequest) (core.User, error) {
	email, err := normalizeEmail(r.Email)
	if err != nil {
		return core.User{}, err
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return core.User{}, core.ErrEmptyName
	}

	joinID := int64(0)
	if code := strings.TrimSpace(r.InviteCode); code != "" {
		joinID, err = s.HouseholdFromInvite(code)
		if err != nil {
			return core.User{}, err
		}
	} else if strings.TrimSpace(r.HouseholdName) == "" {
		return core.User{}, ErrHouseholdNameRequired
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return core.User{}, err
	}

	u := core.User{Name: name, Email: email, PasswordHash: hash}
	err = s.storage.InTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetUserByEmail(ctx, email); err == nil {
			return core.ErrEmailTaken
		} else if !errors.Is(err, core.ErrNotFound) {
			return err
		}

		u.ID, err = q.CreateUser(ctx, u.Name, u.Email, u.PasswordHash)
		if storage.IsUniqueViolation(err) {
			return core.ErrEmailTaken
		}
		if err != nil {
			return err
		}

		if joinID > 0 {
			if _, err := q.GetHousehold(ctx, joinID); err != nil {
				return ErrBadInvite
			}
			return q.AddMember(ctx, core.Member{HouseholdID: joinID, UserID: u.ID})
		}
		return s.createHousehold(ctx, q, strings.TrimSpace(r.HouseholdName), u.ID)
	})
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "joined_household", joinID)
	return u, nil
}

func (s *AccountService) createHousehold(ctx context.Context, q *storage.Queries, name string, ownerID int64) error {
	hid, err := q.CreateHousehold(ctx, name, ownerID)
	if err != nil {
		return err
	}
	if err := q.AddMember(ctx, core.Member{HouseholdID: hid, UserID: ownerID, IsAdmin: true}); err != nil {
		return err
	}
	if _, err := q.CreateSubBudget(ctx, hid, s.defaults.SubBudget); err != nil {
		return err
	}
	for _, dc := range s.defaults.Categories {
		c, err := dc.Core(hid)
		if err != nil {
			return err
		}
		if _, err := q.CreateCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// Authenticate checks an email and password pair.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (core.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return core.User{}, core.ErrBadCredentials
	}
	u, err := s.storage.Queries().GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, core.ErrBadCredentials
	}
	if err != nil {
		return core.User{}, err
	}
	ok, err := auth.CheckPassword(u.PasswordHash, password)
	if err != nil {
		return core.User{}, err
	}
	if !ok {
		return core.User{}, core.ErrBadCredentials
	}
	return u, nil
}

// ResolveActor builds the request actor for a user. When activeBudgetID is
// zero or no longer valid the household's first sub-budget is used.
func (s *AccountService) ResolveActor(ctx context.Context, userID, activeBudgetID int64) (Actor, error) {
	q := s.storage.Queries()
	m, err := q.GetMembership(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return Actor{}, core.ErrNoHousehold
	}
	if err != nil {
		return Actor{}, err
	}

	a := Actor{UserID: userID, HouseholdID: m.HouseholdID, IsAdmin: m.IsAdmin}
	if activeBudgetID > 0 {
		if _, err := ownBudget(ctx, q, a, activeBudgetID); err == nil {
			a.ActiveBudgetID = activeBudgetID
			return a, nil
		}
	}

	budgets, err := q.ListSubBudgets(ctx, m.HouseholdID)
	if err != nil {
		return Actor{}, err
	}
	if len(budgets) > 0 {
		a.ActiveBudgetID = budgets[0].ID
	}
	return a, nil
}

// User returns the user behind an actor.
func (s *AccountService) User(ctx context.Context, a Actor) (core.User, error) {
	return s.storage.Queries().GetUser(ctx, a.UserID)
}

// Household returns the actor's household.
func (s *AccountService) Household(ctx context.Context, a Actor) (core.Household, error) {
	return s.storage.Queries().GetHousehold(ctx, a.HouseholdID)
}

// InviteCode returns the code other users register with to join the household.
func (s *AccountService) InviteCode(householdID int64) string {
	return s.signer.Sign(auth.SaltInvite, strconv.FormatInt(householdID, 10))
}

// HouseholdFromInvite returns the household an invite code points to.
func (s *AccountService) HouseholdFromInvite(code string) (int64, error) {
	payload, err := s.signer.Verify(auth.SaltInvite, code, 0)
	if err != nil {
		return 0, ErrBadInvite
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadInvite
	}
	return id, nil
}

// RequestPasswordReset mails a reset link when the address belongs to a
// user. Unknown addresses are ignored silently so the form cannot be used to
// probe for accounts.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil
	}
	u, err := s.storage.Queries().GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Password reset requested for unknown address")
		return nil
	}
	if err != nil {
		return err
	}

	token := s.signer.Sign(auth.SaltEmailConfirm, u.Email)
	msg := notify.Message{
		To:      u.Email,
		Subject: "Reset your portfel password",
		Body: fmt.Sprintf("Hello %s,\n\nopen the link below within one hour to choose a new password:\n\n%s/reset-password/%s\n\nIf you did not ask for this, ignore this message.\n",
			u.Name, s.baseURL, token),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	slog.InfoContext(ctx, "Password reset mail queued", "user_id", u.ID)
	return nil
}

// CheckResetToken returns the address a reset token was issued for.
func (s *AccountService) CheckResetToken(token string) (string, error) {
	return s.signer.Verify(auth.SaltEmailConfirm, token, auth.ResetTokenMaxAge)
}

// ResetPassword sets a new password for the user a valid token was issued
// to and returns that user's id.
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) (int64, error) {
	email, err := s.CheckResetToken(token)
	if err != nil {
		return 0, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return 0, err
	}

	q := s.storage.Queries()
	u, err := q.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("reset password: %w", err)
	}
	if err := q.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Password reset", "user_id", u.ID)
	return u.ID, nil
}
