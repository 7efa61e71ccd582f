package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"portfel/internal/auth"
	"portfel/internal/core"
	"portfel/internal/services"
)

var userMessages = []struct {
	err error
	msg string
}{
	{core.ErrInvalidAmount, "Enter an amount greater than zero with at most two decimals."},
	{core.ErrInvalidKind, "Choose expense or income."},
	{core.ErrInvalidPeriod, "Choose weekly, monthly or yearly."},
	{core.ErrInvalidDate, "Enter a valid date."},
	{core.ErrEmptyName, "The name cannot be empty."},
	{core.ErrNameTooLong, "The name is too long."},
	{core.ErrMissingBudget, "Choose a sub-budget."},
	{core.ErrMissingCategory, "Choose a category."},
	{core.ErrSameBudget, "Choose two different sub-budgets."},
	{core.ErrTransferLeg, "Transfers can only be deleted as a whole."},
	{core.ErrNotTransfer, "That transaction is not a transfer."},
	{core.ErrSystemCategory, "Transfer categories cannot be changed."},
	{core.ErrDuplicateCategory, "A category with that name already exists."},
	{core.ErrReservedCategory, "That name is used for transfers. Choose another one."},
	{core.ErrCategoryInUse, "The category is still used by transactions or cyclic transactions."},
	{core.ErrBudgetInUse, "The sub-budget still has transactions or cyclic transactions."},
	{core.ErrLastBudget, "A household needs at least one sub-budget."},
	{core.ErrEmailTaken, "That email is already registered."},
	{core.ErrInvalidEmail, "Enter a valid email address."},
	{core.ErrWeakPassword, "The password must be at least 8 characters."},
	{core.ErrBadCredentials, "Wrong email or password."},
	{core.ErrNoHousehold, "Your account has no household."},
	{core.ErrForbidden, "Not found."},
	{core.ErrNotFound, "Not found."},
	{services.ErrHouseholdNameRequired, "Enter a household name or an invite code."},
	{services.ErrBadInvite, "That invite code is not valid."},
	{auth.ErrExpiredToken, "The link has expired. Request a new one."},
	{auth.ErrInvalidToken, "The link is not valid. Request a new one."},
}

// userMessage returns the text shown to the user for a domain error.
func userMessage(err error) string {
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Something went wrong. Please try again."
}

// isMissing reports errors a GET page answers with 404. Records of other
// households are reported as missing too.
func isMissing(err error) bool {
	return errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrForbidden)
}

// pathID parses a positive numeric path value.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// backTo returns the local path posted as "next", or fallback. Absolute and
// scheme-relative URLs are ignored.
func backTo(r *http.Request, fallback string) string {
	next := r.PostFormValue("next")
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
