package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"portfel/internal/core"
)

// Session is a logged-in browser. ActiveBudgetID is zero when no sub-budget
// has been selected yet.
type Session struct {
	TokenHash      string
	UserID         int64
	ActiveBudgetID int64
	ExpiresAt      time.Time
}

func (q *Queries) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES (?, ?, ?)`,
		name, email, passwordHash)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

const selectUser = `SELECT id, name, email, password_hash FROM users`

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	return u, err
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id))
	if err != nil {
		return core.User{}, notFound(err, "user")
	}
	return u, nil
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, selectUser+` WHERE email = ?`, email))
	if err != nil {
		return core.User{}, notFound(err, "user")
	}
	return u, nil
}

func (q *Queries) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (q *Queries) CreateHousehold(ctx context.Context, name string, ownerID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO households (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return 0, fmt.Errorf("insert household: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetHousehold(ctx context.Context, id int64) (core.Household, error) {
	var h core.Household
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id FROM households WHERE id = ?`, id).
		Scan(&h.ID, &h.Name, &h.OwnerID)
	if err != nil {
		return core.Household{}, notFound(err, "household")
	}
	return h, nil
}

// ListHouseholdIDs returns the id of every household, in creation order.
func (q *Queries) ListHouseholdIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id FROM households ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) AddMember(ctx context.Context, m core.Member) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, is_admin) VALUES (?, ?, ?)`,
		m.HouseholdID, m.UserID, boolArg(m.IsAdmin))
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetMembership returns the user's first household membership.
func (q *Queries) GetMembership(ctx context.Context, userID int64) (core.Member, error) {
	var m core.Member
	err := q.db.QueryRowContext(ctx,
		`SELECT household_id, user_id, is_admin FROM household_members
		 WHERE user_id = ? ORDER BY household_id LIMIT 1`, userID).
		Scan(&m.HouseholdID, &m.UserID, &m.IsAdmin)
	if err != nil {
		return core.Member{}, notFound(err, "membership")
	}
	return m, nil
}

func (q *Queries) CreateSession(ctx context.Context, s Session) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, active_budget_id, expires_at) VALUES (?, ?, ?, ?)`,
		s.TokenHash, s.UserID, sql.NullInt64{Int64: s.ActiveBudgetID, Valid: s.ActiveBudgetID > 0}, s.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (q *Queries) GetSession(ctx context.Context, tokenHash string) (Session, error) {
	var (
		s       Session
		active  sql.NullInt64
		expires int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, active_budget_id, expires_at FROM sessions WHERE token_hash = ?`,
		tokenHash).Scan(&s.TokenHash, &s.UserID, &active, &expires)
	if err != nil {
		return Session{}, notFound(err, "session")
	}
	s.ActiveBudgetID = active.Int64
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	return s, nil
}

func (q *Queries) SetSessionBudget(ctx context.Context, tokenHash string, budgetID int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE sessions SET active_budget_id = ? WHERE token_hash = ?`,
		sql.NullInt64{Int64: budgetID, Valid: budgetID > 0}, tokenHash)
	if err != nil {
		return fmt.Errorf("update session budget: %w", err)
	}
	return nil
}

func (q *Queries) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions logs a user out everywhere.
func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
