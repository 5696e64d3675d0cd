package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"techypad/internal/domain"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrSessionNotFound = errors.New("session not found")
)

type UserRow struct {
	ID           string         `db:"id"`
	Email        string         `db:"email"`
	Name         string         `db:"name"`
	Hash         string         `db:"password_hash"`
	Roles        string         `db:"roles"`
	ConfirmToken sql.NullString `db:"confirm_token"`
	ConfirmedAt  sql.NullTime   `db:"confirmed_at"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r UserRow) Confirmed() bool { return r.ConfirmedAt.Valid }

func (r UserRow) User() domain.User {
	u := domain.User{ID: r.ID, Email: r.Email, DisplayName: r.Name}
	for _, role := range strings.Split(r.Roles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			u.Roles = append(u.Roles, role)
		}
	}
	return u
}

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id,email,name,password_hash,roles,confirm_token,confirmed_at,created_at`

func (r *UserRepo) Create(ctx context.Context, u UserRow) error {
	var n int
	if err := r.DB.GetContext(ctx, &n, r.DB.Rebind(`SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`), u.Email); err != nil {
		return err
	}
	if n > 0 {
		return ErrEmailTaken
	}
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO users(`+userCols+`)
		VALUES(?,?,?,?,?,?,?,?)
	`), u.ID, u.Email, u.Name, u.Hash, u.Roles, u.ConfirmToken, u.ConfirmedAt, u.CreatedAt)
	return err
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*UserRow, error) {
	var u UserRow
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE LOWER(email)=LOWER(?)`), email)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*UserRow, error) {
	var u UserRow
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE id=?`), id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByConfirmToken(ctx context.Context, token string) (*UserRow, error) {
	var u UserRow
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`SELECT `+userCols+` FROM users WHERE confirm_token=?`), token)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Confirm marks the account usable and burns the confirmation token.
func (r *UserRepo) Confirm(ctx context.Context, id string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE users SET confirmed_at=?, confirm_token=NULL WHERE id=?`), at, id)
	return err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string, createdAt, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`
		INSERT INTO auth_sessions(id,user_id,created_at,expires_at)
		VALUES(?,?,?,?)
	`), sid, userID, createdAt, expiresAt)
	return err
}

// SessionUser returns the owner of a live (unrevoked, unexpired) session.
func (r *UserRepo) SessionUser(ctx context.Context, sid string, now time.Time) (*UserRow, error) {
	var u UserRow
	err := r.DB.GetContext(ctx, &u, r.DB.Rebind(`
		SELECT u.id,u.email,u.name,u.password_hash,u.roles,u.confirm_token,u.confirmed_at,u.created_at
		FROM auth_sessions s
		JOIN users u ON u.id=s.user_id
		WHERE s.id=? AND s.revoked_at IS NULL AND s.expires_at > ?`), sid, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string, at time.Time) error {
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(`UPDATE auth_sessions SET revoked_at=? WHERE id=? AND revoked_at IS NULL`), at, sid)
	return err
}
