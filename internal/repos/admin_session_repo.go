package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AdminSessionRepo holds the admin console flag. The cookie carries only the row id.
type AdminSessionRepo struct{ db *sqlx.DB }

func NewAdminSessionRepo(db *sqlx.DB) *AdminSessionRepo { return &AdminSessionRepo{db: db} }

func (r *AdminSessionRepo) Create(ctx context.Context, subject string, ttl time.Duration) (string, error) {
	id := uuid.NewString()
	at := now()
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO admin_sessions(id, subject, created_at, expires_at) VALUES(?,?,?,?)`),
		id, subject, at, at.Add(ttl))
	if err != nil {
		return "", err
	}
	return id, nil
}

// Subject returns who opened the session, or "" when it is unknown or expired.
func (r *AdminSessionRepo) Subject(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	var subject string
	err := r.db.GetContext(ctx, &subject, r.db.Rebind(`
		SELECT subject FROM admin_sessions WHERE id = ? AND expires_at > ?`), id, now())
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return subject, err
}

func (r *AdminSessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM admin_sessions WHERE id = ?`), id)
	return err
}
