package repos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
)

// OrderedUsersRepo is the persisted set of e-mails that completed a pre-order.
// E-mails are stored lower-cased.
type OrderedUsersRepo struct{ db *sqlx.DB }

func NewOrderedUsersRepo(db *sqlx.DB) *OrderedUsersRepo { return &OrderedUsersRepo{db: db} }

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func (r *OrderedUsersRepo) Add(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO ordered_users(email, created_at) VALUES(?,?)
		ON CONFLICT(email) DO NOTHING`), normEmail(email), now())
	return err
}

func (r *OrderedUsersRepo) Has(ctx context.Context, email string) (bool, error) {
	if normEmail(email) == "" {
		return false, nil
	}
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM ordered_users WHERE email = ?`), normEmail(email))
	return n > 0, err
}

// Remove reports whether the e-mail was present.
func (r *OrderedUsersRepo) Remove(ctx context.Context, email string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM ordered_users WHERE email = ?`), normEmail(email))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *OrderedUsersRepo) List(ctx context.Context) ([]string, error) {
	out := []string{}
	err := r.db.SelectContext(ctx, &out, `SELECT email FROM ordered_users ORDER BY email`)
	return out, err
}
