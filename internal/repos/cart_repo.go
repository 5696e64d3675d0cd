package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"techypad/internal/domain"
)

// CartRepo stores the single cart line of each browser session.
type CartRepo struct{ db *sqlx.DB }

func NewCartRepo(db *sqlx.DB) *CartRepo { return &CartRepo{db: db} }

// Load returns the session's line, or nil when the cart is empty.
func (r *CartRepo) Load(ctx context.Context, sessionID string) (*domain.CartItem, error) {
	var it domain.CartItem
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`
		SELECT product_id, name, price, quantity, image
		FROM cart_items WHERE session_id = ?`), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Save replaces the session's line; a nil item empties the cart.
func (r *CartRepo) Save(ctx context.Context, sessionID string, it *domain.CartItem) error {
	if it == nil {
		return r.Delete(ctx, sessionID)
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO cart_items(session_id, product_id, name, price, quantity, image, updated_at)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(session_id) DO UPDATE SET
		  product_id = excluded.product_id,
		  name = excluded.name,
		  price = excluded.price,
		  quantity = excluded.quantity,
		  image = excluded.image,
		  updated_at = excluded.updated_at
	`), sessionID, it.ID, it.Name, it.Price, it.Quantity, it.Image, now())
	return err
}

func (r *CartRepo) Delete(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM cart_items WHERE session_id = ?`), sessionID)
	return err
}
