package repos

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	applog "techypad/internal/log"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// OpenDB connects and applies the schema for the driver's dialect.
// Queries elsewhere use "?" placeholders and db.Rebind.
func OpenDB(driver, dsn string) (*sqlx.DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// :memory: databases are per-connection
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db, driver); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB, driver string) error {
	schema := sqliteSchema
	if driver == DriverPostgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";\n") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const sqliteSchema = `
PRAGMA foreign_keys = ON;

-- Identity
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  roles TEXT NOT NULL DEFAULT '',
  confirm_token TEXT,
  confirmed_at DATETIME,
  created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_nocase ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS auth_sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL,
  revoked_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(user_id);

-- Cart (at most one line per browser session)
CREATE TABLE IF NOT EXISTS cart_items(
  session_id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price INTEGER NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  image TEXT NOT NULL DEFAULT '',
  updated_at DATETIME NOT NULL
);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  zip_code TEXT NOT NULL,
  country TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_price INTEGER NOT NULL CHECK (product_price >= 0),
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  total_amount INTEGER NOT NULL CHECK (total_amount >= 0),
  payment_id TEXT NOT NULL DEFAULT '',
  payment_status TEXT NOT NULL,
  order_status TEXT NOT NULL CHECK (order_status IN ('pending','confirmed','shipped','delivered','cancelled')),
  tracking_link TEXT,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(LOWER(customer_email));

-- Local persisted state
CREATE TABLE IF NOT EXISTS ordered_users(
  email TEXT PRIMARY KEY,
  created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_sessions(
  id TEXT PRIMARY KEY,
  subject TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  roles TEXT NOT NULL DEFAULT '',
  confirm_token TEXT,
  confirmed_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_nocase ON users(LOWER(email));

CREATE TABLE IF NOT EXISTS auth_sessions(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  created_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  revoked_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_user ON auth_sessions(user_id);

CREATE TABLE IF NOT EXISTS cart_items(
  session_id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price BIGINT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  image TEXT NOT NULL DEFAULT '',
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  zip_code TEXT NOT NULL,
  country TEXT NOT NULL,
  product_name TEXT NOT NULL,
  product_price BIGINT NOT NULL CHECK (product_price >= 0),
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  total_amount BIGINT NOT NULL CHECK (total_amount >= 0),
  payment_id TEXT NOT NULL DEFAULT '',
  payment_status TEXT NOT NULL,
  order_status TEXT NOT NULL CHECK (order_status IN ('pending','confirmed','shipped','delivered','cancelled')),
  tracking_link TEXT,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_orders_email ON orders(LOWER(customer_email));

CREATE TABLE IF NOT EXISTS ordered_users(
  email TEXT PRIMARY KEY,
  created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_sessions(
  id TEXT PRIMARY KEY,
  subject TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL
);
`

// SeedDemoUsers ensures one customer and one operator account exist
// (idempotent). Both share a well-known password, so it is for local runs only.
func SeedDemoUsers(db *sqlx.DB) error {
	type u struct {
		Email, Name, Roles, Raw string
	}
	users := []u{
		{"customer@techypad.test", "Casey", "", "Passw0rd!"},
		{"ops@techypad.test", "Ops", "admin", "Passw0rd!"},
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, x := range users {
		var n int
		if err := tx.Get(&n, tx.Rebind(`SELECT COUNT(*) FROM users WHERE LOWER(email)=LOWER(?)`), x.Email); err != nil {
			return err
		}
		if n > 0 {
			continue
		}
		h, err := bcrypt.GenerateFromPassword([]byte(x.Raw), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(tx.Rebind(`
			INSERT INTO users(id,email,name,password_hash,roles,confirmed_at,created_at)
			VALUES(?,?,?,?,?,?,?)
		`), uuid.NewString(), x.Email, x.Name, string(h), x.Roles, now, now); err != nil {
			return err
		}
		applog.Info(nil, "seed.user", map[string]any{"email": x.Email})
	}
	return tx.Commit()
}
