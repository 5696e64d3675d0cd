package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	applog "techypad/internal/log"
)

type Config struct {
	Port         string
	DBDriver     string
	DBDSN        string
	LogFile      string
	TemplatesDir string
	StaticDir    string
	CookieSecure bool

	JWTSecret           string
	SessionTTL          time.Duration
	RequireConfirmation bool

	AdminEmail        string
	AdminPasswordHash string
	SeedDemoUsers     bool

	SalePrice int64

	PaymentProvider   string
	RazorpayKeyID     string
	RazorpayKeySecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SupportEmail string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		applog.Error(nil, "config.dotenv.fail", err, nil)
	}

	cfg := Config{
		Port:         env("PORT", "8080"),
		DBDriver:     env("DB_DRIVER", "sqlite"),
		DBDSN:        env("DB_DSN", "techypad.db"),
		LogFile:      env("LOG_FILE", "./techypad.log"),
		TemplatesDir: env("TEMPLATES_DIR", "./web/templates"),
		StaticDir:    env("STATIC_DIR", "./web/static"),
		CookieSecure: envBool("COOKIE_SECURE", false),

		JWTSecret:           env("JWT_SECRET", ""),
		SessionTTL:          envDuration("SESSION_TTL", 7*24*time.Hour),
		RequireConfirmation: envBool("AUTH_REQUIRE_CONFIRMATION", true),

		AdminEmail:        env("ADMIN_EMAIL", ""),
		AdminPasswordHash: env("ADMIN_PASSWORD_HASH", ""),
		SeedDemoUsers:     envBool("SEED_DEMO_USERS", false),

		SalePrice: int64(envInt("PRODUCT_SALE_PRICE", 6499)),

		PaymentProvider:   strings.ToLower(env("PAYMENT_PROVIDER", "sandbox")),
		RazorpayKeyID:     env("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret: env("RAZORPAY_KEY_SECRET", ""),

		RedisAddr:     env("REDIS_ADDR", ""),
		RedisPassword: env("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		SupportEmail: env("SUPPORT_EMAIL", "support@techypad.in"),
	}
	if cfg.JWTSecret == "" {
		applog.Security(nil, "config.jwt_secret.default", nil)
		cfg.JWTSecret = "techypad-dev-secret"
	}

	applog.Info(nil, "config.loaded", map[string]any{
		"port":             cfg.Port,
		"db_driver":        cfg.DBDriver,
		"db_dsn":           cfg.DBDSN,
		"log_file":         cfg.LogFile,
		"payment_provider": cfg.PaymentProvider,
		"razorpay_key_id":  mask(cfg.RazorpayKeyID),
		"redis_addr":       cfg.RedisAddr,
		"admin_email":      cfg.AdminEmail,
		"seed_demo_users":  cfg.SeedDemoUsers,
	})
	return cfg
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(env(key, ""))
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	b, err := strconv.ParseBool(env(key, ""))
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(env(key, ""))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func mask(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
