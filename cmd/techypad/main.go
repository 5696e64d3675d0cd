package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"techypad/internal/config"
	"techypad/internal/http/handlers"
	applog "techypad/internal/log"
	"techypad/internal/payment"
	"techypad/internal/realtime"
	"techypad/internal/repos"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			applog.Error(nil, "log.file.open.fail", err, map[string]any{"path": cfg.LogFile})
		} else {
			defer f.Close()
			applog.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		applog.Error(nil, "db.open.fail", err, nil)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.SeedDemoUsers {
		if err := repos.SeedDemoUsers(db); err != nil {
			applog.Error(nil, "db.seed.fail", err, nil)
			os.Exit(1)
		}
		applog.Security(nil, "seed.demo_users.enabled", nil)
	}

	feed, closeFeed := openFeed(cfg)
	defer closeFeed()

	deps := handlers.NewDeps(db, cfg, feed, openGateway(cfg))
	defer deps.Auth.Close()
	app := handlers.NewApp(deps)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		applog.Info(nil, "server.shutdown", nil)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			applog.Error(nil, "server.shutdown.fail", err, nil)
		}
	}()

	applog.Info(nil, "server.start", map[string]any{"port": cfg.Port})
	if err := app.Listen(":" + cfg.Port); err != nil {
		applog.Error(nil, "server.listen.fail", err, nil)
	}
}

// openFeed uses Redis pub/sub when REDIS_ADDR is set and an in-process feed otherwise.
func openFeed(cfg config.Config) (realtime.Feed, func()) {
	if cfg.RedisAddr == "" {
		return realtime.NewMemoryFeed(), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		applog.Error(nil, "redis.ping.fail", err, map[string]any{"addr": cfg.RedisAddr})
		_ = client.Close()
		return realtime.NewMemoryFeed(), func() {}
	}
	feed, err := realtime.NewRedisFeed(client, realtime.DefaultChannel)
	if err != nil {
		applog.Error(nil, "redis.feed.fail", err, nil)
		_ = client.Close()
		return realtime.NewMemoryFeed(), func() {}
	}
	applog.Info(nil, "redis.feed.ready", map[string]any{"addr": cfg.RedisAddr, "channel": realtime.DefaultChannel})
	return feed, func() {
		_ = feed.Close()
		_ = client.Close()
	}
}

func openGateway(cfg config.Config) payment.Gateway {
	if cfg.PaymentProvider == "razorpay" {
		return payment.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	}
	return payment.NewSandbox()
}
