package log

import (
	"io"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	out    io.Writer = os.Stdout
	logger           = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// SetOutput redirects every subsequent entry to w.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	logger = zerolog.New(w).With().Timestamp().Logger()
}

type forward struct{}

func (forward) Write(p []byte) (int, error) {
	mu.RLock()
	w := out
	mu.RUnlock()
	return w.Write(p)
}

// Writer follows SetOutput, for middleware that wants a plain io.Writer.
func Writer() io.Writer { return forward{} }

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func write(level string, c *fiber.Ctx, action string, err error, fields map[string]any) {
	l := current()
	var ev *zerolog.Event
	switch level {
	case "error":
		ev = l.Error()
	case "warn":
		ev = l.Warn()
	case "info":
		ev = l.Info()
	default:
		ev = l.Log().Str("level", level)
	}
	ev = ev.Str("action", action)
	if c != nil {
		ev = ev.Str("ip", c.IP()).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode())
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			ev = ev.Str("req_id", rid)
		}
		if uid, ok := c.Locals("user_id").(string); ok && uid != "" {
			ev = ev.Str("user_id", uid)
		}
	}
	if err != nil {
		ev = ev.Str("err", err.Error())
	}
	if len(fields) > 0 {
		ev = ev.Interface("fields", fields)
	}
	ev.Send()
}

func Info(c *fiber.Ctx, action string, fields map[string]any) { write("info", c, action, nil, fields) }
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write("audit", c, action, nil, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write("warn", c, action, nil, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write("error", c, action, err, fields)
}
