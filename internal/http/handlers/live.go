package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"techypad/internal/domain"
	applog "techypad/internal/log"
	"techypad/internal/services"
)

const liveKeepAlive = 25 * time.Second

// streamOrders serves an event-stream of list snapshots for email, or for
// every order when email is empty. The store is unmounted when the client leaves.
func streamOrders(c *fiber.Ctx, store *services.OrderStore, email string, snapshot func() []domain.Order) error {
	if err := store.Watch(c.UserContext(), email); err != nil {
		return renderStatus(c, fiber.StatusServiceUnavailable, "notfound", fiber.Map{"Message": "Live updates are unavailable"})
	}
	requestID, _ := c.Locals("requestid").(string)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer store.Unmount()
		ping := time.NewTicker(liveKeepAlive)
		defer ping.Stop()

		if err := writeSnapshot(w, snapshot()); err != nil {
			return
		}
		for {
			select {
			case <-store.Changes():
				if err := writeSnapshot(w, snapshot()); err != nil {
					applog.Info(nil, "orders.live.closed", map[string]any{"request_id": requestID})
					return
				}
			case <-ping.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeSnapshot(w *bufio.Writer, orders []domain.Order) error {
	b, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: orders\ndata: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}
