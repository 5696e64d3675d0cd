package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/santhosh-tekuri/jsonschema/v5"

	applog "techypad/internal/log"
)

const DefaultChannel = "orders-changes"

const eventSchemaURL = "https://techypad.local/schemas/change-event.schema.json"

const eventSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["eventType", "table"],
  "properties": {
    "eventType": {"enum": ["INSERT", "UPDATE", "DELETE"]},
    "table": {"type": "string", "minLength": 1},
    "new": {"$ref": "#/$defs/order"},
    "old": {"$ref": "#/$defs/order"}
  },
  "if": {"properties": {"eventType": {"const": "DELETE"}}},
  "then": {"required": ["old"]},
  "else": {"required": ["new"]},
  "$defs": {
    "order": {
      "type": "object",
      "required": ["id", "order_id", "customer_email", "order_status", "total_amount", "updated_at"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "order_id": {"type": "string"},
        "customer_email": {"type": "string"},
        "order_status": {"enum": ["pending", "confirmed", "shipped", "delivered", "cancelled"]},
        "total_amount": {"type": "integer", "minimum": 0},
        "quantity": {"type": "integer", "minimum": 1},
        "tracking_link": {"type": ["string", "null"]},
        "updated_at": {"type": "string"}
      }
    }
  }
}`

// RedisFeed publishes events on a Redis pub/sub channel so several processes
// share one change stream. Received payloads are schema-checked before they
// reach local subscribers.
type RedisFeed struct {
	client  *redis.Client
	channel string
	schema  *jsonschema.Schema
	local   *MemoryFeed

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisFeed(client *redis.Client, channel string) (*RedisFeed, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(eventSchemaURL, strings.NewReader(eventSchema)); err != nil {
		return nil, fmt.Errorf("change event schema load failed: %w", err)
	}
	schema, err := c.Compile(eventSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("change event schema compile failed: %w", err)
	}
	return &RedisFeed{client: client, channel: channel, schema: schema, local: NewMemoryFeed()}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, b).Err()
}

// Subscribe starts the shared channel reader on first use.
func (f *RedisFeed) Subscribe(table string, fn func(Event)) (func(), error) {
	if err := f.start(); err != nil {
		return nil, err
	}
	return f.local.Subscribe(table, fn)
}

func (f *RedisFeed) start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubsub != nil {
		return nil
	}
	ctx := context.Background()
	ps := f.client.Subscribe(ctx, f.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", f.channel, err)
	}
	f.pubsub = ps
	f.done = make(chan struct{})
	go f.loop(ps.Channel(), f.done)
	return nil
}

func (f *RedisFeed) loop(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range ch {
		ev, err := f.Decode([]byte(msg.Payload))
		if err != nil {
			applog.Error(nil, "realtime.decode.fail", err, map[string]any{"channel": msg.Channel})
			continue
		}
		_ = f.local.Publish(context.Background(), ev)
	}
}

// Decode validates a wire payload against the change event schema.
func (f *RedisFeed) Decode(b []byte) (Event, error) {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return Event{}, fmt.Errorf("change event: %w", err)
	}
	if err := f.schema.Validate(raw); err != nil {
		return Event{}, fmt.Errorf("change event rejected: %w", err)
	}
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("change event: %w", err)
	}
	return ev, nil
}

func (f *RedisFeed) Close() error {
	f.mu.Lock()
	ps, done := f.pubsub, f.done
	f.pubsub = nil
	f.mu.Unlock()
	if ps == nil {
		return nil
	}
	err := ps.Close()
	<-done
	return err
}
