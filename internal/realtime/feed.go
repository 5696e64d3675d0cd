// Package realtime carries row change notifications for the orders table
// to every mounted live view.
package realtime

import (
	"context"

	"techypad/internal/domain"
)

type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

const OrdersTable = "orders"

// Event is one change to a row. New is nil for DELETE, Old is nil for INSERT.
type Event struct {
	Type  EventType     `json:"eventType"`
	Table string        `json:"table"`
	New   *domain.Order `json:"new,omitempty"`
	Old   *domain.Order `json:"old,omitempty"`
}

// Row returns the row image the event is about.
func (e Event) Row() *domain.Order {
	if e.New != nil {
		return e.New
	}
	return e.Old
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Feed interface {
	Publisher
	// Subscribe delivers events for table to fn in publish order until cancel is called.
	Subscribe(table string, fn func(Event)) (cancel func(), err error)
}
