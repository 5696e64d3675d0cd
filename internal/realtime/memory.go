package realtime

import (
	"context"
	"sort"
	"sync"
)

type subscriber struct {
	table string
	fn    func(Event)
}

// MemoryFeed fans events out to in-process subscribers synchronously.
type MemoryFeed struct {
	mu   sync.RWMutex
	next int
	subs map[int]subscriber
}

func NewMemoryFeed() *MemoryFeed { return &MemoryFeed{subs: make(map[int]subscriber)} }

func (f *MemoryFeed) Publish(ctx context.Context, ev Event) error {
	f.mu.RLock()
	targets := make([]int, 0, len(f.subs))
	for id, s := range f.subs {
		if s.table == ev.Table {
			targets = append(targets, id)
		}
	}
	f.mu.RUnlock()

	sort.Ints(targets)
	for _, id := range targets {
		f.mu.RLock()
		s, ok := f.subs[id]
		f.mu.RUnlock()
		if ok {
			s.fn(ev)
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(table string, fn func(Event)) (func(), error) {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = subscriber{table: table, fn: fn}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}, nil
}

// Subscribers is the number of live subscriptions.
func (f *MemoryFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
