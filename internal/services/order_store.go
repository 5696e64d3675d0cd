package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"techypad/internal/domain"
	applog "techypad/internal/log"
	"techypad/internal/realtime"
)

// OrderTable is the remote orders table: select, insert and patch, no delete.
type OrderTable interface {
	SelectAll(ctx context.Context) ([]domain.Order, error)
	SelectByEmail(ctx context.Context, email string) ([]domain.Order, error)
	SelectByID(ctx context.Context, id string) (*domain.Order, error)
	InsertOne(ctx context.Context, o domain.Order) (*domain.Order, error)
	UpdateByID(ctx context.Context, id string, p domain.OrderPatch) (*domain.Order, error)
}

// OrderStore is one view's copy of the orders: the full list and the list
// belonging to a single e-mail. Stores never share their lists; each mounted
// store follows the change feed on its own.
//
// A row from a fetch or an event replaces the local copy only when its
// updated_at is not older than the local one.
type OrderStore struct {
	table OrderTable
	feed  realtime.Feed

	mu      sync.Mutex
	email   string
	all     []domain.Order
	mine    []domain.Order
	gen     uint64
	touched map[string]uint64
	cancel  func()
	changed chan struct{}
}

func NewOrderStore(table OrderTable, feed realtime.Feed) *OrderStore {
	return &OrderStore{
		table:   table,
		feed:    feed,
		touched: map[string]uint64{},
		changed: make(chan struct{}, 1),
	}
}

// Mount starts following the orders change feed.
func (s *OrderStore) Mount() error {
	if s.feed == nil {
		return nil
	}
	s.mu.Lock()
	mounted := s.cancel != nil
	s.mu.Unlock()
	if mounted {
		return nil
	}
	cancel, err := s.feed.Subscribe(realtime.OrdersTable, s.apply)
	if err != nil {
		applog.Error(nil, "orders.subscribe.fail", err, nil)
		return err
	}
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	return nil
}

// Watch mounts the store and then loads it: the full list when email is
// empty, otherwise the list for email. Events arriving during the load are
// kept by the merge.
func (s *OrderStore) Watch(ctx context.Context, email string) error {
	s.mu.Lock()
	if !strings.EqualFold(s.email, email) {
		s.email = email
		s.mine = nil
	}
	s.mu.Unlock()
	if err := s.Mount(); err != nil {
		return err
	}
	if email == "" {
		s.FetchAll(ctx)
	} else {
		s.FetchByEmail(ctx, email)
	}
	return nil
}

func (s *OrderStore) Unmount() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Changes signals after every applied change. Signals coalesce.
func (s *OrderStore) Changes() <-chan struct{} { return s.changed }

func (s *OrderStore) All() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.all...)
}

func (s *OrderStore) Mine() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Order(nil), s.mine...)
}

// FetchAll reloads the full list, newest first. On error the prior list is kept.
func (s *OrderStore) FetchAll(ctx context.Context) []domain.Order {
	s.mu.Lock()
	start := s.gen
	s.mu.Unlock()

	rows, err := s.table.SelectAll(ctx)
	if err != nil {
		applog.Error(nil, "orders.fetch.fail", err, nil)
		return s.All()
	}

	s.mu.Lock()
	s.all = s.merge(s.all, rows, start)
	s.mu.Unlock()
	s.notify()
	return s.All()
}

// FetchByEmail reloads the list for email and keeps following it.
func (s *OrderStore) FetchByEmail(ctx context.Context, email string) []domain.Order {
	s.mu.Lock()
	if !strings.EqualFold(s.email, email) {
		s.email = email
		s.mine = nil
	}
	start := s.gen
	s.mu.Unlock()

	rows, err := s.table.SelectByEmail(ctx, email)
	if err != nil {
		applog.Error(nil, "orders.fetch_by_email.fail", err, nil)
		return s.Mine()
	}

	s.mu.Lock()
	s.mine = s.merge(s.mine, rows, start)
	s.mu.Unlock()
	s.notify()
	return s.Mine()
}

// Insert stores draft and returns the persisted row, or nil when the write failed.
func (s *OrderStore) Insert(ctx context.Context, draft domain.Order) *domain.Order {
	row, err := s.table.InsertOne(ctx, draft)
	if err != nil {
		applog.Error(nil, "orders.insert.fail", err, map[string]any{"order_id": draft.OrderID, "payment_id": draft.PaymentID})
		return nil
	}
	s.apply(realtime.Event{Type: realtime.Insert, Table: realtime.OrdersTable, New: row})
	return row
}

func (s *OrderStore) UpdateStatus(ctx context.Context, id string, st domain.OrderStatus) bool {
	if !st.Valid() {
		return false
	}
	return s.update(ctx, id, domain.OrderPatch{OrderStatus: &st})
}

func (s *OrderStore) UpdateTrackingLink(ctx context.Context, id, link string) bool {
	return s.update(ctx, id, domain.OrderPatch{TrackingLink: &link})
}

func (s *OrderStore) Cancel(ctx context.Context, id string) bool {
	return s.UpdateStatus(ctx, id, domain.StatusCancelled)
}

func (s *OrderStore) update(ctx context.Context, id string, p domain.OrderPatch) bool {
	row, err := s.table.UpdateByID(ctx, id, p)
	if err != nil {
		applog.Error(nil, "orders.update.fail", err, map[string]any{"id": id})
		return false
	}
	s.apply(realtime.Event{Type: realtime.Update, Table: realtime.OrdersTable, New: row})
	return true
}

func (s *OrderStore) apply(ev realtime.Event) {
	row := ev.Row()
	if row == nil || row.ID == "" {
		return
	}

	s.mu.Lock()
	s.gen++
	s.touched[row.ID] = s.gen
	var changed bool
	switch ev.Type {
	case realtime.Insert:
		changed = s.insertLocked(*row)
	case realtime.Update:
		changed = s.upsertLocked(*row)
	case realtime.Delete:
		changed = s.removeLocked(row.ID)
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *OrderStore) ownsLocked(o domain.Order) bool {
	return s.email != "" && strings.EqualFold(o.CustomerEmail, s.email)
}

func (s *OrderStore) insertLocked(o domain.Order) bool {
	changed := false
	if indexOf(s.all, o.ID) < 0 {
		s.all = sortNewest(append(s.all, o))
		changed = true
	}
	if s.ownsLocked(o) && indexOf(s.mine, o.ID) < 0 {
		s.mine = sortNewest(append(s.mine, o))
		changed = true
	}
	return changed
}

func (s *OrderStore) upsertLocked(o domain.Order) bool {
	var changed bool
	s.all, changed = upsert(s.all, o)
	if s.ownsLocked(o) {
		var c bool
		s.mine, c = upsert(s.mine, o)
		changed = changed || c
	}
	return changed
}

func (s *OrderStore) removeLocked(id string) bool {
	changed := false
	if i := indexOf(s.all, id); i >= 0 {
		s.all = append(s.all[:i], s.all[i+1:]...)
		changed = true
	}
	if i := indexOf(s.mine, id); i >= 0 {
		s.mine = append(s.mine[:i], s.mine[i+1:]...)
		changed = true
	}
	return changed
}

// merge reconciles fetched rows with local. Local rows missing from the fetch
// survive only when an event touched them after the fetch started.
func (s *OrderStore) merge(local, fetched []domain.Order, start uint64) []domain.Order {
	out := make([]domain.Order, 0, len(fetched))
	seen := make(map[string]bool, len(fetched))
	for _, f := range fetched {
		seen[f.ID] = true
		if i := indexOf(local, f.ID); i >= 0 && local[i].UpdatedAt.After(f.UpdatedAt) {
			out = append(out, local[i])
			continue
		}
		out = append(out, f)
	}
	for _, l := range local {
		if !seen[l.ID] && s.touched[l.ID] > start {
			out = append(out, l)
		}
	}
	return sortNewest(out)
}

func (s *OrderStore) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func upsert(list []domain.Order, o domain.Order) ([]domain.Order, bool) {
	i := indexOf(list, o.ID)
	if i < 0 {
		return sortNewest(append(list, o)), true
	}
	if o.UpdatedAt.Before(list[i].UpdatedAt) {
		return list, false
	}
	list[i] = o
	return list, true
}

func indexOf(list []domain.Order, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func sortNewest(list []domain.Order) []domain.Order {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].OrderID > list[j].OrderID
	})
	return list
}
