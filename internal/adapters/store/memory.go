package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mikey/vendor-order-intake/internal/core"
	"go.uber.org/zap"
)

type orderKey struct {
	vendorCode  string
	orderNumber string
}

// MemoryStore is an in-process core.Store guarded by a single mutex
type MemoryStore struct {
	mu     sync.Mutex
	logger *zap.Logger
	clock  func() time.Time

	emails  map[string]core.InboundEmail
	review  []core.ReviewEntry
	catalog map[core.CatalogKey]core.CatalogEntry
	orders  map[int64]core.Order
	byKey   map[orderKey]int64
	items   map[int64]core.InventoryItem

	nextCatalogID int64
	nextOrderID   int64
	nextItemID    int64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger:  logger,
		clock:   time.Now,
		emails:  make(map[string]core.InboundEmail),
		catalog: make(map[core.CatalogKey]core.CatalogEntry),
		orders:  make(map[int64]core.Order),
		byKey:   make(map[orderKey]int64),
		items:   make(map[int64]core.InventoryItem),
	}
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) SaveEmail(ctx context.Context, email *core.InboundEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.emails[email.ID]; ok {
		return fmt.Errorf("email %s already recorded", email.ID)
	}
	m.emails[email.ID] = *email
	return nil
}

func (m *MemoryStore) UpdateEmailOutcome(ctx context.Context, email *core.InboundEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.emails[email.ID]
	if !ok {
		return core.ErrNotFound
	}
	stored.ResolvedSender = email.ResolvedSender
	stored.Classification = email.Classification
	stored.ParseStatus = email.ParseStatus
	stored.Order = email.Order
	stored.Error = email.Error
	m.emails[email.ID] = stored
	return nil
}

func (m *MemoryStore) GetEmail(ctx context.Context, id string) (*core.InboundEmail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email, ok := m.emails[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &email, nil
}

func (m *MemoryStore) Enqueue(ctx context.Context, entry *core.ReviewEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.review = append(m.review, *entry)
	return nil
}

func (m *MemoryStore) ListPending(ctx context.Context, limit int) ([]core.ReviewEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.review) {
		limit = len(m.review)
	}
	out := make([]core.ReviewEntry, limit)
	copy(out, m.review[:limit])
	return out, nil
}

func (m *MemoryStore) UpsertCatalogEntry(ctx context.Context, entry *core.CatalogEntry) (*core.CatalogEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.catalog[entry.Key]
	if !ok {
		m.nextCatalogID++
		stored := *entry
		stored.ID = m.nextCatalogID
		stored.Sightings = 1
		m.catalog[entry.Key] = stored
		return &stored, true, nil
	}

	merged := core.MergeCatalogEntry(&existing, entry)
	m.catalog[entry.Key] = merged
	return &merged, false, nil
}

func (m *MemoryStore) GetCatalogEntry(ctx context.Context, key core.CatalogKey) (*core.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.catalog[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &entry, nil
}

func (m *MemoryStore) ListCatalogEntries(ctx context.Context, vendorID int64, minConfidence int) ([]core.CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []core.CatalogEntry
	for _, entry := range m.catalog {
		if entry.Key.VendorID == vendorID && entry.Confidence >= minConfidence {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Verified != b.Verified {
			return a.Verified
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.LastSeenAt.Equal(b.LastSeenAt) {
			return a.LastSeenAt.After(b.LastSeenAt)
		}
		return a.ID < b.ID
	})
	return entries, nil
}

func (m *MemoryStore) EnsureOrder(ctx context.Context, order *core.Order) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := orderKey{order.VendorCode, order.OrderNumber}
	if id, ok := m.byKey[key]; ok {
		*order = m.orders[id]
		return false, nil
	}

	m.nextOrderID++
	order.ID = m.nextOrderID
	m.orders[order.ID] = *order
	m.byKey[key] = order.ID
	return true, nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id int64) (*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &order, nil
}

func (m *MemoryStore) FindOrder(ctx context.Context, vendorCode, orderNumber string) (*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byKey[orderKey{vendorCode, orderNumber}]
	if !ok {
		return nil, core.ErrNotFound
	}
	order := m.orders[id]
	return &order, nil
}

func (m *MemoryStore) AddInventoryItems(ctx context.Context, orderID int64, items []core.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[orderID]; !ok {
		return core.ErrNotFound
	}
	m.insertItems(orderID, items)
	m.recompute(orderID)
	return nil
}

func (m *MemoryStore) CreateOrderWithItems(ctx context.Context, order *core.Order, items []core.InventoryItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := orderKey{order.VendorCode, order.OrderNumber}
	if id, ok := m.byKey[key]; ok {
		*order = m.orders[id]
		return false, nil
	}

	m.nextOrderID++
	order.ID = m.nextOrderID
	m.orders[order.ID] = *order
	m.byKey[key] = order.ID
	m.insertItems(order.ID, items)
	m.recompute(order.ID)
	*order = m.orders[order.ID]
	return true, nil
}

func (m *MemoryStore) insertItems(orderID int64, items []core.InventoryItem) {
	for _, item := range items {
		m.nextItemID++
		item.ID = m.nextItemID
		item.OrderID = orderID
		m.items[item.ID] = item
	}
}

func (m *MemoryStore) SetItemReceived(ctx context.Context, itemID int64, received bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return core.ErrNotFound
	}
	item.Received = received
	item.UpdatedAt = m.clock()
	m.items[itemID] = item
	m.recompute(item.OrderID)
	return nil
}

func (m *MemoryStore) DeleteInventoryItem(ctx context.Context, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[itemID]
	if !ok {
		return core.ErrNotFound
	}
	delete(m.items, itemID)
	m.recompute(item.OrderID)
	return nil
}

func (m *MemoryStore) ListInventoryItems(ctx context.Context, orderID int64) ([]core.InventoryItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []core.InventoryItem
	for _, item := range m.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].LineNo != items[j].LineNo {
			return items[i].LineNo < items[j].LineNo
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (m *MemoryStore) SetTerminalStatus(ctx context.Context, orderID int64, status core.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return core.ErrNotFound
	}
	if !core.CanTransition(order.Status, status) {
		return fmt.Errorf("%w: %s to %s", core.ErrInvalidTransition, order.Status, status)
	}
	order.Status = status
	order.UpdatedAt = m.clock()
	m.orders[orderID] = order
	return nil
}

func (m *MemoryStore) RecomputeStatus(ctx context.Context, orderID int64) (core.OrderStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[orderID]; !ok {
		return "", false, core.ErrNotFound
	}
	status, changed := m.recompute(orderID)
	return status, changed, nil
}

func (m *MemoryStore) ListNonTerminalOrderIDs(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, order := range m.orders {
		if !order.Status.IsTerminal() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SetOrderStatus overwrites a stored status without any checks. Used to
// simulate rows left stale by older writers.
func (m *MemoryStore) SetOrderStatus(orderID int64, status core.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if order, ok := m.orders[orderID]; ok {
		order.Status = status
		m.orders[orderID] = order
	}
}

// recompute must be called with mu held
func (m *MemoryStore) recompute(orderID int64) (core.OrderStatus, bool) {
	order := m.orders[orderID]

	total, received := 0, 0
	for _, item := range m.items {
		if item.OrderID != orderID {
			continue
		}
		total++
		if item.Received {
			received++
		}
	}

	next := core.DeriveStatus(total, received, order.Status)
	if next == order.Status {
		return next, false
	}
	order.Status = next
	order.UpdatedAt = m.clock()
	m.orders[orderID] = order
	return next, true
}
