// Package cart holds a shopper's cart: ordered lines keyed by product id,
// written through to durable storage after every mutation.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/sabowaryan/sabowaryantech/internal/catalog"
	"github.com/sabowaryan/sabowaryantech/internal/persist"
	"github.com/sabowaryan/sabowaryantech/internal/platform/metrics"
	"github.com/shopspring/decimal"
)

const storeName = "cart"

// Line is one product in the cart. Display fields are copied from the product
// when the line is created so later catalog changes do not alter the cart.
type Line struct {
	ProductID string          `json:"productId" validate:"required,max=64"`
	Name      string          `json:"name"      validate:"required"`
	Price     decimal.Decimal `json:"price"     validate:"gte=0"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"  validate:"gte=1"`
}

// Total is price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineFromProduct builds a line for p with the given quantity.
func LineFromProduct(p catalog.Product, quantity int) Line {
	return Line{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image(),
		Quantity:  quantity,
	}
}

// snapshot is the persisted form of the cart.
type snapshot struct {
	Items []Line `json:"items"`
}

// Summary is a consistent view of the cart taken under one lock.
type Summary struct {
	Lines      []Line
	TotalPrice decimal.Decimal
	ItemCount  int
}

// Store is a mutex-guarded cart. Every line has Quantity >= 1 and product ids are unique.
type Store struct {
	mu    sync.RWMutex
	lines []Line
	// gens holds, per line, the generation of its last explicit quantity.
	// It changes when a line is created or set, never on increments.
	gens    map[string]uint64
	seq     uint64
	repo    persist.Repository
	key     string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a Store and hydrates it from repo. A missing or unreadable blob
// yields an empty cart.
func New(ctx context.Context, repo persist.Repository, key string, logger *slog.Logger, m *metrics.Metrics) *Store {
	s := &Store{
		gens:    make(map[string]uint64),
		repo:    repo,
		key:     key,
		logger:  logger.With("component", "cart", "key", key),
		metrics: m,
	}
	s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) {
	var snap snapshot
	if err := persist.LoadJSON(ctx, s.repo, s.key, &snap); err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			s.logger.WarnContext(ctx, "Failed to restore cart, starting empty", "error", err)
			s.metrics.PersistFailure(storeName, "load")
		}
		return
	}
	for _, line := range snap.Items {
		if line.ProductID == "" || line.Quantity < 1 || s.index(line.ProductID) >= 0 {
			s.logger.WarnContext(ctx, "Dropping invalid stored cart line", "product_id", line.ProductID, "quantity", line.Quantity)
			continue
		}
		s.lines = append(s.lines, line)
		s.touch(line.ProductID)
	}
}

func (s *Store) touch(id string) uint64 {
	s.seq++
	s.gens[id] = s.seq
	return s.seq
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.lines, func(l Line) bool { return l.ProductID == id })
}

// commit persists the current lines. Callers hold the write lock, so stored
// blobs follow mutation order. A failed write is logged and the mutation stands.
func (s *Store) commit(ctx context.Context, op string) {
	s.metrics.Mutation(storeName, op)
	if err := persist.SaveJSON(ctx, s.repo, s.key, snapshot{Items: s.lines}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist cart", "op", op, "error", err)
		s.metrics.PersistFailure(storeName, "save")
	}
}

// AddItem adds quantity units of p. An existing line is incremented. A quantity
// below 1 adds a single unit.
func (s *Store) AddItem(ctx context.Context, p catalog.Product, quantity int) {
	s.add(ctx, p, quantity)
}

// add returns the line generation and the resulting line quantity.
func (s *Store) add(ctx context.Context, p catalog.Product, quantity int) (uint64, int) {
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(p.ID)
	if i >= 0 {
		s.lines[i].Quantity += quantity
	} else {
		s.lines = append(s.lines, LineFromProduct(p, quantity))
		i = len(s.lines) - 1
		s.touch(p.ID)
	}
	s.commit(ctx, "add")
	return s.gens[p.ID], s.lines[i].Quantity
}

// RemoveItem deletes the line for id. Removing a missing line does nothing.
func (s *Store) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return
	}
	s.lines = slices.Delete(s.lines, i, i+1)
	delete(s.gens, id)
	s.commit(ctx, "remove")
}

// UpdateQuantity sets the quantity of the line for id. A quantity <= 0 removes
// the line. Updating a missing line does nothing.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) {
	if quantity <= 0 {
		s.RemoveItem(ctx, id)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return
	}
	s.lines[i].Quantity = quantity
	s.touch(id)
	s.commit(ctx, "update")
}

// release takes quantity units back out of the line for id, removing the line
// when nothing is left. It does nothing and returns false when the line was
// removed or given an explicit quantity after generation gen.
func (s *Store) release(ctx context.Context, id string, quantity int, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 || s.gens[id] != gen {
		return false
	}
	if left := s.lines[i].Quantity - quantity; left > 0 {
		s.lines[i].Quantity = left
	} else {
		s.lines = slices.Delete(s.lines, i, i+1)
		delete(s.gens, id)
	}
	s.commit(ctx, "release")
	return true
}

// Clear empties the cart and deletes its stored blob.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	clear(s.gens)
	s.metrics.Mutation(storeName, "clear")
	if err := s.repo.Delete(ctx, s.key); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete stored cart", "error", err)
		s.metrics.PersistFailure(storeName, "delete")
	}
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines)
}

// Contains reports whether the cart holds a line for id.
func (s *Store) Contains(id string) bool {
	_, ok := s.Quantity(id)
	return ok
}

// Quantity returns the quantity held for id.
func (s *Store) Quantity(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.lines[i].Quantity, true
	}
	return 0, false
}

// Snapshot returns the lines with their total price and item count, all read
// under the same lock.
func (s *Store) Snapshot() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		Lines:      slices.Clone(s.lines),
		TotalPrice: totalPrice(s.lines),
		ItemCount:  itemCount(s.lines),
	}
}

// TotalPrice sums price times quantity over all lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalPrice(s.lines)
}

// ItemCount sums the quantities of all lines.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return itemCount(s.lines)
}

func totalPrice(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

func itemCount(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}
