package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sabowaryan/sabowaryantech/internal/catalog"
)

var ErrOutOfStock = errors.New("insufficient stock")

// Confirmer checks an addition after it has been applied to the cart.
type Confirmer interface {
	Confirm(ctx context.Context, productID string, quantity int) error
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, productID string, quantity int) error

func (f ConfirmFunc) Confirm(ctx context.Context, productID string, quantity int) error {
	return f(ctx, productID, quantity)
}

// StockConfirmer accepts an addition while the catalog still lists the product
// with enough stock for the whole line.
type StockConfirmer struct {
	Catalog *catalog.Catalog
}

func (c StockConfirmer) Confirm(_ context.Context, productID string, quantity int) error {
	p, err := c.Catalog.FindByID(productID)
	if err != nil {
		return err
	}
	if quantity > p.Stock {
		return fmt.Errorf("product %s: %d requested, %d available: %w", productID, quantity, p.Stock, ErrOutOfStock)
	}
	return nil
}

// Optimistic applies additions immediately and confirms them in the background.
// A rejected addition is compensated by taking the added units back out, unless
// the line was removed or set to an explicit quantity in the meantime.
type Optimistic struct {
	store     *Store
	confirmer Confirmer
	logger    *slog.Logger
	wg        sync.WaitGroup
	pending   atomic.Int64
}

// NewOptimistic wraps store.
func NewOptimistic(store *Store, confirmer Confirmer, logger *slog.Logger) *Optimistic {
	return &Optimistic{
		store:     store,
		confirmer: confirmer,
		logger:    logger.With("component", "cart-confirm"),
	}
}

// Store returns the wrapped cart.
func (o *Optimistic) Store() *Store {
	return o.store
}

// AddItem adds quantity units of p right away and starts the confirmation.
func (o *Optimistic) AddItem(ctx context.Context, p catalog.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	gen, requested := o.store.add(ctx, p, quantity)

	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	o.pending.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.pending.Add(-1)
		err := o.confirmer.Confirm(bg, p.ID, requested)
		if err == nil {
			return
		}
		if o.store.release(bg, p.ID, quantity, gen) {
			o.logger.WarnContext(bg, "Cart addition rejected, compensated", "product_id", p.ID, "quantity", quantity, "error", err)
			return
		}
		o.logger.InfoContext(bg, "Cart addition rejected after the line changed, keeping it", "product_id", p.ID, "quantity", quantity, "error", err)
	}()
}

// Pending returns the number of confirmations still running.
func (o *Optimistic) Pending() int {
	return int(o.pending.Load())
}

// Wait blocks until every pending confirmation has finished.
func (o *Optimistic) Wait() {
	o.wg.Wait()
}
