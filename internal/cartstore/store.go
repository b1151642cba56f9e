package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/solarmart/solarmart-client/pkg/config"
	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
	"github.com/solarmart/solarmart-client/pkg/logger"
	"github.com/solarmart/solarmart-client/pkg/types"
	"github.com/solarmart/solarmart-client/pkg/validate"
)

// CartAPI is the transport behind the store.
type CartAPI interface {
	Fetch(ctx context.Context) (*types.Cart, error)
	Create(ctx context.Context, items []types.NewCartItemInput) (*types.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (*types.CartItem, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (*types.CartItem, error)
	RemoveItem(ctx context.Context, itemID string) error
}

type persistence interface {
	SaveCartSnapshot(ctx context.Context, payload []byte, initialized bool) error
	LoadCartSnapshot(ctx context.Context) ([]byte, bool, error)
}

// Store holds the single authoritative in-memory cart mirrored from the
// server. Mutations apply optimistically for responsiveness; any failed
// mutation converges back to server truth by refetching.
type Store struct {
	api    CartAPI
	db     persistence
	logg   *logger.Logger
	bounds config.CartConfig

	mu            sync.Mutex
	cart          *types.Cart
	initialized   bool
	recentlyAdded *types.CartItem
}

// NewStore builds a cart store. db may be nil to disable persistence.
func NewStore(api CartAPI, db persistence, bounds config.CartConfig, logg *logger.Logger) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("cart api required")
	}
	if bounds.MinQuantityPerItem < 1 || bounds.MaxQuantityPerItem < bounds.MinQuantityPerItem {
		return nil, fmt.Errorf("invalid cart quantity bounds")
	}
	return &Store{api: api, db: db, bounds: bounds, logg: logg}, nil
}

// Restore hydrates the whitelisted cart slice from durable storage.
func (s *Store) Restore(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	payload, initialized, err := s.db.LoadCartSnapshot(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = initialized
	if len(payload) == 0 {
		return nil
	}
	cart := &types.Cart{}
	if err := json.Unmarshal(payload, cart); err != nil {
		// A corrupt snapshot is discarded; the next Fetch restores truth.
		if s.logg != nil {
			s.logg.Warn(ctx, "discarding unreadable cart snapshot")
		}
		return nil
	}
	recountAggregates(cart)
	s.cart = cart
	return nil
}

// Fetch replaces the local cart with the server's current cart. The store is
// marked initialized even on failure; failure clears the cart rather than
// leaving stale data.
func (s *Store) Fetch(ctx context.Context) (*types.Cart, error) {
	cart, err := s.api.Fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	if err != nil {
		s.cart = nil
		s.persistLocked(ctx)
		return nil, err
	}
	recountAggregates(cart)
	s.cart = cart
	s.persistLocked(ctx)
	return cloneCart(s.cart), nil
}

// Create places a brand-new cart with the given items. Quantities are
// bound-checked before any network call. The last created item becomes
// "recently added" for notification purposes.
func (s *Store) Create(ctx context.Context, items []types.NewCartItemInput) (*types.Cart, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}
	for _, item := range items {
		if item.ProductID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if err := validate.QuantityInRange(item.Quantity, s.bounds.MinQuantityPerItem, s.bounds.MaxQuantityPerItem); err != nil {
			return nil, err
		}
	}

	cart, err := s.api.Create(ctx, items)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	recountAggregates(cart)
	s.cart = cart
	s.initialized = true
	if len(cart.Items) > 0 {
		last := cart.Items[len(cart.Items)-1]
		s.recentlyAdded = &last
	}
	s.persistLocked(ctx)
	return cloneCart(s.cart), nil
}

// Add puts a product into the cart. When no cart exists yet one is created
// lazily. The server owns merge semantics: if the product is already present
// locally, the returned item replaces it in place rather than accumulating
// quantity client-side.
func (s *Store) Add(ctx context.Context, productID string, quantity int) (*types.CartItem, error) {
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if err := validate.QuantityInRange(quantity, s.bounds.MinQuantityPerItem, s.bounds.MaxQuantityPerItem); err != nil {
		return nil, err
	}

	s.mu.Lock()
	hasCart := s.cart != nil
	s.mu.Unlock()

	if !hasCart {
		cart, err := s.Create(ctx, []types.NewCartItemInput{{ProductID: productID, Quantity: quantity}})
		if err != nil {
			return nil, err
		}
		if len(cart.Items) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeServer, "created cart came back empty")
		}
		item := cart.Items[len(cart.Items)-1]
		return &item, nil
	}

	item, err := s.api.AddItem(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart != nil {
		replaced := false
		for i := range s.cart.Items {
			if s.cart.Items[i].ProductID == item.ProductID {
				s.cart.Items[i] = *item
				replaced = true
				break
			}
		}
		if !replaced {
			s.cart.Items = append(s.cart.Items, *item)
		}
		recountAggregates(s.cart)
	}
	added := *item
	s.recentlyAdded = &added
	s.persistLocked(ctx)
	return item, nil
}

// UpdateItem sets an item's quantity optimistically, before the network call
// resolves. On failure the store refetches authoritative state instead of
// rolling back the single field, then re-raises the original error.
func (s *Store) UpdateItem(ctx context.Context, itemID string, quantity int) (*types.CartItem, error) {
	if err := validate.QuantityInRange(quantity, s.bounds.MinQuantityPerItem, s.bounds.MaxQuantityPerItem); err != nil {
		return nil, err
	}

	s.mu.Lock()
	target := s.findItemLocked(itemID)
	if target == nil {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	target.Quantity = quantity
	recountAggregates(s.cart)
	s.persistLocked(ctx)
	s.mu.Unlock()

	item, err := s.api.UpdateItem(ctx, itemID, quantity)
	if err != nil {
		s.reconcile(ctx)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if updated := s.findItemLocked(itemID); updated != nil {
		*updated = *item
		recountAggregates(s.cart)
		s.persistLocked(ctx)
	}
	return item, nil
}

// RemoveItem drops an item optimistically, with the same reconcile-by-refetch
// recovery as UpdateItem.
func (s *Store) RemoveItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	found := false
	if s.cart != nil {
		for i := range s.cart.Items {
			if s.cart.Items[i].ID == itemID {
				s.cart.Items = append(s.cart.Items[:i], s.cart.Items[i+1:]...)
				found = true
				break
			}
		}
	}
	if !found {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	recountAggregates(s.cart)
	s.persistLocked(ctx)
	s.mu.Unlock()

	if err := s.api.RemoveItem(ctx, itemID); err != nil {
		s.reconcile(ctx)
		return err
	}
	return nil
}

// Clear empties the cart locally without a network call (logout path).
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
	s.recentlyAdded = nil
	s.persistLocked(ctx)
	return nil
}

// Cart returns a snapshot of the current cart, or nil when empty.
func (s *Store) Cart() *types.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCart(s.cart)
}

// Initialized reports whether the store has completed at least one fetch (or
// restore) cycle.
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// RecentlyAdded returns the last item added through this store, for UI
// notification, or nil.
func (s *Store) RecentlyAdded() *types.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recentlyAdded == nil {
		return nil
	}
	item := *s.recentlyAdded
	return &item
}

// Totals recomputes the derived totals from the current cart.
func (s *Store) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeTotals(s.cart)
}

// ReadyForCheckout reports the derived checkout-validity flag.
func (s *Store) ReadyForCheckout() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadyForCheckout(s.cart)
}

// reconcile discards the optimistic state by refetching server truth. The
// original mutation error is what callers see; a reconcile failure only gets
// logged, Fetch has already cleared the stale cart.
func (s *Store) reconcile(ctx context.Context) {
	if _, err := s.Fetch(ctx); err != nil && s.logg != nil {
		s.logg.Error(ctx, "reconciling cart after failed mutation", err)
	}
}

func (s *Store) findItemLocked(itemID string) *types.CartItem {
	if s.cart == nil {
		return nil
	}
	for i := range s.cart.Items {
		if s.cart.Items[i].ID == itemID {
			return &s.cart.Items[i]
		}
	}
	return nil
}

// persistLocked writes the whitelisted cart slice. Persistence failures are
// deliberate best-effort; the in-memory cart stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	if s.db == nil {
		return
	}
	var payload []byte
	if s.cart != nil {
		encoded, err := json.Marshal(s.cart)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "encoding cart snapshot", err)
			}
			return
		}
		payload = encoded
	}
	if err := s.db.SaveCartSnapshot(ctx, payload, s.initialized); err != nil && s.logg != nil {
		s.logg.Error(ctx, "persisting cart snapshot", err)
	}
}

func cloneCart(cart *types.Cart) *types.Cart {
	if cart == nil {
		return nil
	}
	cloned := *cart
	cloned.Items = make([]types.CartItem, len(cart.Items))
	copy(cloned.Items, cart.Items)
	return &cloned
}
