package cartstore

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/solarmart/solarmart-client/pkg/types"
)

func snapshot(id string, saleCents, originalCents, available int) types.ProductSnapshot {
	return types.ProductSnapshot{
		ID:                 id,
		Name:               "Panel " + id,
		SalePriceCents:     saleCents,
		OriginalPriceCents: originalCents,
		AvailableQuantity:  available,
		IsActive:           true,
	}
}

func TestComputeTotalsSingleItem(t *testing.T) {
	t.Parallel()

	// sale 100.00, original 150.00, qty 2
	cart := &types.Cart{Items: []types.CartItem{
		{ID: "i1", ProductID: "P1", Quantity: 2, Product: snapshot("P1", 10000, 15000, 10)},
	}}

	totals := ComputeTotals(cart)
	if !totals.Subtotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected subtotal 200, got %s", totals.Subtotal)
	}
	if !totals.TotalOriginalPrice.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected original total 300, got %s", totals.TotalOriginalPrice)
	}
	if !totals.TotalSavings.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected savings 100, got %s", totals.TotalSavings)
	}
	if totals.TotalItems != 1 || totals.TotalQuantity != 2 {
		t.Fatalf("expected counts {1,2}, got {%d,%d}", totals.TotalItems, totals.TotalQuantity)
	}
}

func TestComputeTotalsEmptyAndNil(t *testing.T) {
	t.Parallel()

	for _, cart := range []*types.Cart{nil, {}} {
		totals := ComputeTotals(cart)
		if !totals.Subtotal.IsZero() || !totals.TotalSavings.IsZero() {
			t.Fatalf("expected zero totals, got %+v", totals)
		}
		if totals.TotalItems != 0 || totals.TotalQuantity != 0 {
			t.Fatalf("expected zero counts, got %+v", totals)
		}
	}
}

func TestComputeTotalsFractionalCents(t *testing.T) {
	t.Parallel()

	// sale 19.99 x 3 = 59.97
	cart := &types.Cart{Items: []types.CartItem{
		{ID: "i1", ProductID: "P1", Quantity: 3, Product: snapshot("P1", 1999, 2499, 5)},
	}}

	totals := ComputeTotals(cart)
	if !totals.Subtotal.Equal(decimal.RequireFromString("59.97")) {
		t.Fatalf("expected subtotal 59.97, got %s", totals.Subtotal)
	}
	if !totals.TotalSavings.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected savings 15.00, got %s", totals.TotalSavings)
	}
}

func TestItemOutOfStock(t *testing.T) {
	t.Parallel()

	inStock := types.CartItem{Quantity: 2, Product: snapshot("P1", 100, 100, 5)}
	if ItemOutOfStock(inStock) {
		t.Fatal("expected item in stock")
	}

	overQty := types.CartItem{Quantity: 6, Product: snapshot("P1", 100, 100, 5)}
	if !ItemOutOfStock(overQty) {
		t.Fatal("quantity above available must be out of stock")
	}

	inactive := types.CartItem{Quantity: 1, Product: snapshot("P1", 100, 100, 5)}
	inactive.Product.IsActive = false
	if !ItemOutOfStock(inactive) {
		t.Fatal("inactive product must be out of stock")
	}

	deleted := types.CartItem{Quantity: 1, Product: snapshot("P1", 100, 100, 5)}
	deleted.Product.IsDeleted = true
	if !ItemOutOfStock(deleted) {
		t.Fatal("deleted product must be out of stock")
	}
}

func TestReadyForCheckout(t *testing.T) {
	t.Parallel()

	if ReadyForCheckout(nil) || ReadyForCheckout(&types.Cart{}) {
		t.Fatal("empty cart is never checkout-ready")
	}

	ready := &types.Cart{Items: []types.CartItem{
		{ID: "i1", Quantity: 1, Product: snapshot("P1", 100, 100, 5)},
	}}
	if !ReadyForCheckout(ready) {
		t.Fatal("expected cart ready")
	}

	blocked := &types.Cart{Items: []types.CartItem{
		{ID: "i1", Quantity: 1, Product: snapshot("P1", 100, 100, 5)},
		{ID: "i2", Quantity: 9, Product: snapshot("P2", 100, 100, 5)},
	}}
	if ReadyForCheckout(blocked) {
		t.Fatal("any out-of-stock item blocks checkout")
	}
}
