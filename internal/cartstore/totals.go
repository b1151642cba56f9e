package cartstore

import (
	"github.com/shopspring/decimal"
	"github.com/solarmart/solarmart-client/pkg/types"
)

// Totals is derived from the cart on every mutation and never stored as a
// separate source of truth.
type Totals struct {
	Subtotal           decimal.Decimal
	TotalOriginalPrice decimal.Decimal
	TotalSavings       decimal.Decimal
	TotalItems         int
	TotalQuantity      int
}

// CentsToDecimal shifts a wire price in cents to currency units.
func CentsToDecimal(cents int) decimal.Decimal {
	return decimal.NewFromInt(int64(cents)).Shift(-2)
}

// ComputeTotals folds the item collection into display totals. Prices are
// carried in cents on the wire and shifted to currency units here.
func ComputeTotals(cart *types.Cart) Totals {
	totals := Totals{
		Subtotal:           decimal.Zero,
		TotalOriginalPrice: decimal.Zero,
		TotalSavings:       decimal.Zero,
	}
	if cart == nil {
		return totals
	}

	for _, item := range cart.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		sale := CentsToDecimal(item.Product.SalePriceCents)
		original := CentsToDecimal(item.Product.OriginalPriceCents)

		totals.Subtotal = totals.Subtotal.Add(sale.Mul(qty))
		totals.TotalOriginalPrice = totals.TotalOriginalPrice.Add(original.Mul(qty))
		totals.TotalQuantity += item.Quantity
	}
	totals.TotalItems = len(cart.Items)
	totals.TotalSavings = totals.TotalOriginalPrice.Sub(totals.Subtotal)
	return totals
}

// ItemOutOfStock reports whether the item fails availability validation: the
// embedded snapshot shows the product unavailable or deleted, or the requested
// quantity exceeds the snapshot's available quantity. The item itself is never
// mutated by this check.
func ItemOutOfStock(item types.CartItem) bool {
	if item.Product.IsDeleted || !item.Product.IsActive {
		return true
	}
	return item.Quantity > item.Product.AvailableQuantity
}

// ReadyForCheckout reports whether the cart has at least one item and none of
// them are out of stock.
func ReadyForCheckout(cart *types.Cart) bool {
	if cart == nil || len(cart.Items) == 0 {
		return false
	}
	for _, item := range cart.Items {
		if ItemOutOfStock(item) {
			return false
		}
	}
	return true
}

// recountAggregates recomputes the cart's counters from the item collection.
func recountAggregates(cart *types.Cart) {
	if cart == nil {
		return
	}
	cart.TotalItems = len(cart.Items)
	quantity := 0
	for _, item := range cart.Items {
		quantity += item.Quantity
	}
	cart.TotalQuantity = quantity
}
