package types

import "time"

// CartItem ties a product snapshot and requested quantity to a cart.
type CartItem struct {
	ID        string          `json:"id"`
	CartID    string          `json:"cart_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Product   ProductSnapshot `json:"product"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Cart is the server-authoritative cart entity. TotalItems and TotalQuantity
// are always recomputed from Items, never independently mutated.
type Cart struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Items         []CartItem `json:"items"`
	TotalItems    int        `json:"total_items"`
	TotalQuantity int        `json:"total_quantity"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewCartItemInput names a product and quantity for cart creation.
type NewCartItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}
