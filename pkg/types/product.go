package types

import "time"

// ProductSnapshot is the copy of a product's pricing/availability embedded in
// a cart item at last sync. It is used for display and validation without a
// live join against the catalog.
type ProductSnapshot struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Slug               string  `json:"slug"`
	SalePriceCents     int     `json:"sale_price_cents"`
	OriginalPriceCents int     `json:"original_price_cents"`
	AvailableQuantity  int     `json:"available_quantity"`
	IsActive           bool    `json:"is_active"`
	IsDeleted          bool    `json:"is_deleted"`
	ImageURL           *string `json:"image_url,omitempty"`
}

// Product is the full catalog representation.
type Product struct {
	ProductSnapshot
	Description string    `json:"description"`
	CategoryID  string    `json:"category_id"`
	WattageW    *int      `json:"wattage_w,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Package bundles multiple products under one price (e.g. panels plus
// inverter plus installation).
type Package struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	Description        string    `json:"description"`
	SalePriceCents     int       `json:"sale_price_cents"`
	OriginalPriceCents int       `json:"original_price_cents"`
	ProductIDs         []string  `json:"product_ids"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// Category groups catalog products.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
