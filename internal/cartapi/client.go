package cartapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/solarmart/solarmart-client/pkg/types"
)

type httpDoer interface {
	DoJSON(ctx context.Context, method, path string, body, out any) error
}

// Client is the REST transport behind the cart store.
type Client struct {
	http httpDoer
}

// NewClient builds a cart API client over the request pipeline.
func NewClient(http httpDoer) (*Client, error) {
	if http == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &Client{http: http}, nil
}

type createCartRequest struct {
	Items []types.NewCartItemInput `json:"items"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// Fetch returns the server's current cart.
func (c *Client) Fetch(ctx context.Context) (*types.Cart, error) {
	cart := &types.Cart{}
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/cart", nil, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Create places a new cart with the given initial items.
func (c *Client) Create(ctx context.Context, items []types.NewCartItemInput) (*types.Cart, error) {
	cart := &types.Cart{}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/cart", createCartRequest{Items: items}, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem puts one product into the cart; the server owns merge semantics.
func (c *Client) AddItem(ctx context.Context, productID string, quantity int) (*types.CartItem, error) {
	item := &types.CartItem{}
	payload := addItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/cart/items", payload, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem sets the quantity of one cart item.
func (c *Client) UpdateItem(ctx context.Context, itemID string, quantity int) (*types.CartItem, error) {
	item := &types.CartItem{}
	path := "/api/cart/items/" + url.PathEscape(itemID)
	if err := c.http.DoJSON(ctx, http.MethodPut, path, updateItemRequest{Quantity: quantity}, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem deletes one cart item.
func (c *Client) RemoveItem(ctx context.Context, itemID string) error {
	path := "/api/cart/items/" + url.PathEscape(itemID)
	return c.http.DoJSON(ctx, http.MethodDelete, path, nil, nil)
}
