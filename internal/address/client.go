package address

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/solarmart/solarmart-client/pkg/types"
	"github.com/solarmart/solarmart-client/pkg/validate"
)

type httpDoer interface {
	DoJSON(ctx context.Context, method, path string, body, out any) error
}

// Client manages the account's address book.
type Client struct {
	http httpDoer
}

// NewClient builds an address client over the request pipeline.
func NewClient(http httpDoer) (*Client, error) {
	if http == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &Client{http: http}, nil
}

type listResponse struct {
	Addresses []types.Address `json:"addresses"`
}

// List returns all saved addresses.
func (c *Client) List(ctx context.Context) ([]types.Address, error) {
	var resp listResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/addresses", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// Create saves a new address. Required fields are checked locally first.
func (c *Client) Create(ctx context.Context, input types.AddressInput) (*types.Address, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	addr := &types.Address{}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/addresses", input, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// Update replaces an existing address.
func (c *Client) Update(ctx context.Context, id string, input types.AddressInput) (*types.Address, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	addr := &types.Address{}
	path := "/api/addresses/" + url.PathEscape(id)
	if err := c.http.DoJSON(ctx, http.MethodPut, path, input, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

// Delete removes an address from the book.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := "/api/addresses/" + url.PathEscape(id)
	return c.http.DoJSON(ctx, http.MethodDelete, path, nil, nil)
}
