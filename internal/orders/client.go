package orders

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/solarmart/solarmart-client/pkg/logger"
	"github.com/solarmart/solarmart-client/pkg/types"
	"github.com/solarmart/solarmart-client/pkg/validate"
)

type httpDoer interface {
	DoJSON(ctx context.Context, method, path string, body, out any) error
}

// Client wraps the order endpoints.
type Client struct {
	http httpDoer
	logg *logger.Logger
}

// NewClient builds an orders client over the request pipeline. logg may be nil.
func NewClient(http httpDoer, logg *logger.Logger) (*Client, error) {
	if http == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &Client{http: http, logg: logg}, nil
}

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodTransfer PaymentMethod = "bank_transfer"
)

// CreateInput is the checkout payload. The cart itself lives server-side; the
// order is placed against whatever the server currently holds for the session.
type CreateInput struct {
	ShippingAddressID string        `json:"shipping_address_id" validate:"required"`
	PaymentMethod     PaymentMethod `json:"payment_method" validate:"required,oneof=card bank_transfer"`
	Notes             *string       `json:"notes,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

type listResponse struct {
	Orders []types.Order `json:"orders"`
}

// Create places an order from the server-side cart.
func (c *Client) Create(ctx context.Context, input CreateInput) (*types.Order, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	order := &types.Order{}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/orders", input, order); err != nil {
		return nil, err
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "order_id", order.ID), "order placed")
	}
	return order, nil
}

// Get returns one order by id.
func (c *Client) Get(ctx context.Context, id string) (*types.Order, error) {
	order := &types.Order{}
	path := "/api/orders/" + url.PathEscape(id)
	if err := c.http.DoJSON(ctx, http.MethodGet, path, nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns the account's orders, newest first.
func (c *Client) List(ctx context.Context) ([]types.Order, error) {
	var resp listResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/orders", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// Cancel requests cancellation of a pending order. The server decides whether
// the order is still cancellable.
func (c *Client) Cancel(ctx context.Context, id, reason string) (*types.Order, error) {
	order := &types.Order{}
	path := "/api/orders/" + url.PathEscape(id) + "/cancel"
	if err := c.http.DoJSON(ctx, http.MethodPatch, path, cancelRequest{Reason: reason}, order); err != nil {
		return nil, err
	}
	return order, nil
}
