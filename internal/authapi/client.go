package authapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/solarmart/solarmart-client/pkg/logger"
	"github.com/solarmart/solarmart-client/pkg/types"
	"github.com/solarmart/solarmart-client/pkg/validate"
)

type httpDoer interface {
	DoJSON(ctx context.Context, method, path string, body, out any) error
}

type credentialWriter interface {
	SetSession(ctx context.Context, token string, user *types.User) error
	Clear(ctx context.Context) error
}

type cartClearer interface {
	Clear(ctx context.Context) error
}

// Client wraps the authentication endpoints. Login and registration store the
// returned access credential; the refresh credential arrives as an HttpOnly
// cookie handled entirely by the pipeline's cookie jar.
type Client struct {
	http  httpDoer
	creds credentialWriter
	cart  cartClearer
	logg  *logger.Logger
}

// NewClient builds an auth client. cart may be nil when no cart store is
// wired; logg may be nil.
func NewClient(http httpDoer, creds credentialWriter, cart cartClearer, logg *logger.Logger) (*Client, error) {
	if http == nil {
		return nil, fmt.Errorf("http client required")
	}
	if creds == nil {
		return nil, fmt.Errorf("credential store required")
	}
	return &Client{http: http, creds: creds, cart: cart, logg: logg}, nil
}

// LoginInput carries the credentials for an existing account.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput carries the payload for a new account.
type RegisterInput struct {
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name" validate:"required"`
	Phone     *string `json:"phone,omitempty"`
}

type sessionResponse struct {
	AccessToken string     `json:"access_token"`
	User        types.User `json:"user"`
}

// Login authenticates and stores the returned session.
func (c *Client) Login(ctx context.Context, input LoginInput) (*types.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	return c.openSession(ctx, "/api/auth/login", input)
}

// Register creates an account and stores the returned session.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*types.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	return c.openSession(ctx, "/api/auth/register", input)
}

// Logout destroys the local session: credentials and cart state are dropped.
// There is no server call; the refresh cookie simply stops being honored.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.creds.Clear(ctx); err != nil {
		return err
	}
	if c.cart != nil {
		if err := c.cart.Clear(ctx); err != nil {
			return err
		}
	}
	if c.logg != nil {
		c.logg.Info(ctx, "session closed")
	}
	return nil
}

func (c *Client) openSession(ctx context.Context, path string, payload any) (*types.User, error) {
	var session sessionResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, path, payload, &session); err != nil {
		return nil, err
	}
	user := session.User
	if err := c.creds.SetSession(ctx, session.AccessToken, &user); err != nil {
		return nil, err
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithUserID(ctx, user.ID), "session opened")
	}
	return &user, nil
}
