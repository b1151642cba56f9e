package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/solarmart/solarmart-client/pkg/types"
)

type httpDoer interface {
	DoJSON(ctx context.Context, method, path string, body, out any) error
}

// Client reads the public catalog. Responses are cached in memory for the
// lifetime of the client; the cache is never persisted and drops on Reset.
type Client struct {
	http httpDoer

	mu         sync.Mutex
	products   []types.Product
	bySlug     map[string]*types.Product
	packages   []types.Package
	categories []types.Category
}

// NewClient builds a catalog client over the request pipeline.
func NewClient(http httpDoer) (*Client, error) {
	if http == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &Client{http: http, bySlug: map[string]*types.Product{}}, nil
}

type productsResponse struct {
	Products []types.Product `json:"products"`
}

type packagesResponse struct {
	Packages []types.Package `json:"packages"`
}

type categoriesResponse struct {
	Categories []types.Category `json:"categories"`
}

// Products returns the catalog's active products, served from cache after the
// first call.
func (c *Client) Products(ctx context.Context) ([]types.Product, error) {
	c.mu.Lock()
	if c.products != nil {
		cached := make([]types.Product, len(c.products))
		copy(cached, c.products)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var resp productsResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/products", nil, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.products = resp.Products
	for i := range c.products {
		c.bySlug[c.products[i].Slug] = &c.products[i]
	}
	out := make([]types.Product, len(c.products))
	copy(out, c.products)
	c.mu.Unlock()
	return out, nil
}

// ProductBySlug returns one product, preferring the cache filled by a prior
// Products call.
func (c *Client) ProductBySlug(ctx context.Context, slug string) (*types.Product, error) {
	c.mu.Lock()
	if cached, ok := c.bySlug[slug]; ok {
		clone := *cached
		c.mu.Unlock()
		return &clone, nil
	}
	c.mu.Unlock()

	product := &types.Product{}
	path := "/api/products/" + url.PathEscape(slug)
	if err := c.http.DoJSON(ctx, http.MethodGet, path, nil, product); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.bySlug[product.Slug] = product
	c.mu.Unlock()
	clone := *product
	return &clone, nil
}

// Packages returns the bundle offerings, cached after the first call.
func (c *Client) Packages(ctx context.Context) ([]types.Package, error) {
	c.mu.Lock()
	if c.packages != nil {
		cached := make([]types.Package, len(c.packages))
		copy(cached, c.packages)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var resp packagesResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/packages", nil, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.packages = resp.Packages
	out := make([]types.Package, len(c.packages))
	copy(out, c.packages)
	c.mu.Unlock()
	return out, nil
}

// Categories returns the category tree, cached after the first call.
func (c *Client) Categories(ctx context.Context) ([]types.Category, error) {
	c.mu.Lock()
	if c.categories != nil {
		cached := make([]types.Category, len(c.categories))
		copy(cached, c.categories)
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var resp categoriesResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/api/categories", nil, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.categories = resp.Categories
	out := make([]types.Category, len(c.categories))
	copy(out, c.categories)
	c.mu.Unlock()
	return out, nil
}

// Reset drops every cached response. Called on logout so a new session never
// sees stale availability.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.packages = nil
	c.categories = nil
	c.bySlug = map[string]*types.Product{}
}
