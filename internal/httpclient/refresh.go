package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
)

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

// awaitRefresh ensures at most one refresh call is in flight. The first 401'd
// request performs the refresh; every request that 401s while it is pending
// queues behind it and is woken in FIFO order with the shared outcome.
func (c *Client) awaitRefresh(ctx context.Context) error {
	c.mu.Lock()
	if c.refreshing {
		waiter := make(chan error, 1)
		c.waiters = append(c.waiters, waiter)
		c.mu.Unlock()
		select {
		case err := <-waiter:
			return err
		case <-ctx.Done():
			return pkgerrors.Wrap(pkgerrors.CodeNetwork, ctx.Err(), pkgerrors.NetworkErrorMessage).WithStatus(0)
		}
	}
	c.refreshing = true
	c.mu.Unlock()

	err := c.refresh(ctx)

	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.refreshing = false
	c.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- err
	}
	return err
}

// refresh exchanges the cookie-held refresh credential for a new access
// credential. The cookie jar forwards the credential; its contents are never
// inspected here. On failure all stored credentials are cleared (forced
// logout) and the session-expired hook fires for protected locations.
func (c *Client) refresh(ctx context.Context) error {
	req, err := c.buildRequest(ctx, http.MethodPost, refreshPath, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building refresh request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(http.MethodPost, 0, time.Since(start))
		return c.failRefresh(ctx, pkgerrors.NewNetwork(err))
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(http.MethodPost, resp.StatusCode, time.Since(start))
	if readErr != nil {
		return c.failRefresh(ctx, pkgerrors.NewNetwork(readErr))
	}
	if resp.StatusCode >= 400 {
		return c.failRefresh(ctx, normalizeError(resp.StatusCode, data))
	}

	var decoded refreshResponse
	if err := json.Unmarshal(data, &decoded); err != nil || decoded.AccessToken == "" {
		return c.failRefresh(ctx, pkgerrors.Wrap(pkgerrors.CodeServer, err, "refresh returned no access token").WithStatus(resp.StatusCode))
	}

	if err := c.creds.SetToken(ctx, decoded.AccessToken); err != nil {
		return c.failRefresh(ctx, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing refreshed credential"))
	}

	c.metrics.IncRefresh("success")
	if c.logg != nil {
		c.logg.Info(ctx, "access credential refreshed")
	}
	return nil
}

func (c *Client) failRefresh(ctx context.Context, refreshErr error) error {
	c.metrics.IncRefresh("failure")
	if clearErr := c.creds.Clear(ctx); clearErr != nil && c.logg != nil {
		c.logg.Error(ctx, "clearing credentials after refresh failure", clearErr)
	}
	if c.logg != nil {
		c.logg.Warn(ctx, "token refresh failed, forcing logout")
	}
	c.notifySessionExpired()
	return refreshErr
}

func (c *Client) notifySessionExpired() {
	if c.onSessionExpired == nil {
		return
	}
	if c.location != nil && !c.auth.IsProtected(c.location()) {
		return
	}
	c.onSessionExpired(sessionExpiredReason)
}
