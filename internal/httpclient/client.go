package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/solarmart/solarmart-client/pkg/config"
	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
	"github.com/solarmart/solarmart-client/pkg/logger"
	"github.com/solarmart/solarmart-client/pkg/metrics"
)

const (
	authPathPrefix = "/api/auth/"
	refreshPath    = "/api/auth/refresh"

	sessionExpiredReason = "your session has expired, please sign in again"
)

// CredentialStore is the pipeline's view of the access credential holder.
type CredentialStore interface {
	Token() string
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Params collects the dependencies of the request pipeline.
type Params struct {
	BaseURL     string
	Timeout     time.Duration
	Credentials CredentialStore
	Logger      *logger.Logger
	Metrics     *metrics.PipelineMetrics
	Auth        config.AuthConfig

	// OnSessionExpired fires after an irrecoverable refresh failure, carrying a
	// human-readable reason, when Location reports a protected path.
	OnSessionExpired func(reason string)
	// Location reports the caller's current navigation location. Nil means
	// always treat the caller as being on a protected path.
	Location func() string

	// Jar holds the refresh cookie. A fresh in-memory jar is created when nil.
	Transport http.RoundTripper
	Jar       http.CookieJar
}

// Client issues storefront API requests with transparent credential
// attachment and refresh-and-replay recovery from credential expiry.
type Client struct {
	base    *url.URL
	http    *http.Client
	creds   CredentialStore
	logg    *logger.Logger
	metrics *metrics.PipelineMetrics
	auth    config.AuthConfig

	onSessionExpired func(reason string)
	location         func() string

	mu         sync.Mutex
	refreshing bool
	waiters    []chan error
}

// New builds a request pipeline from the provided stack.
func New(params Params) (*Client, error) {
	if params.BaseURL == "" {
		return nil, fmt.Errorf("base url required")
	}
	base, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credential store required")
	}
	if params.Timeout <= 0 {
		params.Timeout = 30 * time.Second
	}

	jar := params.Jar
	if jar == nil {
		jar, err = cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   params.Timeout,
			Jar:       jar,
			Transport: params.Transport,
		},
		creds:            params.Credentials,
		logg:             params.Logger,
		metrics:          params.Metrics,
		auth:             params.Auth,
		onSessionExpired: params.OnSessionExpired,
		location:         params.Location,
	}, nil
}

// Do issues one request and returns the raw response body. The request is
// retried internally at most once, after a successful token refresh.
func (c *Client) Do(ctx context.Context, method, path string, body any) ([]byte, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
	}
	data, _, err := c.dispatch(ctx, method, path, payload, false)
	return data, err
}

// DoJSON issues one request and decodes the JSON response into out. A nil out
// discards the body.
func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	data, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding response body")
	}
	return nil
}

func (c *Client) dispatch(ctx context.Context, method, path string, payload []byte, retried bool) ([]byte, int, error) {
	usedToken := c.creds.Token()
	req, err := c.buildRequest(ctx, method, path, payload)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		if c.logg != nil {
			c.logg.Warn(c.logg.WithEndpoint(ctx, method, path), "request produced no response")
		}
		return nil, 0, pkgerrors.NewNetwork(err)
	}
	defer resp.Body.Close()

	data, readErr := io.ReadAll(resp.Body)
	c.metrics.ObserveRequest(method, resp.StatusCode, time.Since(start))
	if readErr != nil {
		return nil, resp.StatusCode, pkgerrors.NewNetwork(readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) && !retried {
		// If another request already refreshed the credential while this one
		// was in flight, replay with it instead of refreshing again.
		if current := c.creds.Token(); current == "" || current == usedToken {
			if err := c.awaitRefresh(ctx); err != nil {
				return nil, resp.StatusCode, err
			}
		}
		c.metrics.IncReplay()
		return c.dispatch(ctx, method, path, payload, true)
	}

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, normalizeError(resp.StatusCode, data)
	}
	return data, resp.StatusCode, nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	target := c.base.JoinPath(path)

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.creds.Token(); token != "" && !isAuthPath(path) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}

// isAuthPath reports whether the target is an authentication endpoint; those
// never carry a bearer header and never trigger refresh-on-401.
func isAuthPath(path string) bool {
	return strings.HasPrefix(path, authPathPrefix)
}
