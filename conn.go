// This file presents connection-related types and functions.

package ibmq

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// A Connection represents an authenticated connection to the execution
// service on behalf of one account.
type Connection struct {
	Account Account      // Account whose credentials the connection uses
	URL     string       // API endpoint
	client  *http.Client // HTTP client for all requests
	log     *zap.Logger  // Logger for request tracing
}

// A ConnectionOption configures a Connection.
type ConnectionOption func(*Connection)

// WithHTTPClient makes a connection use a specific HTTP client.
func WithHTTPClient(hc *http.Client) ConnectionOption {
	return func(c *Connection) {
		c.client = hc
	}
}

// WithConnectionLogger makes a connection log its requests.
func WithConnectionLogger(l *zap.Logger) ConnectionOption {
	return func(c *Connection) {
		c.log = l
	}
}

// RemoteConnection establishes a connection to the execution service using
// an account's credentials.  No network traffic is generated until the
// connection is first used.
func RemoteConnection(acct Account, opts ...ConnectionOption) (*Connection, error) {
	// Validate the account.
	if acct.Token == "" {
		return nil, errors.Errorf("account %q has no token", acct.Name)
	}
	endpoint := strings.TrimRight(acct.endpoint(), "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, errors.Wrapf(err, "account %q", acct.Name)
	}
	conn := &Connection{
		Account: acct,
		URL:     endpoint,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(conn)
	}

	// Route requests through the account's proxy unless the caller
	// supplied a client.
	if conn.client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if acct.Proxy != "" {
			pu, err := url.Parse(acct.Proxy)
			if err != nil {
				return nil, errors.Wrapf(err, "proxy for account %q", acct.Name)
			}
			tr.Proxy = http.ProxyURL(pu)
		}
		conn.client = &http.Client{Transport: tr, Timeout: 60 * time.Second}
	}
	return conn, nil
}

// do issues a request and decodes a JSON response into out (if non-nil).  An
// error status is returned as an *APIError.
func (c *Connection) do(ctx context.Context, method, path string, in, out any) error {
	// Encode the request body.
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.Account.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Issue the request.
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	// Decode the response.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var er errorResponse
		if json.Unmarshal(data, &er) == nil && er.Error != nil {
			er.Error.StatusCode = resp.StatusCode
			return er.Error
		}
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(data)),
		}
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(data, out), "decode %s response", path)
}

// Devices returns the names of all devices available on the connection.
func (c *Connection) Devices(ctx context.Context) ([]string, error) {
	var cfgs []DeviceConfiguration
	if err := c.do(ctx, http.MethodGet, "/backends", nil, &cfgs); err != nil {
		return nil, err
	}
	names := make([]string, len(cfgs))
	for i, cfg := range cfgs {
		names[i] = cfg.Name
	}
	return names, nil
}
