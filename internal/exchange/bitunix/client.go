// Package bitunix implements the exchange gateway (spec.md §4.2): typed,
// signed REST operations against a Bitunix-style perpetual-futures API. The
// gateway is stateless beyond its credentials and safe for concurrent use —
// the scheduler's per-symbol workers and every symbol's position monitor
// call into the same *Client concurrently.
package bitunix

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Client provides signed REST access to the exchange.
type Client struct {
	key, secret, base string
	rest              *resty.Client
}

// NewClient builds a Client with the connection-pooling settings the teacher
// used for high-frequency order placement: bounded idle connections, HTTP/2
// where available, and a small bounded retry budget for transport-level
// failures (not for application-level non-zero `code` responses, which are
// never safe to blindly retry for a market order).
func NewClient(key, secret, base string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	r := resty.New()
	r.SetTransport(transport)
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(20 * time.Second)
	}
	r.SetRetryCount(2)
	r.SetRetryWaitTime(500 * time.Millisecond)
	r.SetRetryMaxWaitTime(2 * time.Second)

	return &Client{key: key, secret: secret, base: base, rest: r}
}

// envelope is the response wrapper every Bitunix-style endpoint uses
// (spec.md §6): code 0 is success, anything else is a failure carrying msg.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// TransportError wraps a non-zero `code` response from the exchange.
type TransportError struct {
	Code int
	Msg  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bitunix: code=%d msg=%s", e.Code, e.Msg)
}

// doRequest signs and issues one request, decoding the envelope and
// returning its `data` payload. method is "GET" or "POST"; query carries URL
// query parameters (GET) and body carries the JSON payload (POST). Both
// participate in the signature per spec.md §6.
func (c *Client) doRequest(method, path string, query map[string]string, body map[string]interface{}) (json.RawMessage, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("bitunix: generating nonce: %w", err)
	}

	canonicalBody := ""
	if len(body) > 0 {
		raw, err := json.Marshal(body) // json.Marshal sorts map keys
		if err != nil {
			return nil, fmt.Errorf("bitunix: encoding body: %w", err)
		}
		canonicalBody = string(raw)
	}

	sig := sign(c.secret, nonce, ts, c.key, sortedQueryString(query), canonicalBody)

	req := c.rest.R().
		SetHeader("api-key", c.key).
		SetHeader("nonce", nonce).
		SetHeader("timestamp", ts).
		SetHeader("sign", sig).
		SetHeader("language", "en-US").
		SetHeader("Content-Type", "application/json").
		ForceContentType("application/json")

	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	env := &envelope{}
	var resp *resty.Response
	switch method {
	case http.MethodGet:
		resp, err = req.SetResult(env).Get(c.base + path)
	default:
		if canonicalBody != "" {
			req.SetBody(json.RawMessage(canonicalBody))
		}
		resp, err = req.SetResult(env).Post(c.base + path)
	}
	if err != nil {
		return nil, fmt.Errorf("bitunix: request %s %s: %w", method, path, err)
	}
	if resp.StatusCode() >= 400 && env.Code == 0 {
		return nil, fmt.Errorf("bitunix: http status %d on %s", resp.StatusCode(), path)
	}
	if env.Code != 0 {
		return nil, &TransportError{Code: env.Code, Msg: env.Msg}
	}
	return env.Data, nil
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// NewCorrelationID generates a correlation id for log lines spanning one
// open sequence's many REST round trips (SPEC_FULL.md §F.3).
func NewCorrelationID() string {
	return uuid.NewString()
}

// decode unmarshals a data payload into dst, wrapping JSON errors with the
// endpoint name for easier log correlation.
func decode(data json.RawMessage, dst interface{}, what string) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("bitunix: decoding %s response: %w", what, err)
	}
	return nil
}
