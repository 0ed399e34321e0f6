// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package transport is the outbound HTTP client swarmmesh agents use to
// reach other agents' ingress endpoints (/swarm/join, /swarm/message and
// friends): bounded
// retries with exponential, jittered backoff over a fixed set of retryable
// status codes, and the agent/protocol identification headers every request
// carries.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// ProtocolVersion is advertised on every outbound request via the
// X-Swarm-Protocol header.
const ProtocolVersion = "1.0.0"

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client is a retrying HTTP client scoped to one agent identity.
type Client struct {
	AgentID    string
	HTTPClient *http.Client
	MaxRetries int
}

// NewClient creates a Client with the default timeouts and up to 3
// attempts per request.
func NewClient(agentID string) *Client {
	return &Client{
		AgentID:    agentID,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		MaxRetries: 3,
	}
}

// backoff returns the delay before retry attempt n (0-indexed), exponential
// with a capped base and ±25% jitter.
func backoff(attempt int) time.Duration {
	base := 1.0 * float64(int64(1)<<uint(attempt))
	if base > 30.0 {
		base = 30.0
	}
	jitter := base * 0.25 * (2*rand.Float64() - 1)
	delay := base + jitter
	if delay < 0.1 {
		delay = 0.1
	}
	return time.Duration(delay * float64(time.Second))
}

func (c *Client) headers(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Agent-ID", c.AgentID)
	req.Header.Set("X-Swarm-Protocol", ProtocolVersion)
}

// Response is a decoded HTTP response: the status code and, if present, the
// JSON-decoded body.
type Response struct {
	StatusCode int
	Body       map[string]any
}

// Post sends a JSON POST to url, retrying on transport errors and the
// standard retryable status codes.
func (c *Client) Post(ctx context.Context, url string, payload any) (*Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Wrap(errs.KindFormat, err, "marshaling request body")
	}
	return c.request(ctx, http.MethodPost, url, data)
}

// Get sends a GET request to url with the same retry policy as Post.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.request(ctx, http.MethodGet, url, nil)
}

// PostRaw sends a POST of a pre-encoded JSON body, for callers (e.g. signed
// wire messages) whose canonical JSON form differs from json.Marshal's
// default struct encoding.
func (c *Client) PostRaw(ctx context.Context, url string, body []byte) (*Response, error) {
	return c.request(ctx, http.MethodPost, url, body)
}

func (c *Client) request(ctx context.Context, method, url string, body []byte) (*Response, error) {
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, errs.Wrap(errs.KindTransport, err, "building request")
		}
		c.headers(req)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < attempts-1 {
				if waitErr := sleep(ctx, backoff(attempt)); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			break
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			defer resp.Body.Close()
			return nil, rateLimitError(resp)
		}

		if retryableStatus[resp.StatusCode] && attempt < attempts-1 {
			resp.Body.Close()
			if waitErr := sleep(ctx, backoff(attempt)); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		defer resp.Body.Close()
		return decodeResponse(resp)
	}
	if lastErr == nil {
		lastErr = errs.New(errs.KindTransport, "no attempts succeeded")
	}
	return nil, errs.Wrap(errs.KindTransport, lastErr, "request to "+url+" failed after "+strconv.Itoa(attempts)+" attempts")
}

func decodeResponse(resp *http.Response) (*Response, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransport, err, "reading response body")
	}
	result := &Response{StatusCode: resp.StatusCode}
	if len(raw) == 0 {
		return result, nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		result.Body = body
	}
	return result, nil
}

func rateLimitError(resp *http.Response) error {
	details := map[string]any{}
	for _, h := range []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if v := resp.Header.Get(h); v != "" {
			details[h] = v
		}
	}
	return errs.New(errs.KindRateLimited, "remote agent rate limited this request").WithDetails(details)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
