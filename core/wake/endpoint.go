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

package wake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
	"github.com/sage-x-project/swarmmesh/internal/logger"
)

// DefaultEndpointTimeout bounds a single wake POST. Wake dispatch is
// advisory; a slow endpoint must not back up the queue consumer.
const DefaultEndpointTimeout = 5 * time.Second

// EndpointInvoker delivers wakes by POSTing the payload as JSON to a
// configured wake endpoint (typically this agent's own /api/wake, or a
// sidecar's). Calls are not retried.
type EndpointInvoker struct {
	URL    string
	Secret string

	client *http.Client
}

// NewEndpointInvoker creates an EndpointInvoker POSTing to url with the
// given shared secret (sent as X-Wake-Secret when non-empty).
func NewEndpointInvoker(url, secret string, timeout time.Duration) (*EndpointInvoker, error) {
	if url == "" {
		return nil, errs.New(errs.KindValidation, "wake endpoint invoker requires a non-empty URL")
	}
	if timeout <= 0 {
		timeout = DefaultEndpointTimeout
	}
	return &EndpointInvoker{
		URL:    url,
		Secret: secret,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Invoke POSTs the wake payload. A non-2xx response is a wake-endpoint
// error; connection failures are wrapped the same way. When the endpoint's
// response body carries a session_id, it is passed through to the caller.
func (e *EndpointInvoker) Invoke(ctx context.Context, payload WakePayload) (string, error) {
	body, err := json.Marshal(map[string]string{
		"message_id":         payload.MessageID,
		"swarm_id":           payload.SwarmID,
		"sender_id":          payload.SenderID,
		"notification_level": payload.NotificationLevel,
	})
	if err != nil {
		return "", errs.Wrap(errs.KindWakeEndpoint, err, "marshal wake payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(errs.KindWakeEndpoint, err, "build wake request")
	}
	req.Header.Set("Content-Type", "application/json")
	if e.Secret != "" {
		req.Header.Set("X-Wake-Secret", e.Secret)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.KindWakeEndpoint, err, "wake endpoint unreachable")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errs.New(errs.KindWakeEndpoint, fmt.Sprintf("wake endpoint returned %d", resp.StatusCode))
	}

	var result struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(respBody, &result)
	logger.Debug("wake dispatched",
		logger.String("message_id", payload.MessageID),
		logger.Int("status", resp.StatusCode))
	return result.SessionID, nil
}
