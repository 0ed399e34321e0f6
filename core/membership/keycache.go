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

package membership

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sage-x-project/swarmmesh/internal/store"
)

// PublicKeyCache wraps the public-key repository with a singleflight group
// so concurrent cache misses for the same agent ID collapse into a single
// resolve-and-store.
type PublicKeyCache struct {
	repo *store.PublicKeyRepository
	sf   singleflight.Group
}

// NewPublicKeyCache creates a PublicKeyCache backed by repo.
func NewPublicKeyCache(repo *store.PublicKeyRepository) *PublicKeyCache {
	return &PublicKeyCache{repo: repo}
}

// Resolve returns the cached public key for agentID if present, otherwise
// calls fetch exactly once per concurrent wave of callers and persists the
// result for subsequent lookups.
func (c *PublicKeyCache) Resolve(ctx context.Context, agentID, endpoint string, now time.Time, fetch func() (string, error)) (string, error) {
	if entry, err := c.repo.Get(ctx, agentID); err == nil && entry != nil {
		return entry.PublicKey, nil
	}

	v, err, _ := c.sf.Do(agentID, func() (any, error) {
		key, err := fetch()
		if err != nil {
			return "", err
		}
		if err := c.repo.Store(ctx, store.PublicKeyEntry{
			AgentID:   agentID,
			PublicKey: key,
			FetchedAt: now,
			Endpoint:  endpoint,
		}); err != nil {
			return "", err
		}
		return key, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
