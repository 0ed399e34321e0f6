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

package identity

import (
	"net/url"
	"strings"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// InviteURLScheme is the custom URL scheme invite links are shared under.
const InviteURLScheme = "swarm"

// WrapInviteURL renders a signed invite token as a shareable
// swarm://<swarm_id>@<host>?token=<token> link.
func WrapInviteURL(swarmID, endpoint, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errs.Wrap(errs.KindFormat, err, "parsing invite endpoint")
	}
	v := url.Values{}
	v.Set("token", token)
	return InviteURLScheme + "://" + swarmID + "@" + u.Host + "?" + v.Encode(), nil
}

// UnwrapInviteURL extracts the swarm_id and raw token from a
// swarm://<swarm_id>@<host>?token=<token> invite link.
func UnwrapInviteURL(inviteURL string) (swarmID, token string, err error) {
	prefix := InviteURLScheme + "://"
	if !strings.HasPrefix(inviteURL, prefix) {
		return "", "", errs.Newf(errs.KindFormat, "invite URL must begin with %q", prefix)
	}
	rest := inviteURL[len(prefix):]

	at := strings.Index(rest, "@")
	if at < 0 {
		return "", "", errs.New(errs.KindFormat, "invite URL missing swarm_id")
	}
	swarmID = rest[:at]

	q := strings.Index(rest, "?")
	if q < 0 {
		return "", "", errs.New(errs.KindFormat, "invite URL missing token query parameter")
	}
	values, err := url.ParseQuery(rest[q+1:])
	if err != nil {
		return "", "", errs.Wrap(errs.KindFormat, err, "parsing invite URL query")
	}
	token = values.Get("token")
	if token == "" {
		return "", "", errs.New(errs.KindFormat, "invite URL missing token query parameter")
	}
	return swarmID, token, nil
}
