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

package store

import (
	"strings"
	"time"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

// MaxListLimit is the hard cap applied to every list query's limit
// parameter, regardless of what the caller requested.
const MaxListLimit = 100

// clampLimit validates and caps a caller-supplied limit.
func clampLimit(limit int) (int, error) {
	if limit < 1 {
		return 0, errs.Newf(errs.KindValidation, "limit must be a positive integer, got %d", limit)
	}
	if limit > MaxListLimit {
		return MaxListLimit, nil
	}
	return limit, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
