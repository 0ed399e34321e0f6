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

// Package api implements the ingress HTTP surface: the net/http.ServeMux
// routing and handlers agents use to exchange messages, manage swarm
// membership, inspect inbox/outbox state, and trigger wake invocations.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sage-x-project/swarmmesh/internal/errs"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusForKind maps an errs.Kind to its default HTTP status and machine
// code. Individual handlers may override this for endpoints whose contract
// assigns a kind a different status (e.g. /swarm/join's pending-approval
// case).
func statusForKind(kind errs.Kind) (int, string) {
	switch kind {
	case errs.KindFormat:
		return http.StatusBadRequest, "INVALID_FORMAT"
	case errs.KindValidation:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errs.KindSignature:
		return http.StatusUnauthorized, "INVALID_SIGNATURE"
	case errs.KindExpired:
		return http.StatusUnauthorized, "EXPIRED"
	case errs.KindNotMaster:
		return http.StatusForbidden, "NOT_MASTER"
	case errs.KindNotMember:
		return http.StatusNotFound, "NOT_MEMBER"
	case errs.KindSwarmNotFound:
		return http.StatusNotFound, "SWARM_NOT_FOUND"
	case errs.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case errs.KindTransport:
		return http.StatusBadGateway, "TRANSPORT_ERROR"
	case errs.KindRateLimited:
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errs.KindWakeEndpoint:
		return http.StatusBadGateway, "WAKE_ENDPOINT_ERROR"
	case errs.KindInvocation:
		return http.StatusConflict, "INVOCATION_IN_PROGRESS"
	case errs.KindStorage:
		return http.StatusInternalServerError, "STORAGE_ERROR"
	case errs.KindImport:
		return http.StatusBadRequest, "IMPORT_ERROR"
	case errs.KindSession:
		return http.StatusConflict, "SESSION_ERROR"
	case errs.KindApprovalNeeded:
		return http.StatusAccepted, "APPROVAL_REQUIRED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// writeError renders err as its mapped HTTP status and JSON error body. A
// non-*errs.Error is treated as an opaque internal failure: its message is
// logged by the caller but never echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *errs.Error
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL_ERROR"})
		return
	}
	status, code := statusForKind(appErr.Kind)
	writeJSON(w, status, errorBody{Error: appErr.Message, Code: code})
}
