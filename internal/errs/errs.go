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

// Package errs defines the tagged error kind shared by every swarmmesh
// component. Inheritance hierarchies collapse to this single type; HTTP
// status mapping lives only at the ingress boundary (internal/api).
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies the category of a swarmmesh error.
type Kind string

// Error kinds, as enumerated in the protocol design.
const (
	KindFormat         Kind = "format"
	KindValidation     Kind = "validation"
	KindSignature      Kind = "signature"
	KindExpired        Kind = "expired"
	KindNotMaster      Kind = "not-master"
	KindNotMember      Kind = "not-member"
	KindSwarmNotFound  Kind = "swarm-not-found"
	KindNotFound       Kind = "not-found"
	KindTransport      Kind = "transport"
	KindRateLimited    Kind = "rate-limited"
	KindWakeEndpoint   Kind = "wake-endpoint"
	KindInvocation     Kind = "invocation"
	KindStorage        Kind = "storage"
	KindImport         Kind = "import"
	KindSession        Kind = "session"
	KindApprovalNeeded Kind = "approval-required"
)

// Error is a kind-tagged application error.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind, recording the cause for Unwrap.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails attaches structured detail fields and returns the receiver.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
