// Copyright (c) The ClusterLink Authors.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"fmt"
)

// Kind classifies an error reported to consumers of the core systems.
type Kind int

const (
	// KindInternal is an unclassified failure.
	KindInternal Kind = iota
	// KindBadRequest is a malformed or inconsistent request.
	KindBadRequest
	// KindConfiguration is a deployment problem, such as a required core system being absent.
	KindConfiguration
	// KindUnavailable is a collaborator which cannot be reached or located.
	KindUnavailable
	// KindNoMatch is a negotiation for which no relay or provider could be matched.
	KindNoMatch
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad request"
	case KindConfiguration:
		return "configuration error"
	case KindUnavailable:
		return "unavailable"
	case KindNoMatch:
		return "no match"
	default:
		return "internal error"
	}
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for _, kind := range []Kind{KindBadRequest, KindConfiguration, KindUnavailable, KindNoMatch, KindInternal} {
		if kind.String() == name {
			return kind, true
		}
	}
	return KindInternal, false
}

// Error is a classified error.
type Error struct {
	// Kind of the error.
	Kind Kind
	// Field is the offending request field, if any.
	Field string
	// Message describing the error.
	Message string
	// Err is the underlying cause, if any.
	Err error
}

// Error returns the error message.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// BadRequest returns an error for an invalid request field.
func BadRequest(field, format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError returns an error for a deployment problem.
func ConfigurationError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// Unavailable returns an error for a collaborator which cannot be used.
func Unavailable(err error, format string, args ...any) *Error {
	return &Error{Kind: KindUnavailable, Message: fmt.Sprintf(format, args...), Err: err}
}

// NoMatch returns an error for a failed negotiation.
func NoMatch(format string, args ...any) *Error {
	return &Error{Kind: KindNoMatch, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first classified error in the chain of err.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind returns true if err is classified with the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
