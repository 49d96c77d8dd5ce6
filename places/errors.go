// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

package places

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidArgument signals a programming contract violation, such as a nil
// client handed to the RepositoryCache.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrorKind classifies repository failures.
type ErrorKind int

const (
	// KindUnavailable transport or service failure.
	KindUnavailable ErrorKind = iota
	// KindNoLocation no usable position was supplied.
	KindNoLocation
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindNoLocation:
		return "no location"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// RepositoryError is returned by every Repository operation.
type RepositoryError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RepositoryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

func unavailable(msg string, err error) *RepositoryError {
	return &RepositoryError{Kind: KindUnavailable, Message: msg, Err: err}
}

// IsUnavailable reports whether err is a transport or service failure.
func IsUnavailable(err error) bool {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Kind == KindUnavailable
	}

	return false
}

// IsNoLocation reports whether err was caused by a missing or unusable position.
func IsNoLocation(err error) bool {
	var repoErr *RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.Kind == KindNoLocation
	}

	return false
}

// ClassifyHTTPError turns an unexpected HTTP status from a places service into
// a RepositoryError. Every status maps to KindUnavailable; the message keeps
// the detail for logs.
func ClassifyHTTPError(statusCode int, body string) *RepositoryError {
	var msg string

	switch statusCode {
	case http.StatusTooManyRequests:
		msg = "rate limit reached"
	case http.StatusForbidden:
		msg = "quota exceeded or access denied"
	case http.StatusBadRequest:
		msg = "invalid request"
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		msg = fmt.Sprintf("service unavailable (status %d)", statusCode)
	default:
		msg = fmt.Sprintf("HTTP error %d", statusCode)
	}

	var err error
	if body != "" {
		err = errors.New(body)
	}

	return unavailable(msg, err)
}
