// Package common defines shared constants and sentinel errors used across
// the qrbind server. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// ErrBindConflict is returned when a conditional update matched no row,
	// i.e. another transaction consumed the candidate first.
	ErrBindConflict = errors.New("bind conflict")

	// auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// resolution errors
	ErrTokenNotFound         = errors.New("token not found")
	ErrCategoryExhausted     = errors.New("no available original for this brand/type")
	ErrLinkedOriginalMissing = errors.New("original missing")
	ErrStoreUnavailable      = errors.New("store unavailable")
	ErrMalformedToken        = errors.New("malformed token")
)
