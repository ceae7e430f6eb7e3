package domain

import "errors"

var (
	// ErrNotFound is returned when no lookup tier produced a usable result
	ErrNotFound = errors.New("no results found")

	// ErrUpstreamTimeout is returned when a network tier exceeded its deadline
	ErrUpstreamTimeout = errors.New("upstream lookup timed out")

	// ErrUpstreamFailure is returned when an upstream request fails for any other reason
	ErrUpstreamFailure = errors.New("upstream request failed")

	// ErrMalformedEstimate is returned when an estimator payload cannot be parsed
	// or lacks a required macro field
	ErrMalformedEstimate = errors.New("malformed nutrition estimate")

	// ErrEstimatorDisabled is returned when estimation is requested but not configured
	ErrEstimatorDisabled = errors.New("nutrition estimator not configured")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrIncompatibleUnits is returned when a continuous quantity is requested
	// against a reference declared per portion
	ErrIncompatibleUnits = errors.New("quantity unit incompatible with reference unit")

	// ErrInvalidProfile is returned when a body profile fails validation
	ErrInvalidProfile = errors.New("invalid body profile")

	// ErrEntryNotFound is returned when a log entry, favorite or profile does not exist
	ErrEntryNotFound = errors.New("record not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
