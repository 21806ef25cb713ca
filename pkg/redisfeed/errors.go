package redisfeed

import "errors"

// Domain-specific errors. Use errors.Is() to check error types.
var (
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL")
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
	ErrDecode                       = errors.New("failed to decode redis payload")
	ErrEncode                       = errors.New("failed to encode value")
)
