package pool

import (
	"errors"
	"fmt"
)

// sentinel errors for errors.Is checks
var (
	ErrConfig     = errors.New("pool configuration error")
	ErrConnection = errors.New("pool connection error")
	ErrQuery      = errors.New("query execution error")
)

// ConfigError reports missing or invalid database settings. Fatal to the caller.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

// Unwrap returns the sentinel and the wrapped cause
func (e *ConfigError) Unwrap() []error { return chain(ErrConfig, e.Err) }

// ConnectionError reports an unreachable store, a failed TLS handshake or a failed acquisition
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error, %s: %v", e.Op, e.Err)
}

// Unwrap returns the sentinel and the wrapped cause
func (e *ConnectionError) Unwrap() []error { return chain(ErrConnection, e.Err) }

// QueryError is attached to a Result when the statement itself failed
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

// Unwrap returns the sentinel and the wrapped cause
func (e *QueryError) Unwrap() []error { return chain(ErrQuery, e.Err) }

func chain(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
