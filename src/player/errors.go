package player

import "fmt"

// ConnectionError means the backend transport could not be reached.
type ConnectionError struct {
	Backend string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: backend unreachable: %v", e.Backend, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthorizationError means the credential for a backend is missing,
// invalid or expired, and cannot be renewed without interactive
// re-authorization.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization required: %s", e.Reason)
}

// UnexpectedResponseError means the backend answered with a status code
// outside the documented success/pending set.
type UnexpectedResponseError struct {
	Endpoint string
	Status   int
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response %d from %s", e.Status, e.Endpoint)
}

// ParseError means a status or playlist document could not be decoded.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed %s document: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
