package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEntityNotFound signals an entity that vanished between enqueue and prepare.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrTransport signals a failed call to the search engine.
	ErrTransport = errors.New("transport failure")
	// ErrConfiguration signals a missing index name or unresolvable tenant.
	ErrConfiguration = errors.New("configuration error")
	// ErrPolicyVeto signals that a registered hook vetoed the operation.
	ErrPolicyVeto = errors.New("vetoed by policy")
	// ErrTenantNotFound signals an unknown tenant in a scoped request.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrReindexCanceled signals a cooperatively canceled reindex run.
	ErrReindexCanceled = errors.New("reindex canceled")
	// ErrReindexPaused signals a cooperatively paused reindex run.
	ErrReindexPaused = errors.New("reindex paused")
	// ErrNoReindex signals that no reindex run is in progress.
	ErrNoReindex = errors.New("no reindex in progress")
)

// TransportError wraps ErrTransport with the failed operation and HTTP status.
// Status is zero for network-level failures that never produced a response.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", ErrTransport.Error(), e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrTransport.Error(), e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return ErrTransport }

// NewTransportError creates a transport error for the given engine operation.
func NewTransportError(op string, status int, err error) error {
	return &TransportError{Op: op, Status: status, Err: err}
}
