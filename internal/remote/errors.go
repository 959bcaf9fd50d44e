package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a response the remote API actually produced: the request
// was delivered but rejected.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned %d: %s", e.Status, e.Message)
}

// TransportError means no response reached us at all (dial failure, timeout,
// connection reset). The device is treated as offline when one occurs.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("remote unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether the remote rejected our credentials. Both
// 401 and 403 halt a drain until re-authentication happens elsewhere.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden)
}

// IsConflict reports whether the action was already applied server-side.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusConflict
}

// IsTransport reports whether the request never reached the remote.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
