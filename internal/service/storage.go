package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	appErrors "github.com/edupulse/edupulse-api/pkg/errors"
)

// storageError translates repository failures into the domain taxonomy.
// Timeouts and connection drops become retryable StorageUnavailable errors;
// everything else is internal.
func storageError(err error, message string) error {
	if isTransient(err) {
		return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
