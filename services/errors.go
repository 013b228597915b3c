package services

import (
	"errors"
	"fmt"
)

// ErrDataConsistency marks a chain whose link invariants are broken. It is
// fatal for the resolution that hit it and is never retried.
var ErrDataConsistency = errors.New("identity chain data is inconsistent")

// DataConsistencyError reports which contact broke the chain invariants.
type DataConsistencyError struct {
	ContactID uint
	Reason    string
}

func (e *DataConsistencyError) Error() string {
	return fmt.Sprintf("contact %d: %s", e.ContactID, e.Reason)
}

func (e *DataConsistencyError) Unwrap() error {
	return ErrDataConsistency
}

func consistencyError(contactID uint, format string, args ...any) error {
	return &DataConsistencyError{ContactID: contactID, Reason: fmt.Sprintf(format, args...)}
}
