package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no symbol-search candidate matched the ticker. Terminal, never retried.
	ErrNotFound = errors.New("ticker not found")

	// ErrInvalidSection means a section key outside the fixed set.
	ErrInvalidSection = errors.New("invalid section")

	// ErrInvalidTicker means the ticker normalized to an empty string.
	ErrInvalidTicker = errors.New("invalid ticker")

	// ErrRecordNotFound means the cache holds no record (or no section content) for the key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrIdentityMissing means a section write was attempted before the identity was saved.
	ErrIdentityMissing = errors.New("identity record missing")
)

// StorageError wraps a cache backend failure. It is always a hard failure.
type StorageError struct {
	Op     string
	Ticker string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s failed for %s: %v", e.Op, e.Ticker, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the failing operation. A nil err stays nil.
func NewStorageError(op, ticker string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Ticker: ticker, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
