package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork marks transport and HTTP failures while loading history.
	ErrNetwork = errors.New("network error")
	// ErrSchema marks transactions that do not match the expected field layout.
	ErrSchema = errors.New("schema error")
	// ErrLookup marks collection contracts missing from the registry.
	ErrLookup = errors.New("lookup error")
)

// SchemaError carries the field and path that failed to extract.
type SchemaError struct {
	Field  string
	Path   string
	TxHash string
	Reason string
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("schema error: field %q", e.Field)
	if e.Path != "" {
		msg += fmt.Sprintf(" at %s", e.Path)
	}
	if e.TxHash != "" {
		msg += fmt.Sprintf(" in tx %s", e.TxHash)
	}
	return msg + ": " + e.Reason
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// LookupError is returned for a contract address with no registered name.
type LookupError struct {
	Contract string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup error: collection not found: %s", e.Contract)
}

func (e *LookupError) Unwrap() error { return ErrLookup }
