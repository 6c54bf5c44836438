package types

import "errors"

// Row and column errors.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrColumnNotFound  = errors.New("column not found")
	ErrInvalidStatus   = errors.New("invalid status value")
	ErrInvalidCategory = errors.New("invalid category value")
	ErrInvalidDate     = errors.New("invalid date value")
	ErrDerivedColumn   = errors.New("derived column is not editable")
)

// Ledger lifecycle and dialog errors.
var (
	ErrClosed      = errors.New("ledger is closed")
	ErrDialogBusy  = errors.New("a confirmation is already pending")
	ErrNoDialog    = errors.New("no confirmation is pending")
	ErrNotEditing  = errors.New("no cell is being edited")
	ErrRatesAbsent = errors.New("exchange rates unavailable")
)

// Backend lifecycle errors.
var (
	ErrDetached        = errors.New("backend is not attached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)

// Import errors.
var (
	ErrInvalidImport = errors.New("invalid dashboard export file")
)

// Identity and transport errors.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("email and password are required")
	ErrConflict           = errors.New("resource conflict")
	ErrNotSignedIn        = errors.New("not signed in")
	ErrUnavailable        = errors.New("service unavailable")
)

// Request errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// wireCodes are the stable error codes carried in error responses so that a
// client can recover the sentinel a server returned.
var wireCodes = []struct {
	code string
	err  error
}{
	{"not_found", ErrNotFound},
	{"invalid_id", ErrInvalidID},
	{"invalid_credentials", ErrInvalidCredentials},
	{"unauthorized", ErrUnauthorized},
	{"conflict", ErrConflict},
	{"unavailable", ErrUnavailable},
	{"bad_request", ErrBadRequest},
}

// ErrorCode returns the wire code of err, or "" when err wraps none of the
// sentinels that cross the wire.
func ErrorCode(err error) string {
	for _, wc := range wireCodes {
		if errors.Is(err, wc.err) {
			return wc.code
		}
	}
	return ""
}

// ErrorForCode returns the sentinel for a wire code, or nil.
func ErrorForCode(code string) error {
	for _, wc := range wireCodes {
		if wc.code == code {
			return wc.err
		}
	}
	return nil
}
