package content

import (
	"errors"
	"fmt"
)

// Sentinel auth failures, matched with errors.Is.
var (
	ErrNoAccount        = errors.New("no account found, login first")
	ErrAccountAmbiguous = errors.New("multiple accounts found, select one")
	ErrBadCredentials   = errors.New("invalid credentials")
)

// AuthError reports a failure to establish an authenticated session.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("auth: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a transport failure or a non-success response.
type NetworkError struct {
	URL    string
	Status string
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request %s: %s", e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown catalog identifier.
type NotFoundError struct {
	Kind Kind
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s entry found for ID %d", e.Kind, e.ID)
}

// FileConflictError reports an already-occupied download destination.
type FileConflictError struct {
	Path string
}

func (e *FileConflictError) Error() string {
	return fmt.Sprintf("file %q already exists", e.Path)
}

// ParseError reports an expected structural element missing from
// fetched markup. During ingestion it marks one bad candidate, not a
// failed scan.
type ParseError struct {
	Kind    Kind
	Element string
}

func (e *ParseError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("parse: missing %s", e.Element)
	}
	return fmt.Sprintf("parse %s: missing %s", e.Kind, e.Element)
}

// PostconditionError reports a destination file missing after a
// transfer reported success. Non-fatal.
type PostconditionError struct {
	Path string
}

func (e *PostconditionError) Error() string {
	return fmt.Sprintf("downloaded file is missing: %s", e.Path)
}
