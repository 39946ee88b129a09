package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures
type ErrorKind string

const (
	KindAuth                ErrorKind = "auth"                 // fatal, aborts the run
	KindCatalog             ErrorKind = "catalog"              // aborts one game's batch
	KindNavigation          ErrorKind = "navigation"           // clip page failed to load
	KindExtractionExhausted ErrorKind = "extraction_exhausted" // no media URL after all probes
	KindDownloadHTTP        ErrorKind = "download_http"        // non-success media response
	KindDownloadIO          ErrorKind = "download_io"          // local read/write failure
	KindCancelled           ErrorKind = "cancelled"
)

var (
	ErrEmptyLocaleTable   = errors.New("locale table is empty")
	ErrMissingCredentials = errors.New("client id and client secret must be set")
	ErrGameNotFound       = errors.New("game not found")
	ErrClipNotFound       = errors.New("clip not found")
)

// Error is a typed pipeline error
type Error struct {
	Kind       ErrorKind
	Op         string
	StatusCode int
	Err        error
}

// NewError creates a typed error
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first typed error in err's chain
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsFatal reports whether err must abort the whole run
func IsFatal(err error) bool {
	return KindOf(err) == KindAuth
}
