package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Error kinds. Concrete error types below match their kind via errors.Is.
var (
	ErrTransport   = errors.New("transport error")
	ErrFormat      = errors.New("format error")
	ErrRecordParse = errors.New("record parse error")
	ErrStoreIO     = errors.New("store io error")
)

// TransportError covers DNS, connect, timeout and non-2xx failures.
type TransportError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s (status %s): %v", e.URL, e.StatusText(), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// StatusText returns the HTTP status code, or "N/A" when there was no response.
func (e *TransportError) StatusText() string {
	if e.Status == 0 {
		return "N/A"
	}
	return strconv.Itoa(e.Status)
}

// FormatError reports an unexpected content type or malformed top-level payload.
type FormatError struct {
	URL    string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "unexpected payload"
	if e.URL != "" {
		msg += " from " + e.URL
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// RecordParseError is one item of an otherwise valid batch that could not be parsed.
type RecordParseError struct {
	Index int
	Ref   string // identifying context such as a file name or guid
	Err   error
}

func (e *RecordParseError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("item %d (%s): %v", e.Index, e.Ref, e.Err)
	}
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *RecordParseError) Unwrap() error { return e.Err }

func (e *RecordParseError) Is(target error) bool { return target == ErrRecordParse }

// StoreIOError wraps a failure to write a store or marker file.
type StoreIOError struct {
	Path string
	Err  error
}

func (e *StoreIOError) Error() string { return fmt.Sprintf("store %s: %v", e.Path, e.Err) }

func (e *StoreIOError) Unwrap() error { return e.Err }

func (e *StoreIOError) Is(target error) bool { return target == ErrStoreIO }

// ErrorClass maps an error to a short label for metrics and the run ledger.
func ErrorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrStoreIO):
		return "store_io"
	default:
		return "other"
	}
}

// errMissing is returned by parsers when a field needed for the unique key is absent.
func errMissing(field string) error {
	return fmt.Errorf("missing required field %q", field)
}
