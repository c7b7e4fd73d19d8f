package track

import (
	"errors"
	"fmt"
)

// Kind separates problems with the caller's input from failures of the
// service or its dependencies.
type Kind int

const (
	ClientInput Kind = iota + 1
	ServerFault
)

func (k Kind) String() string {
	switch k {
	case ClientInput:
		return "client_input"
	case ServerFault:
		return "server_fault"
	default:
		return "unknown"
	}
}

// Reason is the machine readable code returned to clients.
type Reason string

const (
	ReasonInvalidRequest        Reason = "invalid_request"
	ReasonInvalidName           Reason = "invalid_name"
	ReasonMissingFile           Reason = "missing_file"
	ReasonFileTooLarge          Reason = "file_too_large"
	ReasonUnsupportedExtension  Reason = "unsupported_extension"
	ReasonUnreadableMedia       Reason = "unreadable_media"
	ReasonUnsupportedFormat     Reason = "unsupported_format"
	ReasonDurationExceeded      Reason = "duration_exceeded"
	ReasonNameTaken             Reason = "name_taken"
	ReasonRangeNotSatisfiable   Reason = "range_not_satisfiable"
	ReasonNotFound              Reason = "not_found"
	ReasonServerBusy            Reason = "server_busy"
	ReasonNormalizationFailed   Reason = "normalization_failed"
	ReasonStorageFailure        Reason = "storage_failure"
	ReasonRecordCreationFailure Reason = "record_creation_failure"
	ReasonDeliveryFailed        Reason = "delivery_failed"
	ReasonInternal              Reason = "internal_error"
)

// Error is returned by every operation in this package.
type Error struct {
	Kind    Kind
	Reason  Reason
	Message string // safe to show to clients
	Err     error  // underlying cause, for logs only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error for callers outside this package.
func NewError(kind Kind, reason Reason, message string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message, Err: err}
}

func clientError(reason Reason, format string, args ...any) *Error {
	return &Error{Kind: ClientInput, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func serverFault(reason Reason, err error, format string, args ...any) *Error {
	return &Error{Kind: ServerFault, Reason: reason, Message: fmt.Sprintf(format, args...), Err: err}
}

// NotFound is the error for an id or name that does not resolve to a live track.
func NotFound(format string, args ...any) *Error {
	return clientError(ReasonNotFound, format, args...)
}

// KindOf reports the kind of err. Errors from outside this package count as
// server faults.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return ServerFault
}

// ReasonOf returns the reason carried by err, or ReasonInternal.
func ReasonOf(err error) Reason {
	var te *Error
	if errors.As(err, &te) {
		return te.Reason
	}
	return ReasonInternal
}

// PartialDeliveryFault describes a response that failed after some of the
// body had already been sent. The status line is gone, so it can only be
// logged and the connection dropped.
type PartialDeliveryFault struct {
	TrackID   int64
	Key       string
	BytesSent int64
	Expected  int64
	Err       error
}

func (f *PartialDeliveryFault) Error() string {
	return fmt.Sprintf("delivery of track %d (%s) interrupted after %d/%d bytes: %v",
		f.TrackID, f.Key, f.BytesSent, f.Expected, f.Err)
}

func (f *PartialDeliveryFault) Unwrap() error {
	return f.Err
}
