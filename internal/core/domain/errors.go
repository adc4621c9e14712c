package domain

import "errors"

// Kind classifies the failures the core can report. Handlers map kinds to
// HTTP statuses; nothing below the handler layer knows about HTTP.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindSameAccount
	KindNotFound
	KindInsufficientFunds
	KindStorageFailure
)

// Error is a typed failure carrying a kind and a user-facing message.
// StorageFailure wraps the underlying driver error, which is logged but never
// sent to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func InvalidArgument(msg string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: msg}
}

func SameAccount(msg string) *Error {
	return &Error{Kind: KindSameAccount, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func InsufficientFunds(msg string) *Error {
	return &Error{Kind: KindInsufficientFunds, Message: msg}
}

func StorageFailure(err error) *Error {
	return &Error{Kind: KindStorageFailure, Message: "internal server error", Err: err}
}

// KindOf extracts the kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of a typed error, or a generic
// message for untyped ones.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}
