// Package fiscalerr defines the error taxonomy shared by the document
// pipeline and the HTTP layer.
//
// Every fatal condition carries a stable [Kind] (and, for transport
// failures, a [SubKind]) so callers can map it to a response code without
// parsing messages.
package fiscalerr

import (
	"errors"
	"fmt"
)

// Kind is the stable error code of a pipeline failure.
type Kind string

// Pipeline error kinds
const (
	KindCertificateNotFound         Kind = "CERTIFICATE_NOT_FOUND"
	KindInvalidCertificate          Kind = "INVALID_CERTIFICATE"
	KindInvalidPassword             Kind = "INVALID_PASSWORD"
	KindDocumentBuild               Kind = "DOCUMENT_BUILD_ERROR"
	KindInvalidKeyLength            Kind = "INVALID_KEY_LENGTH"
	KindSigning                     Kind = "SIGNING_ERROR"
	KindTransport                   Kind = "TRANSPORT_FAILURE"
	KindUpstreamFault               Kind = "UPSTREAM_FAULT"
	KindUpstreamResponseUnparseable Kind = "UPSTREAM_RESPONSE_UNPARSEABLE"
)

// Plumbing error kinds used outside the document pipeline
const (
	KindAccountNotFound   Kind = "ACCOUNT_NOT_FOUND"
	KindAccountExists     Kind = "ACCOUNT_ALREADY_EXISTS"
	KindInvalidAPIKey     Kind = "INVALID_API_KEY"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindMissingField      Kind = "MISSING_REQUIRED_FIELD"
	KindUnsupportedLayout Kind = "UNSUPPORTED_LAYOUT"
	KindRateLimit         Kind = "RATE_LIMIT_EXCEEDED"
	KindRequestTooLarge   Kind = "REQUEST_TOO_LARGE"
	KindInternal          Kind = "INTERNAL_ERROR"
)

// SubKind refines [KindTransport].
type SubKind string

// Transport failure sub-kinds
const (
	SubKindUnauthorized        SubKind = "UNAUTHORIZED"
	SubKindForbidden           SubKind = "FORBIDDEN"
	SubKindEndpointNotFound    SubKind = "ENDPOINT_NOT_FOUND"
	SubKindUpstreamServerError SubKind = "UPSTREAM_SERVER_ERROR"
	SubKindNoResponse          SubKind = "NO_RESPONSE"
	SubKindHTTPError           SubKind = "HTTP_ERROR"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	SubKind SubKind

	// Message is safe to show to the tenant.
	Message string

	// Field names the offending input member for build errors, when known.
	Field string

	// StatusCode is the upstream HTTP status for transport failures.
	StatusCode int

	// Raw holds the upstream response body for upstream and transport failures.
	Raw []byte

	// Debug is attached by the orchestration layer when the caller asked
	// for the raw SOAP exchange.
	Debug any

	Err error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.SubKind != "" {
		msg += "/" + string(e.SubKind)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the stable code, e.g. "TRANSPORT_FAILURE".
func (e *Error) Code() string { return string(e.Kind) }

// New creates an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Build reports a missing or malformed input member.
func Build(field, msg string) *Error {
	return &Error{Kind: KindDocumentBuild, Field: field, Message: msg}
}

// Buildf is [Build] with a formatted message.
func Buildf(field, format string, args ...any) *Error {
	return Build(field, fmt.Sprintf(format, args...))
}

// Transport reports a classified transport failure.
func Transport(sub SubKind, status int, msg string, err error) *Error {
	return &Error{Kind: KindTransport, SubKind: sub, StatusCode: status, Message: msg, Err: err}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the kind of err, or [KindInternal] when err is not classified.
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return KindInternal
}

// SubKindOf returns the transport sub-kind of err, if any.
func SubKindOf(err error) SubKind {
	if fe, ok := As(err); ok {
		return fe.SubKind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	fe, ok := As(err)
	return ok && fe.Kind == kind
}
