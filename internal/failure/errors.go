// Package failure defines the error taxonomy shared by the thumbnail
// pipeline, storage association, endpoints and the backfill driver.
package failure

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// Kind classifies a failure.
type Kind string

const (
	InvalidInput              Kind = "invalid_input"
	InvalidGeometry           Kind = "invalid_geometry"
	DecodeError               Kind = "decode_error"
	RasterizationError        Kind = "rasterization_error"
	EncodeError               Kind = "encode_error"
	UpstreamFetchError        Kind = "upstream_fetch_error"
	StorageWriteError         Kind = "storage_write_error"
	AssociationPartialFailure Kind = "association_partial_failure"

	// Unsupported marks a document whose media kind has no preview. The
	// backfill counts it as skipped, not failed.
	Unsupported Kind = "unsupported"
)

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind. A nil err still yields a non-nil *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an *Error from a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the outermost Kind in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FailureType maps a kind onto the retry classification used in events.
func (k Kind) FailureType() schema.FailureType {
	switch k {
	case InvalidInput, InvalidGeometry, Unsupported:
		return schema.FailureTypeValidation
	case DecodeError, RasterizationError, EncodeError:
		return schema.FailureTypePermanent
	default:
		return schema.FailureTypeRetryable
	}
}

// HTTPStatus maps a kind onto the status the endpoints respond with.
func (k Kind) HTTPStatus() int {
	switch k {
	case InvalidInput, Unsupported:
		return http.StatusBadRequest
	case InvalidGeometry, DecodeError, RasterizationError:
		return http.StatusUnprocessableEntity
	case UpstreamFetchError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Summary is the short, caller-facing description of a kind.
func (k Kind) Summary() string {
	switch k {
	case InvalidInput:
		return "Invalid request"
	case InvalidGeometry:
		return "Invalid image dimensions"
	case DecodeError:
		return "Failed to decode image"
	case RasterizationError:
		return "Failed to render document"
	case EncodeError:
		return "Failed to encode thumbnail"
	case UpstreamFetchError:
		return "Failed to fetch source file"
	case StorageWriteError:
		return "Failed to store thumbnail"
	case AssociationPartialFailure:
		return "Thumbnail stored but drawing not updated"
	case Unsupported:
		return "Unsupported file type"
	default:
		return "Failed to generate thumbnail"
	}
}
