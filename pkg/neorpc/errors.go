package neorpc

import (
	"errors"
	"fmt"
)

// Error represents JSON-RPC 2.0 error type.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Standard RPC error codes defined by the JSON-RPC 2.0 specification.
const (
	// InternalServerErrorCode is returned for internal RPC server error.
	InternalServerErrorCode = -32603
	// BadRequestCode is returned on parse error.
	BadRequestCode = -32700
	// InvalidRequestCode is returned on invalid request.
	InvalidRequestCode = -32600
	// MethodNotFoundCode is returned on unknown method calling.
	MethodNotFoundCode = -32601
	// InvalidParamsCode is returned on request with invalid params.
	InvalidParamsCode = -32602
)

// Oracle error codes, every error kind of the oracle has its own stable code.
const (
	// ErrUnknownCode is returned for any failure without a specific code.
	ErrUnknownCode = -100
	// ErrNotFoundCode is returned when the requested executor or request
	// is missing.
	ErrNotFoundCode = -101
	// ErrUnauthorizedCode is returned for owner-only commands sent by
	// anyone else.
	ErrUnauthorizedCode = -102
	// ErrAlreadyFinishedCode is returned on the repeated merkle root
	// registration.
	ErrAlreadyFinishedCode = -103
	// ErrInvalidThresholdCode is returned when the request threshold is not
	// admitted.
	ErrInvalidThresholdCode = -104
	// ErrInvalidIdentityCode is returned for malformed executor public keys.
	ErrInvalidIdentityCode = -105
	// ErrNoMerkleRootCode is returned when the data is verified against a
	// pending request.
	ErrNoMerkleRootCode = -106
	// ErrDecodeCode is returned for malformed hex-encoded hashes.
	ErrDecodeCode = -107
	// ErrWrongLengthCode is returned for hashes of a wrong length.
	ErrWrongLengthCode = -108
	// ErrInvalidArgumentCode is returned for values that are out of the
	// allowed range.
	ErrInvalidArgumentCode = -109

	// ErrAlreadyExistsCode is returned for transactions that are already
	// committed.
	ErrAlreadyExistsCode = -501
	// ErrInvalidTransactionCode is returned for malformed transactions and
	// transactions with an invalid signature.
	ErrInvalidTransactionCode = -502
)

var (
	// ErrInvalidParams represents a generic "Invalid params" error.
	ErrInvalidParams = NewInvalidParamsError("Invalid params")
	// ErrUnknown is a generic oracle error.
	ErrUnknown = NewError(ErrUnknownCode, "Unknown error")
	// ErrNotFound is returned for missing entities.
	ErrNotFound = NewError(ErrNotFoundCode, "Not found")
	// ErrUnauthorized is returned for unauthorized senders.
	ErrUnauthorized = NewError(ErrUnauthorizedCode, "Unauthorized")
	// ErrAlreadyFinished is returned for finished requests.
	ErrAlreadyFinished = NewError(ErrAlreadyFinishedCode, "Request is already finished")
	// ErrInvalidThreshold is returned for rejected thresholds.
	ErrInvalidThreshold = NewError(ErrInvalidThresholdCode, "Invalid threshold")
	// ErrInvalidIdentity is returned for malformed executor identities.
	ErrInvalidIdentity = NewError(ErrInvalidIdentityCode, "Invalid executor identity")
	// ErrNoMerkleRoot is returned for pending requests.
	ErrNoMerkleRoot = NewError(ErrNoMerkleRootCode, "No merkle root")
	// ErrDecode is returned for malformed hashes.
	ErrDecode = NewError(ErrDecodeCode, "Decode error")
	// ErrWrongLength is returned for hashes of a wrong length.
	ErrWrongLength = NewError(ErrWrongLengthCode, "Wrong length")
	// ErrInvalidArgument is returned for out of range values.
	ErrInvalidArgument = NewError(ErrInvalidArgumentCode, "Invalid argument")
	// ErrAlreadyExists is returned for known transactions.
	ErrAlreadyExists = NewError(ErrAlreadyExistsCode, "Already exists")
	// ErrInvalidTransaction is returned for invalid transactions.
	ErrInvalidTransaction = NewError(ErrInvalidTransactionCode, "Invalid transaction")
)

// NewError is an Error constructor that takes Error contents from its
// parameters.
func NewError(code int64, message string, data ...string) *Error {
	var d string
	if len(data) != 0 {
		d = data[0]
	}
	return &Error{
		Code:    code,
		Message: message,
		Data:    d,
	}
}

// NewParseError creates a new error with code -32700.
func NewParseError(data string) *Error {
	return NewError(BadRequestCode, "Parse error", data)
}

// NewInvalidRequestError creates a new error with code -32600.
func NewInvalidRequestError(data string) *Error {
	return NewError(InvalidRequestCode, "Invalid request", data)
}

// NewMethodNotFoundError creates a new error with code -32601.
func NewMethodNotFoundError(data string) *Error {
	return NewError(MethodNotFoundCode, "Method not found", data)
}

// NewInvalidParamsError creates a new error with code -32602.
func NewInvalidParamsError(data string) *Error {
	return NewError(InvalidParamsCode, "Invalid params", data)
}

// NewInternalServerError creates a new error with code -32603.
func NewInternalServerError(data string) *Error {
	return NewError(InternalServerErrorCode, "Internal error", data)
}

// WrapErrorWithData returns copy of the given error with the specified data and cause.
// It does not modify the source error.
func WrapErrorWithData(e *Error, data string) *Error {
	return NewError(e.Code, e.Message, data)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Data) == 0 {
		return fmt.Sprintf("%s (%d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%d) - %s", e.Message, e.Code, e.Data)
}

// Is denotes whether the error matches the target one.
func (e *Error) Is(target error) bool {
	var clTarget *Error
	if errors.As(target, &clTarget) {
		return e.Code == clTarget.Code
	}
	return false
}
