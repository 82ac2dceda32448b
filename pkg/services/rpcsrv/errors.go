package rpcsrv

import (
	"errors"
	"net/http"

	"github.com/nspcc-dev/aioracle/pkg/core"
	"github.com/nspcc-dev/aioracle/pkg/core/oracle"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/neorpc"
)

// abstractResult is an interface which represents either single JSON-RPC 2.0 response
// or batch JSON-RPC 2.0 response.
type abstractResult interface {
	RunForErrors(f func(jsonErr *neorpc.Error))
}

// abstract represents abstract JSON-RPC 2.0 response. It is used as a server-side response
// representation.
type abstract struct {
	neorpc.Header
	Error  *neorpc.Error `json:"error,omitempty"`
	Result any           `json:"result,omitempty"`
}

// RunForErrors implements abstractResult interface.
func (a abstract) RunForErrors(f func(jsonErr *neorpc.Error)) {
	if a.Error != nil {
		f(a.Error)
	}
}

// abstractBatch represents abstract JSON-RPC 2.0 batch-response.
type abstractBatch []abstract

// RunForErrors implements abstractResult interface.
func (ab abstractBatch) RunForErrors(f func(jsonErr *neorpc.Error)) {
	for _, a := range ab {
		if a.Error != nil {
			f(a.Error)
		}
	}
}

// errorKinds maps every error kind of the ledger to its RPC error, the
// first match wins.
var errorKinds = []struct {
	err error
	rpc *neorpc.Error
}{
	{oracle.ErrNotFound, neorpc.ErrNotFound},
	{storage.ErrKeyNotFound, neorpc.ErrNotFound},
	{oracle.ErrUnauthorized, neorpc.ErrUnauthorized},
	{oracle.ErrAlreadyFinished, neorpc.ErrAlreadyFinished},
	{oracle.ErrInvalidThreshold, neorpc.ErrInvalidThreshold},
	{oracle.ErrInvalidIdentity, neorpc.ErrInvalidIdentity},
	{oracle.ErrNoMerkleRoot, neorpc.ErrNoMerkleRoot},
	{oracle.ErrDecode, neorpc.ErrDecode},
	{oracle.ErrWrongLength, neorpc.ErrWrongLength},
	{oracle.ErrInvalidArgument, neorpc.ErrInvalidArgument},
	{core.ErrAlreadyExists, neorpc.ErrAlreadyExists},
	{core.ErrInvalidTransaction, neorpc.ErrInvalidTransaction},
}

// ledgerError converts the error returned by the ledger into the RPC error
// of the same kind keeping the original message as data.
func ledgerError(err error) *neorpc.Error {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return neorpc.WrapErrorWithData(k.rpc, err.Error())
		}
	}
	return neorpc.NewInternalServerError(err.Error())
}

func getHTTPCodeForError(respErr *neorpc.Error) int {
	var httpCode int
	switch respErr.Code {
	case neorpc.BadRequestCode:
		httpCode = http.StatusBadRequest
	case neorpc.MethodNotFoundCode:
		httpCode = http.StatusMethodNotAllowed
	case neorpc.InternalServerErrorCode:
		httpCode = http.StatusInternalServerError
	default:
		httpCode = http.StatusUnprocessableEntity
	}
	return httpCode
}
