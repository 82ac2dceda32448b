package oracle

import (
	"errors"

	"github.com/nspcc-dev/aioracle/pkg/crypto/merkle"
)

// Errors returned by oracle commands and queries, every failure wraps one of
// them.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyFinished  = errors.New("request is already finished")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrInvalidIdentity  = errors.New("invalid executor identity")
	ErrNoMerkleRoot     = errors.New("no merkle root found for this request")
	ErrInvalidArgument  = errors.New("invalid argument")

	ErrDecode      = merkle.ErrDecode
	ErrWrongLength = merkle.ErrWrongLength
)
