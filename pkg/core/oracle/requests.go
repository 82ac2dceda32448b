package oracle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/aioracle/pkg/core/dao"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/crypto/merkle"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"golang.org/x/text/unicode/norm"
)

// Page holds listing parameters for stage and insertion index ordered
// lists.
type Page struct {
	// Offset is an exclusive bound, nil means the list starts from the
	// first (or the last for descending order) element.
	Offset *uint64
	Limit  int
	Order  paging.Order
}

func (p Page) rng() paging.Range {
	var offset []byte
	if p.Offset != nil {
		offset = dao.StageKey(*p.Offset)
	}
	return paging.NewRange(paging.Params{Offset: offset, Limit: p.Limit, Order: p.Order})
}

// NormalizeService returns the canonical (NFC) form of the service name,
// it's used both for storing and for querying.
func NormalizeService(s string) string {
	return norm.NFC.String(s)
}

// NormalizeMerkleRoot decodes the hex-encoded root and returns it in
// lowercase.
func NormalizeMerkleRoot(root string) (string, error) {
	if _, err := merkle.DecodeHash(root); err != nil {
		return "", err
	}
	return strings.ToLower(root), nil
}

// createRequest assigns the next stage to the request and stores it as
// pending.
func createRequest(d *dao.Simple, requester util.Uint160, height uint64, service string, threshold uint64, input []byte) (*state.Request, error) {
	service = NormalizeService(service)
	if len(service) > state.MaxServiceLen {
		return nil, fmt.Errorf("%w: service name is too long (%d)", ErrInvalidArgument, len(service))
	}
	if len(input) > state.MaxInputLen {
		return nil, fmt.Errorf("%w: input is too big (%d)", ErrInvalidArgument, len(input))
	}
	latest, err := d.GetLatestStage()
	if err != nil {
		return nil, err
	}
	req := &state.Request{
		Stage:         latest + 1,
		Requester:     requester,
		RequestHeight: height,
		Threshold:     threshold,
		Service:       service,
		Input:         input,
	}
	if err := d.PutRequest(req); err != nil {
		return nil, err
	}
	d.PutLatestStage(req.Stage)
	return req, nil
}

// registerRoot finishes the pending request, root must be normalized.
func registerRoot(d *dao.Simple, stage uint64, root string, height uint64) (*state.Request, error) {
	req, err := GetRequest(d, stage)
	if err != nil {
		return nil, err
	}
	if req.IsFinished() {
		return nil, fmt.Errorf("%w: stage %d", ErrAlreadyFinished, stage)
	}
	req.MerkleRoot = root
	req.SubmitMerkleHeight = height
	if err := d.PutRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// GetRequest returns the request with the given stage.
func GetRequest(d *dao.Simple, stage uint64) (*state.Request, error) {
	req, err := d.GetRequest(stage)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: request %d", ErrNotFound, stage)
	}
	return req, err
}

// GetRequests lists requests ordered by stage.
func GetRequests(d *dao.Simple, p Page) ([]*state.Request, error) {
	return d.SeekRequests(p.rng())
}

// GetRequestsByService lists requests of the service ordered by stage.
func GetRequestsByService(d *dao.Simple, service string, p Page) ([]*state.Request, error) {
	return d.SeekRequestsByIndex(storage.IXRequestService, []byte(NormalizeService(service)), p.rng())
}

// GetRequestsByMerkleRoot lists requests with the given root ordered by
// stage, an empty root selects pending requests.
func GetRequestsByMerkleRoot(d *dao.Simple, root string, p Page) ([]*state.Request, error) {
	return d.SeekRequestsByIndex(storage.IXRequestMerkleRoot, []byte(strings.ToLower(root)), p.rng())
}

// GetRequestsByRequester lists requests created by the account ordered by
// stage.
func GetRequestsByRequester(d *dao.Simple, requester util.Uint160, p Page) ([]*state.Request, error) {
	return d.SeekRequestsByIndex(storage.IXRequestRequester, requester.BytesBE(), p.rng())
}

// GetLatestStage returns the stage of the last created request, 0 if
// there are none.
func GetLatestStage(d *dao.Simple) (uint64, error) {
	return d.GetLatestStage()
}

// VerifyData checks the proof of data against the merkle root registered
// for the stage.
func VerifyData(d *dao.Simple, stage uint64, data []byte, proof []string) (bool, error) {
	req, err := GetRequest(d, stage)
	if err != nil {
		return false, err
	}
	if !req.IsFinished() {
		return false, fmt.Errorf("%w: stage %d", ErrNoMerkleRoot, stage)
	}
	return merkle.Verify(req.MerkleRoot, data, proof)
}
