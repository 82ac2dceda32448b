package result

import (
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// RelayResult is the result of `sendrawtransaction` RPC call. Commands are
// executed synchronously, so it carries the execution height and events as
// well.
type RelayResult struct {
	Hash   util.Uint256              `json:"hash"`
	Height uint64                    `json:"height"`
	Events []state.NotificationEvent `json:"events"`
}
