/*
Package oracle implements the oracle state machine: the executor registry,
the request ledger with its secondary indexes and the admission gate. All
the state is kept in the DAO, commands are executed against the write set
of the transaction carrying them.
*/
package oracle

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nspcc-dev/aioracle/pkg/core/dao"
	"github.com/nspcc-dev/aioracle/pkg/core/interop"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/transaction"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"go.uber.org/zap"
)

// DefaultMaxReqThreshold is the max_req_threshold used when the genesis
// doesn't specify one.
const DefaultMaxReqThreshold = 67

// Event names.
const (
	EventRequestAdded         = "request_added"
	EventMerkleRootRegistered = "merkle_root_registered"
	EventConfigUpdated        = "config_updated"
)

// Oracle executes oracle commands.
type Oracle struct {
	log *zap.Logger
}

// Genesis is the initial oracle state.
type Genesis struct {
	Owner           util.Uint160
	Executors       keys.PublicKeys
	MaxReqThreshold uint64
}

// New returns a new Oracle.
func New(log *zap.Logger) *Oracle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Oracle{log: log}
}

// Initialize stores the genesis state into an empty DAO.
func (o *Oracle) Initialize(d *dao.Simple, g Genesis) error {
	_, err := d.GetConfig()
	if err == nil {
		return errors.New("oracle is already initialized")
	}
	if !errors.Is(err, dao.ErrNotInitialized) {
		return err
	}
	if err := checkMaxReqThreshold(g.MaxReqThreshold); err != nil {
		return err
	}
	err = d.PutConfig(&state.Config{Owner: g.Owner, MaxReqThreshold: g.MaxReqThreshold})
	if err != nil {
		return err
	}
	d.PutLatestStage(0)
	if err := registerExecutors(d, g.Executors); err != nil {
		return err
	}
	o.log.Info("oracle initialized",
		zap.String("owner", address.Uint160ToString(g.Owner)),
		zap.Int("executors", len(g.Executors)),
		zap.Uint64("max_req_threshold", g.MaxReqThreshold))
	return nil
}

// Execute runs the command in the given context. The context DAO must be
// discarded if an error is returned.
func (o *Oracle) Execute(ic *interop.Context, cmd transaction.Command) error {
	var err error
	switch c := cmd.(type) {
	case *transaction.UpdateConfig:
		err = o.updateConfig(ic, c)
	case *transaction.RegisterMerkleRoot:
		err = o.registerMerkleRoot(ic, c)
	case *transaction.Request:
		err = o.request(ic, c)
	default:
		err = fmt.Errorf("%w: unsupported command %T", ErrInvalidArgument, cmd)
	}
	if err != nil {
		o.log.Debug("command failed",
			zap.Stringer("type", cmd.Type()),
			zap.Uint64("height", ic.Height),
			zap.Error(err))
	}
	return err
}

// GetConfig returns the oracle configuration.
func GetConfig(d *dao.Simple) (*state.Config, error) {
	return d.GetConfig()
}

func checkOwner(ic *interop.Context) (*state.Config, error) {
	cfg, err := ic.DAO.GetConfig()
	if err != nil {
		return nil, err
	}
	if !ic.Sender.Equals(cfg.Owner) {
		return nil, fmt.Errorf("%w: %s is not the owner", ErrUnauthorized, address.Uint160ToString(ic.Sender))
	}
	return cfg, nil
}

func (o *Oracle) updateConfig(ic *interop.Context, c *transaction.UpdateConfig) error {
	cfg, err := checkOwner(ic)
	if err != nil {
		return err
	}
	if c.NewOwner != nil {
		owner, err := address.StringToUint160(*c.NewOwner)
		if err != nil {
			return fmt.Errorf("%w: new owner: %w", ErrInvalidArgument, err)
		}
		cfg.Owner = owner
	}
	if c.NewMaxReqThreshold != nil {
		if err := checkMaxReqThreshold(*c.NewMaxReqThreshold); err != nil {
			return err
		}
		cfg.MaxReqThreshold = *c.NewMaxReqThreshold
	}
	added, err := ParseIdentities(c.NewExecutors)
	if err != nil {
		return err
	}
	removed, err := ParseIdentities(c.OldExecutors)
	if err != nil {
		return err
	}
	if err := ic.DAO.PutConfig(cfg); err != nil {
		return err
	}
	if err := registerExecutors(ic.DAO, added); err != nil {
		return err
	}
	if err := deregisterExecutors(ic.DAO, removed, ic.Height); err != nil {
		return err
	}
	ic.AddNotification(EventConfigUpdated,
		state.Attr("owner", address.Uint160ToString(cfg.Owner)),
		state.Attr("max_req_threshold", strconv.FormatUint(cfg.MaxReqThreshold, 10)),
		state.Attr("new_executors", strconv.Itoa(len(added))),
		state.Attr("old_executors", strconv.Itoa(len(removed))))
	return nil
}

func (o *Oracle) registerMerkleRoot(ic *interop.Context, c *transaction.RegisterMerkleRoot) error {
	if _, err := checkOwner(ic); err != nil {
		return err
	}
	if _, err := ParseIdentities(c.Executors); err != nil {
		return err
	}
	root, err := NormalizeMerkleRoot(c.MerkleRoot)
	if err != nil {
		return fmt.Errorf("merkle root: %w", err)
	}
	req, err := registerRoot(ic.DAO, c.Stage, root, ic.Height)
	if err != nil {
		return err
	}
	ic.AddNotification(EventMerkleRootRegistered,
		state.Attr("current_stage", strconv.FormatUint(req.Stage, 10)),
		state.Attr("merkle_root", req.MerkleRoot))
	o.log.Debug("merkle root registered",
		zap.Uint64("stage", req.Stage),
		zap.String("root", req.MerkleRoot))
	return nil
}

func (o *Oracle) request(ic *interop.Context, c *transaction.Request) error {
	cfg, err := ic.DAO.GetConfig()
	if err != nil {
		return err
	}
	if err := Admit(c.Threshold, ic.DAO.CountActiveExecutors(), cfg.MaxReqThreshold); err != nil {
		return err
	}
	req, err := createRequest(ic.DAO, ic.Sender, ic.Height, c.Service, c.Threshold, c.Input)
	if err != nil {
		return err
	}
	ic.AddNotification(EventRequestAdded,
		state.Attr("stage", strconv.FormatUint(req.Stage, 10)),
		state.Attr("threshold", strconv.FormatUint(req.Threshold, 10)),
		state.Attr("service", req.Service),
		state.Attr("requester", address.Uint160ToString(req.Requester)))
	o.log.Debug("request added",
		zap.Uint64("stage", req.Stage),
		zap.String("service", req.Service))
	return nil
}
