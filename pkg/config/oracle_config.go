package config

import (
	"fmt"
	"slices"

	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// Oracle is the initial oracle state, it's only used to initialize an
// empty DB.
type Oracle struct {
	// Owner is the address of the account allowed to update the
	// configuration and to register merkle roots.
	Owner string `yaml:"Owner"`
	// Executors are hex-encoded compressed public keys.
	Executors       []string `yaml:"Executors"`
	MaxReqThreshold uint64   `yaml:"MaxReqThreshold"`
}

// Validate checks the oracle settings.
func (o *Oracle) Validate() error {
	if _, err := o.OwnerHash(); err != nil {
		return err
	}
	if _, err := o.ExecutorKeys(); err != nil {
		return err
	}
	if o.MaxReqThreshold > 100 {
		return fmt.Errorf("MaxReqThreshold %d is above 100", o.MaxReqThreshold)
	}
	return nil
}

// OwnerHash returns the owner account hash.
func (o *Oracle) OwnerHash() (util.Uint160, error) {
	u, err := address.StringToUint160(o.Owner)
	if err != nil {
		return u, fmt.Errorf("invalid Owner %q: %w", o.Owner, err)
	}
	return u, nil
}

// ExecutorKeys returns parsed executor keys.
func (o *Oracle) ExecutorKeys() (keys.PublicKeys, error) {
	pubs := make(keys.PublicKeys, 0, len(o.Executors))
	for _, s := range o.Executors {
		pub, err := keys.NewPublicKeyFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid executor %q: %w", s, err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// Equals checks whether two oracle configurations are the same.
func (o *Oracle) Equals(other *Oracle) bool {
	return o.Owner == other.Owner && o.MaxReqThreshold == other.MaxReqThreshold &&
		slices.Equal(o.Executors, other.Executors)
}
