package state

import (
	"encoding/json"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// Config is the oracle configuration singleton.
type Config struct {
	// Owner is the only account allowed to change the configuration and to
	// register merkle roots.
	Owner util.Uint160
	// MaxReqThreshold is the percentage (0-100) of active executors a
	// request threshold may reach.
	MaxReqThreshold uint64
}

// configAux is an auxiliary struct for Config JSON marshalling.
type configAux struct {
	Owner           string `json:"owner"`
	MaxReqThreshold uint64 `json:"max_req_threshold"`
}

// EncodeBinary implements the io.Serializable interface.
func (c *Config) EncodeBinary(w *io.BinWriter) {
	c.Owner.EncodeBinary(w)
	w.WriteU64LE(c.MaxReqThreshold)
}

// DecodeBinary implements the io.Serializable interface.
func (c *Config) DecodeBinary(r *io.BinReader) {
	c.Owner.DecodeBinary(r)
	c.MaxReqThreshold = r.ReadU64LE()
}

// MarshalJSON implements the json.Marshaler interface.
func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(configAux{
		Owner:           address.Uint160ToString(c.Owner),
		MaxReqThreshold: c.MaxReqThreshold,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (c *Config) UnmarshalJSON(data []byte) error {
	aux := new(configAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	owner, err := address.StringToUint160(aux.Owner)
	if err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}
	c.Owner = owner
	c.MaxReqThreshold = aux.MaxReqThreshold
	return nil
}
