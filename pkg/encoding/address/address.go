/*
Package address implements conversion of script hashes to/from the oracle
account address format.
*/
package address

import (
	"errors"

	"github.com/nspcc-dev/aioracle/pkg/encoding/base58"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

const (
	// OracleAddressPrefix is the first byte of an address.
	OracleAddressPrefix = 0x17
)

// Prefix is the byte used to prepend to addresses when encoding them, it can
// be changed and defaults to 23 (0x17), the standard oracle prefix.
var Prefix = byte(OracleAddressPrefix)

// Uint160ToString returns the address from the given Uint160.
func Uint160ToString(u util.Uint160) string {
	// Don't forget to prepend the Address version 0x17 (23) A
	b := append([]byte{Prefix}, u.BytesBE()...)
	return base58.CheckEncode(b)
}

// StringToUint160 attempts to decode the given address string
// into a Uint160.
func StringToUint160(s string) (u util.Uint160, err error) {
	b, err := base58.CheckDecode(s)
	if err != nil {
		return u, err
	}
	if len(b) != util.Uint160Size+1 {
		return u, errors.New("wrong address length")
	}
	if b[0] != Prefix {
		return u, errors.New("wrong address prefix")
	}
	return util.Uint160DecodeBytesBE(b[1:21])
}
