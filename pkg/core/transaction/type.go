package transaction

// CommandType is the type of the command carried by a transaction.
type CommandType uint8

// Supported command types.
const (
	UpdateConfigType       CommandType = 0x01
	RegisterMerkleRootType CommandType = 0x02
	RequestType            CommandType = 0x03
)

// String implements the stringer interface.
func (t CommandType) String() string {
	switch t {
	case UpdateConfigType:
		return "update_config"
	case RegisterMerkleRootType:
		return "register_merkle_root"
	case RequestType:
		return "request"
	default:
		return "unknown"
	}
}
