package oracle

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
)

// MaxThresholdPercent is the upper limit for the max_req_threshold setting.
const MaxThresholdPercent = 100

// ThresholdCap returns the greatest threshold admitted with the given number
// of active executors and max_req_threshold percentage, the result is
// truncated towards zero.
func ThresholdCap(size, maxReqThreshold uint64) uint64 {
	c := new(uint256.Int).Mul(uint256.NewInt(size), uint256.NewInt(maxReqThreshold))
	c.Div(c, uint256.NewInt(MaxThresholdPercent))
	if !c.IsUint64() {
		return math.MaxUint64
	}
	return c.Uint64()
}

// Admit checks whether a request with the given threshold can be created.
func Admit(threshold, size, maxReqThreshold uint64) error {
	if c := ThresholdCap(size, maxReqThreshold); threshold > c {
		return fmt.Errorf("%w: %d is above %d (%d executors, %d%%)",
			ErrInvalidThreshold, threshold, c, size, maxReqThreshold)
	}
	return nil
}

func checkMaxReqThreshold(v uint64) error {
	if v > MaxThresholdPercent {
		return fmt.Errorf("%w: max_req_threshold %d is above %d", ErrInvalidThreshold, v, MaxThresholdPercent)
	}
	return nil
}
