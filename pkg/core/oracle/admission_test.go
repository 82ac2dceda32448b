package oracle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdmit(t *testing.T) {
	testCases := []struct {
		threshold, size, pct uint64
		ok                   bool
	}{
		{2, 3, 67, true},
		{3, 3, 67, false},
		{0, 0, 67, true},
		{1, 0, 67, false},
		{1, 0, 100, false},
		{0, 10, 0, true},
		{1, 10, 0, false},
		{100, 100, 100, true},
		{101, 100, 100, false},
		{6, 10, 67, true},
		{7, 10, 67, false},
		{math.MaxUint64 / 100, math.MaxUint64, 1, true},
		{math.MaxUint64, math.MaxUint64, 100, true},
	}
	for _, tc := range testCases {
		err := Admit(tc.threshold, tc.size, tc.pct)
		if tc.ok {
			require.NoError(t, err, "threshold %d, size %d, pct %d", tc.threshold, tc.size, tc.pct)
		} else {
			require.ErrorIs(t, err, ErrInvalidThreshold, "threshold %d, size %d, pct %d", tc.threshold, tc.size, tc.pct)
		}
	}
}

func TestThresholdCap(t *testing.T) {
	require.EqualValues(t, 2, ThresholdCap(3, 67))
	require.EqualValues(t, 0, ThresholdCap(1, 99))
	require.EqualValues(t, 1, ThresholdCap(1, 100))
	require.EqualValues(t, uint64(math.MaxUint64), ThresholdCap(math.MaxUint64, 100))
	require.EqualValues(t, uint64(math.MaxUint64/2), ThresholdCap(math.MaxUint64, 50))
}
