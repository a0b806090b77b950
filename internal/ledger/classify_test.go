package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	thresholds := DefaultThresholds()

	cases := []struct {
		pct  string
		want string
	}{
		{"0.00", ClassNormal},
		{"0.49", ClassNormal},
		// Exactly at a threshold stays in the lower tier — strictly greater
		{"0.50", ClassNormal},
		{"0.51", ClassWarning},
		{"1.00", ClassWarning},
		{"1.01", ClassAlert},
		{"25.00", ClassAlert},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(d(tc.pct), thresholds), "pct %s", tc.pct)
		// Sign never matters, only magnitude
		assert.Equal(t, tc.want, Classify(d(tc.pct).Neg(), thresholds), "pct -%s", tc.pct)
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	tight := Thresholds{WarningAbove: d("0.1"), AlertAbove: d("0.2")}

	assert.Equal(t, ClassNormal, Classify(d("0.10"), tight))
	assert.Equal(t, ClassWarning, Classify(d("0.15"), tight))
	assert.Equal(t, ClassAlert, Classify(d("0.21"), tight))
}
