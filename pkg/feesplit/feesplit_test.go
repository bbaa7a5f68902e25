package feesplit

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateReferenceSplit(t *testing.T) {
	split, err := Calculate(decimal.NewFromInt(2500), 25)
	require.NoError(t, err)

	assert.True(t, split.PlatformFee.Equal(decimal.RequireFromString("375.00")), "fee %s", split.PlatformFee)
	assert.True(t, split.PartnerGain.Equal(decimal.RequireFromString("625.00")), "gain %s", split.PartnerGain)
	assert.True(t, split.NetToFunder.Equal(decimal.RequireFromString("1500.00")), "net %s", split.NetToFunder)
	assert.True(t, split.Sum().Equal(split.Total))
}

func TestCalculateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name  string
		total string
		pct   int
		want  error
	}{
		{name: "zero total", total: "0", pct: 10, want: ErrInvalidAmount},
		{name: "negative total", total: "-5", pct: 10, want: ErrInvalidAmount},
		{name: "sub-cent total", total: "10.005", pct: 10, want: ErrInvalidAmount},
		{name: "negative commission", total: "100", pct: -1, want: ErrInvalidCommission},
		{name: "commission above cap", total: "100", pct: 41, want: ErrInvalidCommission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(decimal.RequireFromString(tc.total), tc.pct)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCalculateRoundsHalfEven(t *testing.T) {
	// 0.15 * 0.30 = 0.045 -> 0.04, 0.30 * 15% gain = 0.045 -> 0.04
	split, err := Calculate(decimal.RequireFromString("0.30"), 15)
	require.NoError(t, err)
	assert.Equal(t, "0.04", split.PlatformFee.StringFixed(2))
	assert.Equal(t, "0.04", split.PartnerGain.StringFixed(2))
	assert.Equal(t, "0.22", split.NetToFunder.StringFixed(2))
}

func TestCalculateBoundaryCommissions(t *testing.T) {
	zero, err := Calculate(decimal.NewFromInt(100), 0)
	require.NoError(t, err)
	assert.True(t, zero.PartnerGain.IsZero())
	assert.Equal(t, "85.00", zero.NetToFunder.StringFixed(2))

	top, err := Calculate(decimal.NewFromInt(100), MaxCommissionPct)
	require.NoError(t, err)
	assert.Equal(t, "40.00", top.PartnerGain.StringFixed(2))
	assert.Equal(t, "45.00", top.NetToFunder.StringFixed(2))
}

func TestCalculateRateFractionalCommission(t *testing.T) {
	split, err := CalculateRate(decimal.NewFromInt(2500), decimal.RequireFromString("12.5"))
	require.NoError(t, err)
	assert.Equal(t, "312.50", split.PartnerGain.StringFixed(2))
	assert.True(t, split.Sum().Equal(split.Total))
}

func TestSplitAlwaysAddsUpToTotal(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("fee + gain + net == total", prop.ForAll(
		func(cents int64, pct int) bool {
			total := decimal.New(cents, -2)
			split, err := Calculate(total, pct)
			if err != nil {
				return false
			}
			return split.Sum().Equal(total) && !split.NetToFunder.IsNegative()
		},
		gen.Int64Range(1, 1_000_000_000),
		gen.IntRange(0, MaxCommissionPct),
	))

	properties.TestingRun(t)
}
