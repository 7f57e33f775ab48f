package pricing_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monuverse/arch-of-peace-contract/pricing"
)

func TestToWei(t *testing.T) {
	tests := []struct {
		ether string
		wei   string
		err   bool
	}{
		{ether: "0", wei: "0"},
		{ether: "0.09", wei: "90000000000000000"},
		{ether: "0.11", wei: "110000000000000000"},
		{ether: "1", wei: "1000000000000000000"},
		{ether: "1.000000000000000001", wei: "1000000000000000001"},
		{ether: "0.0000000000000000001", err: true},
		{ether: "-0.1", err: true},
		{ether: "ten", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.ether, func(t *testing.T) {
			wei, err := pricing.ToWei(tt.ether)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wei, wei.String())
		})
	}
}

func TestFromWei(t *testing.T) {
	wei, ok := new(big.Int).SetString("120000000000000000", 10)
	require.True(t, ok)

	assert.Equal(t, "0.12", pricing.FromWei(wei).String())
	assert.Equal(t, "0.12 ETH", pricing.FormatEther(wei))
	assert.Equal(t, "0 ETH", pricing.FormatEther(nil))
}

func TestMatches(t *testing.T) {
	price := big.NewInt(90)

	assert.True(t, pricing.Matches(price, 3, big.NewInt(270)))
	assert.False(t, pricing.Matches(price, 3, big.NewInt(271)))
	assert.False(t, pricing.Matches(price, 3, big.NewInt(269)))
	assert.True(t, pricing.Matches(big.NewInt(0), 5, nil))
	assert.False(t, pricing.Matches(price, 1, nil))
	assert.Equal(t, "450", pricing.Total(price, 5).String())
}
