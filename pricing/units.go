package pricing

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals between ether and wei.
const EtherDecimals = 18

// ToWei converts a decimal ether amount, e.g. "0.09", into wei. Amounts with
// more precision than a wei, or negative amounts, are rejected.
func ToWei(ether string) (*big.Int, error) {
	d, err := decimal.NewFromString(ether)
	if err != nil {
		return nil, errors.Wrap(err, "to wei")
	}
	if d.IsNegative() {
		return nil, errors.Errorf("to wei: negative amount %s", ether)
	}

	wei := d.Shift(EtherDecimals)
	if !wei.IsInteger() {
		return nil, errors.Errorf("to wei: %s is finer than one wei", ether)
	}

	return wei.BigInt(), nil
}

// FromWei renders a wei amount as ether.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals)
}

// FormatEther renders a wei amount as a human readable ether string.
func FormatEther(wei *big.Int) string {
	return FromWei(wei).String() + " ETH"
}
