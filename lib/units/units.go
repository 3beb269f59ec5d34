// Package units converts human-readable native currency amounts into the
// chain's smallest unit and back.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of fractional digits in one unit of the native
// currency.
const EtherDecimals = 18

var (
	ErrEmptyAmount    = errors.New("empty amount")
	ErrNegativeAmount = errors.New("negative amount")
	ErrTooPrecise     = errors.New("amount has more fractional digits than the unit allows")
	ErrExponent       = errors.New("exponent notation is not accepted")
	ErrOutOfRange     = errors.New("amount exceeds uint256")
)

// MaxUint256 is the largest value a uint256 constructor argument can hold.
var MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseEther converts a decimal string such as "0.001" into wei.
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

// ParseUnits converts a decimal string into an integer count of the smallest
// unit, where one whole unit has the given number of fractional digits.
func ParseUnits(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if strings.ContainsAny(s, "eE") {
		return nil, fmt.Errorf("%w: %s", ErrExponent, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, s)
	}
	if d.GreaterThan(decimal.NewFromBigInt(MaxUint256, -decimals)) {
		return nil, fmt.Errorf("%w: %s", ErrOutOfRange, s)
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s (max %d)", ErrTooPrecise, s, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}

// GweiToWei converts a decimal gwei string, as used for gas price knobs.
func GweiToWei(s string) (*big.Int, error) {
	return ParseUnits(s, 9)
}
