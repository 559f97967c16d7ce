package qfmath

import (
	"github.com/holiman/uint256"
)

// NormalizedDecimals is the common scale for vote units and for any asset
// amount compared against them.
const NormalizedDecimals = 18

// MaxDecimals is the largest decimals value whose power of ten fits 256 bits.
const MaxDecimals = 77

func scale(diff uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(diff)))
}

// Normalize converts an asset amount with the given decimals to 18-decimal
// units. Assets with more than 18 decimals lose the excess precision (floor).
func Normalize(amount *uint256.Int, decimals uint8) (*uint256.Int, error) {
	switch {
	case decimals > MaxDecimals:
		return nil, ErrOverflow
	case decimals == NormalizedDecimals:
		return checked(new(uint256.Int).Set(amount), false)
	case decimals < NormalizedDecimals:
		return Mul(amount, scale(NormalizedDecimals-decimals))
	default:
		return new(uint256.Int).Div(amount, scale(decimals-NormalizedDecimals)), nil
	}
}

// Denormalize converts 18-decimal units back to an asset amount, rounding down.
func Denormalize(amount *uint256.Int, decimals uint8) (*uint256.Int, error) {
	switch {
	case decimals > MaxDecimals:
		return nil, ErrOverflow
	case decimals == NormalizedDecimals:
		return checked(new(uint256.Int).Set(amount), false)
	case decimals < NormalizedDecimals:
		return new(uint256.Int).Div(amount, scale(NormalizedDecimals-decimals)), nil
	default:
		return Mul(amount, scale(decimals-NormalizedDecimals))
	}
}
