package qfmath

import (
	"errors"

	"github.com/holiman/uint256"
)

// LedgerBits is the declared width of every stored amount. Intermediates are
// carried in 256 bits (512 for MulDiv) and must fit back into this width.
const LedgerBits = 128

var (
	ErrOverflow     = errors.New("overflow")
	ErrUnderflow    = errors.New("underflow")
	ErrDivideByZero = errors.New("divide by zero")
)

// MaxLedger is the largest amount representable in the ledger.
var MaxLedger = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), LedgerBits), uint256.NewInt(1))

// Fits reports whether x can be stored in the ledger.
func Fits(x *uint256.Int) bool {
	return x.BitLen() <= LedgerBits
}

func checked(z *uint256.Int, overflow bool) (*uint256.Int, error) {
	if overflow || !Fits(z) {
		return nil, ErrOverflow
	}
	return z, nil
}

// Zero returns a fresh zero amount.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// OrZero returns x, or a fresh zero when x is nil.
func OrZero(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return x
}

// Add returns:
// 1) a + b
// 2) If the sum does not fit the ledger, an error
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	return checked(new(uint256.Int).AddOverflow(a, b))
}

// Sub returns:
// 1) a - b
// 2) If there is underflow, an error
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Lt(b) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// Mul returns:
// 1) a * b
// 2) If the product does not fit the ledger, an error
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	return checked(new(uint256.Int).MulOverflow(a, b))
}

// Square returns a * a, failing when the result does not fit the ledger.
func Square(a *uint256.Int) (*uint256.Int, error) {
	return Mul(a, a)
}

// MulDiv returns floor(x * y / d) computed with a 512-bit intermediate.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivideByZero
	}
	return checked(new(uint256.Int).MulDivOverflow(x, y, d))
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}
