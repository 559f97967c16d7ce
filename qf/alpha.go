package qf

import (
	"errors"
	"fmt"

	"github.com/calehh/qf-app/qfmath"
	"github.com/holiman/uint256"
)

var ErrInvalidAlpha = errors.New("invalid alpha")

// Alpha is the fraction Numerator/Denominator of funding taken from the
// quadratic formula; the rest comes from the linear sum of contributions.
type Alpha struct {
	Numerator   *uint256.Int `json:"numerator"`
	Denominator *uint256.Int `json:"denominator"`
}

func NewAlpha(numerator, denominator uint64) Alpha {
	return Alpha{
		Numerator:   uint256.NewInt(numerator),
		Denominator: uint256.NewInt(denominator),
	}
}

// PureLinear and PureQuadratic are the optimizer's clamping values.
func PureLinear() Alpha    { return NewAlpha(0, 1) }
func PureQuadratic() Alpha { return NewAlpha(1, 1) }

func (a Alpha) Validate() error {
	if a.Numerator == nil || a.Denominator == nil {
		return fmt.Errorf("%w: missing component", ErrInvalidAlpha)
	}
	if a.Denominator.IsZero() {
		return fmt.Errorf("%w: zero denominator", ErrInvalidAlpha)
	}
	if a.Numerator.Gt(a.Denominator) {
		return fmt.Errorf("%w: numerator %s > denominator %s", ErrInvalidAlpha, a.Numerator.Dec(), a.Denominator.Dec())
	}
	if !qfmath.Fits(a.Denominator) {
		return fmt.Errorf("%w: denominator too wide", ErrInvalidAlpha)
	}
	return nil
}

func (a Alpha) String() string {
	return a.Numerator.Dec() + "/" + a.Denominator.Dec()
}

// Funding is an alpha-weighted projection of raw quadratic and linear sums.
type Funding struct {
	Quadratic *uint256.Int `json:"quadraticFunding"`
	Linear    *uint256.Int `json:"linearFunding"`
}

// Total returns Quadratic + Linear.
func (f Funding) Total() (*uint256.Int, error) {
	return qfmath.Add(f.Quadratic, f.Linear)
}

// Weigh returns floor(quadratic*alpha) and floor(linear*(1-alpha)).
func (a Alpha) Weigh(quadratic, linear *uint256.Int) (Funding, error) {
	if err := a.Validate(); err != nil {
		return Funding{}, err
	}
	q, err := qfmath.MulDiv(quadratic, a.Numerator, a.Denominator)
	if err != nil {
		return Funding{}, err
	}
	rest := new(uint256.Int).Sub(a.Denominator, a.Numerator)
	l, err := qfmath.MulDiv(linear, rest, a.Denominator)
	if err != nil {
		return Funding{}, err
	}
	return Funding{Quadratic: q, Linear: l}, nil
}
