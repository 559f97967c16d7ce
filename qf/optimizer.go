package qf

import (
	"github.com/calehh/qf-app/qfmath"
	"github.com/holiman/uint256"
)

// OptimalAlpha returns the alpha that makes total weighted funding equal the
// assets available (deposits plus matching pool), clamped to [0, 1].
//
// matchingPool and totalUserDeposits are asset amounts with assetDecimals;
// the sums are in 18-decimal vote units. Asset amounts are normalized first.
func OptimalAlpha(matchingPool, totalUserDeposits, totalQuadraticSum, totalLinearSum *uint256.Int, assetDecimals uint8) (Alpha, error) {
	if !totalQuadraticSum.Gt(totalLinearSum) {
		return PureLinear(), nil
	}
	advantage := new(uint256.Int).Sub(totalQuadraticSum, totalLinearSum)

	pool, err := qfmath.Normalize(matchingPool, assetDecimals)
	if err != nil {
		return Alpha{}, err
	}
	deposits, err := qfmath.Normalize(totalUserDeposits, assetDecimals)
	if err != nil {
		return Alpha{}, err
	}
	available, err := qfmath.Add(deposits, pool)
	if err != nil {
		return Alpha{}, err
	}
	if !available.Gt(totalLinearSum) {
		return PureLinear(), nil
	}
	numerator := new(uint256.Int).Sub(available, totalLinearSum)
	if !numerator.Lt(advantage) {
		return PureQuadratic(), nil
	}
	return Alpha{Numerator: numerator, Denominator: advantage}, nil
}
