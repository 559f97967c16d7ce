package qf

import (
	"testing"

	"github.com/calehh/qf-app/qfmath"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestApplyVoteScenario(t *testing.T) {
	require := require.New(t)

	totals := NewTotals()
	projects := []ProjectTally{NewProjectTally(), NewProjectTally()}
	for voter := 0; voter < 3; voter++ {
		for i := range projects {
			var err error
			projects[i], totals, err = ApplyVote(projects[i], totals, u(20))
			require.NoError(err)
		}
	}

	for _, p := range projects {
		require.Equal(uint64(1200), p.SumContributions.Uint64())
		require.Equal(uint64(60), p.SumSquareRoots.Uint64())
		q, err := p.Quadratic()
		require.NoError(err)
		require.Equal(uint64(3600), q.Uint64())
	}
	require.Equal(uint64(7200), totals.TotalQuadraticSum.Uint64())
	require.Equal(uint64(2400), totals.TotalLinearSum.Uint64())

	total, err := TotalFunding(totals, PureQuadratic())
	require.NoError(err)
	require.Equal(uint64(7200), total.Uint64())

	total, err = TotalFunding(totals, PureLinear())
	require.NoError(err)
	require.Equal(uint64(2400), total.Uint64())
}

func TestApplyVoteGlobalEqualsSumOfProjects(t *testing.T) {
	require := require.New(t)

	weights := [][]uint64{{1, 2, 3}, {5}, {7, 7}}
	totals := NewTotals()
	expectQuadratic := new(uint256.Int)
	for _, ws := range weights {
		p := NewProjectTally()
		for _, w := range ws {
			var err error
			p, totals, err = ApplyVote(p, totals, u(w))
			require.NoError(err)
		}
		q, err := p.Quadratic()
		require.NoError(err)
		expectQuadratic.Add(expectQuadratic, q)
	}
	// (1+2+3)^2 + 5^2 + 14^2
	require.Equal(uint64(36+25+196), expectQuadratic.Uint64())
	require.True(totals.TotalQuadraticSum.Eq(expectQuadratic))
	require.Equal(uint64(1+4+9+25+49+49), totals.TotalLinearSum.Uint64())
}

func TestApplyVoteOverflow(t *testing.T) {
	require := require.New(t)

	p := NewProjectTally()
	totals := NewTotals()

	// a single weight whose cost does not fit the ledger
	tooHeavy := new(uint256.Int).Lsh(u(1), 64)
	got, gotTotals, err := ApplyVote(p, totals, tooHeavy)
	require.ErrorIs(err, qfmath.ErrOverflow)
	require.True(got.SumContributions.IsZero())
	require.True(gotTotals.TotalQuadraticSum.IsZero())

	// each vote fits, but the accumulated square of roots does not
	w := new(uint256.Int).Lsh(u(1), 63)
	p, totals, err = ApplyVote(p, totals, w)
	require.NoError(err)
	_, _, err = ApplyVote(p, totals, w)
	require.ErrorIs(err, qfmath.ErrOverflow)
	require.True(p.SumSquareRoots.Eq(w), "failed vote must not be applied")
}

func TestRemoveProject(t *testing.T) {
	require := require.New(t)

	a, totals, err := ApplyVote(NewProjectTally(), NewTotals(), u(4))
	require.NoError(err)
	b, totals, err := ApplyVote(NewProjectTally(), totals, u(3))
	require.NoError(err)

	totals, err = RemoveProject(a, totals)
	require.NoError(err)
	qb, err := b.Quadratic()
	require.NoError(err)
	require.True(totals.TotalQuadraticSum.Eq(qb))
	require.True(totals.TotalLinearSum.Eq(b.Linear()))
}

func TestReadWeighsWithAlpha(t *testing.T) {
	require := require.New(t)

	p := ProjectTally{SumContributions: u(1200), SumSquareRoots: u(60)}

	tests := []struct {
		name      string
		alpha     Alpha
		quadratic uint64
		linear    uint64
	}{
		{"pure quadratic", PureQuadratic(), 3600, 0},
		{"pure linear", PureLinear(), 0, 1200},
		{"half", NewAlpha(1, 2), 1800, 600},
		{"third floors", NewAlpha(1, 3), 1200, 800},
	}
	for _, tt := range tests {
		tally, err := Read(p, tt.alpha)
		require.NoError(err, tt.name)
		require.Equal(tt.quadratic, tally.QuadraticFunding.Uint64(), tt.name)
		require.Equal(tt.linear, tally.LinearFunding.Uint64(), tt.name)
		require.Equal(uint64(1200), tally.SumContributions.Uint64(), tt.name)
		require.Equal(uint64(60), tally.SumSquareRoots.Uint64(), tt.name)
	}
}

func TestAlphaValidate(t *testing.T) {
	require := require.New(t)

	require.NoError(NewAlpha(0, 1).Validate())
	require.NoError(NewAlpha(3, 3).Validate())
	require.ErrorIs(NewAlpha(1, 0).Validate(), ErrInvalidAlpha)
	require.ErrorIs(NewAlpha(4, 3).Validate(), ErrInvalidAlpha)
	require.ErrorIs(Alpha{}.Validate(), ErrInvalidAlpha)

	_, err := NewAlpha(2, 1).Weigh(u(1), u(1))
	require.ErrorIs(err, ErrInvalidAlpha)
}
