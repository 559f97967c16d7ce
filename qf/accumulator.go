package qf

import (
	"github.com/calehh/qf-app/qfmath"
	"github.com/holiman/uint256"
)

// ProjectTally holds the raw running sums of one proposal.
type ProjectTally struct {
	SumContributions *uint256.Int `json:"sumContributions"`
	SumSquareRoots   *uint256.Int `json:"sumSquareRoots"`
}

func NewProjectTally() ProjectTally {
	return ProjectTally{SumContributions: qfmath.Zero(), SumSquareRoots: qfmath.Zero()}
}

// Quadratic returns SumSquareRoots squared.
func (t ProjectTally) Quadratic() (*uint256.Int, error) {
	return qfmath.Square(qfmath.OrZero(t.SumSquareRoots))
}

// Linear returns the raw sum of contributions.
func (t ProjectTally) Linear() *uint256.Int {
	return new(uint256.Int).Set(qfmath.OrZero(t.SumContributions))
}

// Totals are the mechanism-wide sums. TotalQuadraticSum always equals the sum
// of every counted project's Quadratic().
type Totals struct {
	TotalQuadraticSum *uint256.Int `json:"totalQuadraticSum"`
	TotalLinearSum    *uint256.Int `json:"totalLinearSum"`
}

func NewTotals() Totals {
	return Totals{TotalQuadraticSum: qfmath.Zero(), TotalLinearSum: qfmath.Zero()}
}

// Tally is the read model of a proposal: raw sums plus funding weighted by the
// alpha current at read time.
type Tally struct {
	SumContributions *uint256.Int `json:"sumContributions"`
	SumSquareRoots   *uint256.Int `json:"sumSquareRoots"`
	QuadraticFunding *uint256.Int `json:"quadraticFunding"`
	LinearFunding    *uint256.Int `json:"linearFunding"`
}

// ZeroTally is reported for canceled proposals.
func ZeroTally() Tally {
	return Tally{
		SumContributions: qfmath.Zero(),
		SumSquareRoots:   qfmath.Zero(),
		QuadraticFunding: qfmath.Zero(),
		LinearFunding:    qfmath.Zero(),
	}
}

// Funding returns the total alpha-weighted funding of the tally.
func (t Tally) Funding() (*uint256.Int, error) {
	return qfmath.Add(t.QuadraticFunding, t.LinearFunding)
}

// ApplyVote records a vote of the given weight (cost weight^2). The global
// quadratic sum moves by the change in the project's quadratic funding, not by
// the vote cost. Inputs are never modified; on error nothing is applied.
func ApplyVote(project ProjectTally, totals Totals, weight *uint256.Int) (ProjectTally, Totals, error) {
	cost, err := qfmath.Square(weight)
	if err != nil {
		return project, totals, err
	}
	contributions, err := qfmath.Add(qfmath.OrZero(project.SumContributions), cost)
	if err != nil {
		return project, totals, err
	}
	roots, err := qfmath.Add(qfmath.OrZero(project.SumSquareRoots), weight)
	if err != nil {
		return project, totals, err
	}
	oldQuadratic, err := project.Quadratic()
	if err != nil {
		return project, totals, err
	}
	newQuadratic, err := qfmath.Square(roots)
	if err != nil {
		return project, totals, err
	}
	delta, err := qfmath.Sub(newQuadratic, oldQuadratic)
	if err != nil {
		return project, totals, err
	}
	totalQuadratic, err := qfmath.Add(qfmath.OrZero(totals.TotalQuadraticSum), delta)
	if err != nil {
		return project, totals, err
	}
	totalLinear, err := qfmath.Add(qfmath.OrZero(totals.TotalLinearSum), cost)
	if err != nil {
		return project, totals, err
	}
	return ProjectTally{SumContributions: contributions, SumSquareRoots: roots},
		Totals{TotalQuadraticSum: totalQuadratic, TotalLinearSum: totalLinear}, nil
}

// RemoveProject takes a project's sums out of the global totals.
func RemoveProject(project ProjectTally, totals Totals) (Totals, error) {
	quadratic, err := project.Quadratic()
	if err != nil {
		return totals, err
	}
	totalQuadratic, err := qfmath.Sub(qfmath.OrZero(totals.TotalQuadraticSum), quadratic)
	if err != nil {
		return totals, err
	}
	totalLinear, err := qfmath.Sub(qfmath.OrZero(totals.TotalLinearSum), project.Linear())
	if err != nil {
		return totals, err
	}
	return Totals{TotalQuadraticSum: totalQuadratic, TotalLinearSum: totalLinear}, nil
}

// Read projects a stored tally through alpha.
func Read(project ProjectTally, alpha Alpha) (Tally, error) {
	quadratic, err := project.Quadratic()
	if err != nil {
		return Tally{}, err
	}
	f, err := alpha.Weigh(quadratic, project.Linear())
	if err != nil {
		return Tally{}, err
	}
	return Tally{
		SumContributions: project.Linear(),
		SumSquareRoots:   new(uint256.Int).Set(qfmath.OrZero(project.SumSquareRoots)),
		QuadraticFunding: f.Quadratic,
		LinearFunding:    f.Linear,
	}, nil
}

// TotalFunding returns the alpha-weighted combination of the global sums.
func TotalFunding(totals Totals, alpha Alpha) (*uint256.Int, error) {
	f, err := alpha.Weigh(qfmath.OrZero(totals.TotalQuadraticSum), qfmath.OrZero(totals.TotalLinearSum))
	if err != nil {
		return nil, err
	}
	return f.Total()
}
