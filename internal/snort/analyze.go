package snort

import (
	"errors"
	"fmt"
)

var (
	ErrNoPreprocData = errors.New("no preproc profiling data")
	ErrNoRuleData    = errors.New("no rule profiling data")
)

// Limits are the thresholds above which a rule counts as expensive.
type Limits struct {
	Pct     float64
	Nomatch float64
	Match   float64
}

// DefaultLimits returns the stock thresholds.
func DefaultLimits() Limits {
	return Limits{Pct: 0.0025, Nomatch: 50, Match: 500}
}

const (
	ExpenseMatch     = "Match usec"
	ExpenseNomatch   = "Non-match usec"
	ExpensePercent   = "Percent of CPU"
	expenseNotCostly = ""
)

// Evaluation is a rule profile put in relation to the whole process.
type Evaluation struct {
	Rule       RuleProfile
	PctTime    float64
	PctPackets float64
	// Expense names the last threshold the rule crossed, or "" when it is cheap.
	Expense string
}

// Expensive reports whether any threshold was crossed.
func (e *Evaluation) Expensive() bool { return e.Expense != expenseNotCostly }

// Classify returns the expense category. Later checks win: CPU share
// overrides non-match time, which overrides match time.
func Classify(r RuleProfile, pctTime float64, l Limits) string {
	expense := expenseNotCostly
	if r.AvgMatch >= l.Match {
		expense = ExpenseMatch
	}
	if r.AvgNonmatch >= l.Nomatch {
		expense = ExpenseNomatch
	}
	if pctTime >= l.Pct {
		expense = ExpensePercent
	}
	return expense
}

// Evaluate computes the time and packet share of every rule of p.
func Evaluate(p *Process, l Limits) ([]Evaluation, error) {
	total, ok := p.TotalPreprocMicrosecs()
	if !ok {
		return nil, fmt.Errorf("%w for %d", ErrNoPreprocData, p.PID)
	}
	if len(p.Rules) == 0 {
		return nil, fmt.Errorf("%w for %d", ErrNoRuleData, p.PID)
	}

	out := make([]Evaluation, 0, len(p.Rules))
	for _, r := range p.Rules {
		var pctTime float64
		if total > 0 {
			pctTime = float64(r.Microsecs) / float64(total)
		}
		pctPackets := 1.0
		if p.HasTotalPackets && p.TotalPackets > 0 {
			pctPackets = float64(r.Checks) / float64(p.TotalPackets)
		}
		out = append(out, Evaluation{
			Rule:       r,
			PctTime:    pctTime,
			PctPackets: pctPackets,
			Expense:    Classify(r, pctTime, l),
		})
	}
	return out, nil
}
