package eligibility

import "fmt"

// CheckResult represents pass/fail for one rule.
type CheckResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Verdict is the outcome of evaluating one rule family at a single point
// in time. Verdicts are never cached or reused across calls.
type Verdict struct {
	Eligible bool
	Checks   []CheckResult
}

// Reasons returns a description of every failed check, for logging and
// the verdict journal. Empty when eligible.
func (v *Verdict) Reasons() []string {
	var reasons []string
	for _, c := range v.Checks {
		if !c.Pass {
			reasons = append(reasons, fmt.Sprintf("%s: %s (want %s)", c.Name, c.Actual, c.Threshold))
		}
	}
	return reasons
}

// verdictFrom builds a Verdict: eligible only if every check passed.
func verdictFrom(checks []CheckResult) *Verdict {
	eligible := true
	for _, c := range checks {
		if !c.Pass {
			eligible = false
			break
		}
	}
	return &Verdict{Eligible: eligible, Checks: checks}
}
