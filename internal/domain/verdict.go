package domain

// Screening stages, recorded with each verdict so rejections can be
// attributed to the rule family that produced them.
const (
	StageLaunchFilter  = "LAUNCH_FILTER"
	StageHolders       = "HOLDERS"
	StageConcentration = "CONCENTRATION"
	StageSocials       = "SOCIALS"
	StageTrade         = "TRADE"
)

// VerdictRecord is the journaled outcome of screening one mint.
// Corresponds to the verdicts table in PostgreSQL. Append-only: a mint is
// screened once; re-announced mints are skipped via journal lookup.
type VerdictRecord struct {
	Mint       string   // PRIMARY KEY
	Name       string   // token name at screening time
	Eligible   bool     // final outcome
	Stage      string   // stage that decided the outcome
	Reasons    []string // violated rules, empty when eligible
	ScreenedAt int64    // Unix milliseconds
	CreatedAt  int64    // record creation timestamp (ms)
}
