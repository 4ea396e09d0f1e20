package eval

// Verdict is the ephemeral fairness summary attached to one candidate
// position. It is rebuilt per evaluation and never persisted as-is.
type Verdict struct {
	IsLegal    bool           `json:"isLegal"`
	IsFair     bool           `json:"isFair"`
	Evaluation int            `json:"evaluation"`
	ForcedMate *int           `json:"forcedMate,omitempty"`
	WinChance  Chances        `json:"winChance"`
	Class      Classification `json:"class"`
	Score      string         `json:"score"`

	// Degraded marks a verdict backed by the static material estimate
	// instead of a real engine evaluation.
	Degraded bool `json:"degraded,omitempty"`
}

// NewVerdict assembles a verdict from a white-positive evaluation. maxCP is
// the fairness bound; a forced mate is never fair regardless of the bound.
func NewVerdict(cp int, mate *int, maxCP int, degraded bool) Verdict {
	abs := cp
	if abs < 0 {
		abs = -abs
	}
	return Verdict{
		IsLegal:    true,
		IsFair:     mate == nil && abs <= maxCP,
		Evaluation: cp,
		ForcedMate: mate,
		WinChance:  WinChances(cp, mate),
		Class:      Classify(cp, mate),
		Score:      FormatScore(cp, mate),
		Degraded:   degraded,
	}
}
