package stats

// Tuning groups every adjustable engine constant.
type Tuning struct {
	Catchup       CatchupThresholds   `json:"catchup" yaml:"catchup"`
	Residuals     ResidualOptions     `json:"residuals" yaml:"residuals"`
	LetterWeight  LetterWeightLearner `json:"letterWeight" yaml:"letter_weight"`
	RollingDays   int                 `json:"rollingDays" yaml:"rolling_days"`
	AnchorWeeks   int                 `json:"anchorWeeks" yaml:"anchor_weeks"`
	CompareWindow int                 `json:"compareWindow" yaml:"compare_window"`
}

// DefaultTuning returns the standard engine constants.
func DefaultTuning() Tuning {
	return Tuning{
		Catchup:       DefaultCatchupThresholds(),
		Residuals:     DefaultResidualOptions(),
		LetterWeight:  DefaultLetterWeightLearner(),
		RollingDays:   DefaultRollingDays,
		AnchorWeeks:   DefaultAnchorWeeks,
		CompareWindow: DefaultCompareWindow,
	}
}
