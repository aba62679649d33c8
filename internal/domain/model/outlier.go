package model

// Outlier is one statistically anomalous pull request, ranked by the sum of
// its qualifying z-scores.
type Outlier struct {
	Metrics        PRMetrics     `json:"metrics"`
	CompositeScore float64       `json:"compositeScore"`
	Flags          []OutlierFlag `json:"flags"`
}

// OutlierFlag marks one dimension on which a pull request scored high.
type OutlierFlag struct {
	Label    string       `json:"label"`
	Severity FlagSeverity `json:"severity"`
	ZScore   float64      `json:"zScore"`
}
