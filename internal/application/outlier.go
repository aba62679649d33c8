package application

import (
	"math"
	"slices"

	"github.com/jamesbondev/pr-stats/internal/domain/model"
)

const (
	outlierMinPopulation = 3
	outlierResultCap     = 10
	zScoreWarn           = 1.0
	zScoreBad            = 1.5
)

// dimension is one scoring axis of the detector. extract returns the value
// for a record and whether the record has one.
type dimension struct {
	label   string
	extract func(model.PRMetrics) (float64, bool)
}

// DetectOutliers finds pull requests whose metrics sit unusually high on one
// or more dimensions. Only completed, non-draft, human-authored PRs are
// eligible; low values are never flagged.
func DetectOutliers(all []model.PRMetrics) []model.Outlier {
	var eligible []model.PRMetrics
	for _, m := range all {
		if m.Status == model.PRStatusCompleted && !m.IsDraft && !m.IsAuthorBot {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) < outlierMinPopulation {
		return nil
	}

	type scoredDimension struct {
		dimension
		mean   float64
		stddev float64
	}
	var dims []scoredDimension
	for _, dim := range buildDimensions(eligible) {
		if mean, stddev, ok := dimensionStats(eligible, dim); ok {
			dims = append(dims, scoredDimension{dimension: dim, mean: mean, stddev: stddev})
		}
	}

	var outliers []model.Outlier
	for _, m := range eligible {
		var (
			composite float64
			flags     []model.OutlierFlag
			hasBad    bool
		)

		for _, dim := range dims {
			value, has := dim.extract(m)
			if !has {
				continue
			}

			z := (value - dim.mean) / dim.stddev
			if z < zScoreWarn {
				continue
			}

			composite += z
			severity := model.FlagSeverityWarn
			if z >= zScoreBad {
				severity = model.FlagSeverityBad
				hasBad = true
			}
			flags = append(flags, model.OutlierFlag{Label: dim.label, Severity: severity, ZScore: z})
		}

		if !hasBad {
			continue
		}

		slices.SortFunc(flags, func(a, b model.OutlierFlag) int {
			switch {
			case a.ZScore > b.ZScore:
				return -1
			case a.ZScore < b.ZScore:
				return 1
			}
			return 0
		})

		outliers = append(outliers, model.Outlier{
			Metrics:        m,
			CompositeScore: composite,
			Flags:          flags,
		})
	}

	slices.SortFunc(outliers, func(a, b model.Outlier) int {
		switch {
		case a.CompositeScore > b.CompositeScore:
			return -1
		case a.CompositeScore < b.CompositeScore:
			return 1
		}
		return 0
	})

	if len(outliers) > outlierResultCap {
		outliers = outliers[:outlierResultCap]
	}
	return outliers
}

// buildDimensions assembles the scoring axes. Build dimensions participate
// only when at least one record carries build data.
func buildDimensions(eligible []model.PRMetrics) []dimension {
	dims := []dimension{
		{"Slow Cycle", func(m model.PRMetrics) (float64, bool) {
			if m.TotalCycleTime == nil {
				return 0, false
			}
			return m.TotalCycleTime.Hours(), true
		}},
		{"Slow Review", func(m model.PRMetrics) (float64, bool) {
			if m.TimeToFirstHumanComment == nil {
				return 0, false
			}
			return m.TimeToFirstHumanComment.Hours(), true
		}},
		{"Large PR", func(m model.PRMetrics) (float64, bool) {
			return float64(m.FilesChanged), true
		}},
		{"High Churn", func(m model.PRMetrics) (float64, bool) {
			return float64(m.IterationCount), true
		}},
		{"Contentious", func(m model.PRMetrics) (float64, bool) {
			return float64(m.HumanCommentCount), true
		}},
		{"Approval Resets", func(m model.PRMetrics) (float64, bool) {
			return float64(m.ApprovalResetCount), true
		}},
	}

	hasBuilds := false
	for _, m := range eligible {
		if m.Builds != nil {
			hasBuilds = true
			break
		}
	}
	if hasBuilds {
		dims = append(dims,
			dimension{"Build Failures", func(m model.PRMetrics) (float64, bool) {
				if m.Builds == nil {
					return 0, false
				}
				return float64(m.Builds.FailedCount), true
			}},
			dimension{"Many Builds", func(m model.PRMetrics) (float64, bool) {
				if m.Builds == nil {
					return 0, false
				}
				return float64(m.Builds.TotalBuildCount), true
			}},
		)
	}

	return dims
}

// dimensionStats computes the population mean and standard deviation of a
// dimension. A dimension with fewer than two values, or one where every value
// is identical, cannot produce an outlier and is excluded.
func dimensionStats(eligible []model.PRMetrics, dim dimension) (mean, stddev float64, ok bool) {
	var values []float64
	for _, m := range eligible {
		if v, has := dim.extract(m); has {
			values = append(values, v)
		}
	}
	if len(values) < 2 {
		return 0, 0, false
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	stddev = math.Sqrt(sq / float64(len(values)))
	if stddev == 0 {
		return 0, 0, false
	}

	return mean, stddev, true
}
