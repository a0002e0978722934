// internal/stats/stats.go
package stats

import (
	"math"
	"sort"

	"github.com/larkvi/esgrade/internal/models"
	"github.com/larkvi/esgrade/internal/store"
)

// DimensionAverage is the per-dimension aggregate. Average is nil when the
// dimension has no responses; TotalEvaluations counts distinct evaluations,
// not individual responses.
type DimensionAverage struct {
	DimensionID      int64    `json:"dimension_id"`
	DimensionName    string   `json:"dimension_name"`
	DimensionCode    string   `json:"dimension_code"`
	Average          *float64 `json:"average_score"`
	TotalEvaluations int      `json:"total_evaluations"`
}

// RankedOrganization is one row of the top-N ranking.
type RankedOrganization struct {
	Rank             int     `json:"rank"`
	OrganizationID   int64   `json:"organization_id"`
	OrganizationName string  `json:"organization_name"`
	City             string  `json:"city"`
	Region           string  `json:"region"`
	Average          float64 `json:"average_score"`
	TotalEvaluations int     `json:"total_evaluations"`
	DimensionName    string  `json:"dimension_name,omitempty"`
}

type accum struct {
	sum   int
	count int
	evals map[int64]struct{}
}

func (a *accum) add(row store.ResponseStatRow) {
	a.sum += row.Score
	a.count++
	a.evals[row.EvaluationID] = struct{}{}
}

func (a *accum) average() float64 {
	// unrounded sum over count; rounding happens once, at the edge
	return Round2(float64(a.sum) / float64(a.count))
}

// DimensionAverages computes the mean score per dimension over the given
// response rows. Every dimension in dims appears in the output; dimensions
// without data report a nil average and a zero count.
func DimensionAverages(dims []models.Dimension, rows []store.ResponseStatRow) []DimensionAverage {
	buckets := make(map[int64]*accum, len(dims))
	for _, row := range rows {
		b, ok := buckets[row.DimensionID]
		if !ok {
			b = &accum{evals: make(map[int64]struct{})}
			buckets[row.DimensionID] = b
		}
		b.add(row)
	}

	out := make([]DimensionAverage, 0, len(dims))
	for _, d := range dims {
		avg := DimensionAverage{
			DimensionID:   d.ID,
			DimensionName: d.Name,
			DimensionCode: d.Code,
		}
		if b, ok := buckets[d.ID]; ok {
			mean := b.average()
			avg.Average = &mean
			avg.TotalEvaluations = len(b.evals)
		}
		out = append(out, avg)
	}
	return out
}

// Ranking groups the rows by organization, averages over all of each
// organization's responses (one overall mean, not an average of per-
// dimension averages), sorts descending and keeps the top limit entries
// with dense ranks 1..len. Ties keep first-appearance order.
func Ranking(rows []store.ResponseStatRow, limit int, dimensionName string) []RankedOrganization {
	type orgAccum struct {
		accum
		org store.ResponseStatRow
	}

	var order []int64
	byID := make(map[int64]*orgAccum)
	for _, row := range rows {
		b, ok := byID[row.OrganizationID]
		if !ok {
			b = &orgAccum{accum: accum{evals: make(map[int64]struct{})}, org: row}
			byID[row.OrganizationID] = b
			order = append(order, row.OrganizationID)
		}
		b.add(row)
	}

	ranked := make([]RankedOrganization, 0, len(order))
	for _, id := range order {
		b := byID[id]
		ranked = append(ranked, RankedOrganization{
			OrganizationID:   b.org.OrganizationID,
			OrganizationName: b.org.OrganizationName,
			City:             b.org.City,
			Region:           b.org.Region,
			Average:          b.average(),
			TotalEvaluations: len(b.evals),
			DimensionName:    dimensionName,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Average > ranked[j].Average
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Scorecard renders the full dimension matrix for one organization. The
// rows must already be filtered to that organization; pairs without data
// still appear with a nil average so callers can draw a complete grid.
func Scorecard(dims []models.Dimension, rows []store.ResponseStatRow) []DimensionAverage {
	return DimensionAverages(dims, rows)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
