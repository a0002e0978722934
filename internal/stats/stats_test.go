package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larkvi/esgrade/internal/models"
	"github.com/larkvi/esgrade/internal/store"
)

var testDims = []models.Dimension{
	{ID: 1, Name: "Governance", Code: "GOV"},
	{ID: 2, Name: "Social", Code: "SOC"},
	{ID: 3, Name: "Environmental", Code: "ENV"},
}

func statRow(evalID int64, score int, dimID, orgID int64) store.ResponseStatRow {
	dim := testDims[dimID-1]
	return store.ResponseStatRow{
		EvaluationID:     evalID,
		Score:            score,
		DimensionID:      dim.ID,
		DimensionName:    dim.Name,
		DimensionCode:    dim.Code,
		OrganizationID:   orgID,
		OrganizationName: "Org",
		City:             "City",
		Region:           "Region",
	}
}

func TestDimensionAverages(t *testing.T) {
	t.Run("no rows reports every dimension with nil average", func(t *testing.T) {
		averages := DimensionAverages(testDims, nil)

		require.Len(t, averages, 3)
		for i, avg := range averages {
			assert.Equal(t, testDims[i].ID, avg.DimensionID)
			assert.Equal(t, testDims[i].Name, avg.DimensionName)
			assert.Nil(t, avg.Average)
			assert.Equal(t, 0, avg.TotalEvaluations)
		}
	})

	t.Run("averages over responses, counts distinct evaluations", func(t *testing.T) {
		rows := []store.ResponseStatRow{
			statRow(10, 4, 1, 1),
			statRow(10, 4, 1, 1),
			statRow(11, 5, 1, 2),
			statRow(12, 3, 2, 1),
		}

		averages := DimensionAverages(testDims, rows)
		require.Len(t, averages, 3)

		gov := averages[0]
		require.NotNil(t, gov.Average)
		assert.Equal(t, 4.33, *gov.Average)
		assert.Equal(t, 2, gov.TotalEvaluations)

		soc := averages[1]
		require.NotNil(t, soc.Average)
		assert.Equal(t, 3.0, *soc.Average)
		assert.Equal(t, 1, soc.TotalEvaluations)

		env := averages[2]
		assert.Nil(t, env.Average)
		assert.Equal(t, 0, env.TotalEvaluations)
	})

	t.Run("rounds to two decimals", func(t *testing.T) {
		rows := []store.ResponseStatRow{
			statRow(20, 1, 1, 1),
			statRow(20, 1, 1, 1),
			statRow(21, 2, 1, 1),
		}

		averages := DimensionAverages(testDims, rows)
		require.NotNil(t, averages[0].Average)
		assert.Equal(t, 1.33, *averages[0].Average)
	})
}

func TestRanking(t *testing.T) {
	t.Run("sorts descending with ranks from one", func(t *testing.T) {
		rows := []store.ResponseStatRow{
			statRow(1, 3, 1, 100),
			statRow(2, 5, 1, 200),
			statRow(3, 4, 1, 300),
		}

		ranked := Ranking(rows, 10, "")
		require.Len(t, ranked, 3)

		assert.Equal(t, 1, ranked[0].Rank)
		assert.Equal(t, int64(200), ranked[0].OrganizationID)
		assert.Equal(t, 5.0, ranked[0].Average)

		assert.Equal(t, 2, ranked[1].Rank)
		assert.Equal(t, int64(300), ranked[1].OrganizationID)

		assert.Equal(t, 3, ranked[2].Rank)
		assert.Equal(t, int64(100), ranked[2].OrganizationID)
	})

	t.Run("averages over all responses, not per-dimension means", func(t *testing.T) {
		// one response of 5 in GOV, three responses of 1 in SOC:
		// overall mean is 2.0, not (5.0 + 1.0) / 2
		rows := []store.ResponseStatRow{
			statRow(1, 5, 1, 100),
			statRow(2, 1, 2, 100),
			statRow(2, 1, 2, 100),
			statRow(2, 1, 2, 100),
		}

		ranked := Ranking(rows, 10, "")
		require.Len(t, ranked, 1)
		assert.Equal(t, 2.0, ranked[0].Average)
		assert.Equal(t, 2, ranked[0].TotalEvaluations)
	})

	t.Run("ties keep first appearance order", func(t *testing.T) {
		rows := []store.ResponseStatRow{
			statRow(1, 4, 1, 100),
			statRow(2, 4, 1, 200),
		}

		ranked := Ranking(rows, 10, "")
		require.Len(t, ranked, 2)
		assert.Equal(t, int64(100), ranked[0].OrganizationID)
		assert.Equal(t, int64(200), ranked[1].OrganizationID)
	})

	t.Run("truncates to the limit", func(t *testing.T) {
		var rows []store.ResponseStatRow
		for i := 0; i < 12; i++ {
			rows = append(rows, statRow(int64(i), 1+i%5, 1, int64(100+i)))
		}

		ranked := Ranking(rows, 10, "")
		assert.Len(t, ranked, 10)
		assert.Equal(t, 10, ranked[9].Rank)
	})

	t.Run("carries the dimension name when filtered", func(t *testing.T) {
		rows := []store.ResponseStatRow{statRow(1, 5, 3, 100)}

		ranked := Ranking(rows, 10, "Environmental")
		require.Len(t, ranked, 1)
		assert.Equal(t, "Environmental", ranked[0].DimensionName)
	})

	t.Run("empty input yields empty ranking", func(t *testing.T) {
		assert.Empty(t, Ranking(nil, 10, ""))
	})
}

func TestScorecard(t *testing.T) {
	rows := []store.ResponseStatRow{
		statRow(1, 5, 1, 100),
		statRow(1, 4, 1, 100),
		statRow(2, 2, 3, 100),
	}

	scores := Scorecard(testDims, rows)
	require.Len(t, scores, 3)

	require.NotNil(t, scores[0].Average)
	assert.Equal(t, 4.5, *scores[0].Average)
	assert.Nil(t, scores[1].Average)
	require.NotNil(t, scores[2].Average)
	assert.Equal(t, 2.0, *scores[2].Average)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 4.33, Round2(13.0/3.0))
	assert.Equal(t, 4.67, Round2(14.0/3.0))
	assert.Equal(t, 5.0, Round2(5.0))
}
