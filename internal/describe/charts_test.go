package describe

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/cyclestats-cli/internal/chart"
)

func TestRenderCharts(t *testing.T) {
	style, err := chart.NewStyle(4, 3, 40, []string{"#f77189", "#50b131", "#3ba3ec"})
	require.NoError(t, err)
	recs := fixture()
	dir := filepath.Join(t.TempDir(), "results")

	written, skipped, err := RenderCharts(Analyze(recs), recs, style, dir)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	want := []string{
		ChartMeanRider, ChartMeanStage, ChartInteraction, ChartHeatmap,
		ChartBoxRider, ChartBoxStage, ChartViolinRider, ChartViolinStage,
	}
	require.Len(t, written, len(want))
	for i, name := range want {
		assert.Equal(t, filepath.Join(dir, name), written[i])
		info, err := os.Stat(written[i])
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestSortedMeans(t *testing.T) {
	a := Analyze(fixture())
	labels, means := sortedMeans(a.ByRider)
	assert.Equal(t, []string{"Climber", "Sprinter", "All Rounder", "Unclassed"}, labels)
	assert.InDelta(t, 140.0/3, means[0], 1e-9)
	assert.InDelta(t, 1.5, means[3], 1e-9)
}

func TestCrossMatrixMarksEmptyCells(t *testing.T) {
	a := Analyze(fixture())
	m := a.crossMatrix([]string{"All Rounder"}, []string{"flat", "hills"})
	assert.True(t, math.IsNaN(m[0][0]), "empty cell should be NaN")
	assert.Equal(t, 25.0, m[0][1])
}
