package main

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"geokriging/internal/models"
)

func TestEncodeResults(t *testing.T) {
	grid := models.Grid{Origin: []float64{0, 0}, Spacing: []float64{1, 2}, Size: []int{2, 1}}
	results := []models.Estimate{
		{Mean: []float64{1.5}, Variance: []float64{0.25}, Neighbors: 3, Status: true},
		models.MissingEstimate(grid.Point(1), 1, 0),
	}

	var buf bytes.Buffer
	require.NoError(t, encodeResults(&buf, grid, []string{"z"}, results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"x,y,z_mean,z_variance,neighbors,status",
		"0,0,1.5,0.25,3,true",
		"1,0,NaN,NaN,0,false",
	}, lines)
	require.True(t, math.IsNaN(results[1].Mean[0]))
}

func TestFinish(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	require.Equal(t, 0, finish(logger, nil))
	require.Equal(t, 0, logs.Len())

	require.Equal(t, 1, finish(logger, errors.New("no samples")))
	entries := logs.FilterMessage("geokrig failed").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	require.Equal(t, "no samples", entries[0].ContextMap()["error"])
}
