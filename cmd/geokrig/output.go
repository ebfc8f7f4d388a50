package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"geokriging/internal/models"
)

var axisNames = []string{"x", "y", "z"}

// writeResults writes one CSV row per grid node to path, or to stdout when
// path is empty.
func writeResults(path string, grid models.Grid, names []string, results []models.Estimate) error {
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return encodeResults(out, grid, names, results)
}

func encodeResults(out io.Writer, grid models.Grid, names []string, results []models.Estimate) error {
	w := csv.NewWriter(out)

	header := append([]string{}, axisNames[:grid.Dims()]...)
	for _, name := range names {
		header = append(header, name+"_mean", name+"_variance")
	}
	header = append(header, "neighbors", "status")
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for i, r := range results {
		row = row[:0]
		for _, c := range grid.Point(i) {
			row = append(row, formatFloat(c))
		}
		for v := range names {
			row = append(row, formatFloat(r.Mean[v]), formatFloat(r.Variance[v]))
		}
		row = append(row, strconv.Itoa(r.Neighbors), strconv.FormatBool(r.Status))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
