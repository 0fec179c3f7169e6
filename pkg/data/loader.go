// Package data loads recorded simulation runs from disk. Each CSV row holds
// one run: the parameter values first, then the simulated output vector.
package data

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Run is a single recorded simulation: a parameter vector and the output it
// produced.
type Run struct {
	Params []float64
	Output []float64
}

// LoadRuns reads simulation runs from a CSV file with inputDim parameter
// columns followed by outputDim output columns. Rows that are malformed,
// non-numeric, or contain non-finite values are skipped with a warning rather
// than aborting the load. A nil logger disables logging.
func LoadRuns(path string, inputDim, outputDim int, log *zap.Logger) (X, Y [][]float64, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("data: opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(bufio.NewReader(file))
	reader.ReuseRecord = true
	reader.FieldsPerRecord = -1

	want := inputDim + outputDim
	line := 0
	skipped := 0
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Warn("skipping unreadable row", zap.Int("line", line), zap.Error(err))
			skipped++
			continue
		}
		if len(rec) != want {
			log.Warn("skipping row with wrong column count",
				zap.Int("line", line),
				zap.Int("columns", len(rec)),
				zap.Int("expected", want),
			)
			skipped++
			continue
		}

		row, ok := parseRow(rec)
		if !ok {
			log.Warn("skipping row with non-numeric or non-finite values", zap.Int("line", line))
			skipped++
			continue
		}
		X = append(X, row[:inputDim])
		Y = append(Y, row[inputDim:])
	}

	if len(X) == 0 {
		return nil, nil, fmt.Errorf("data: %s contains no usable runs", path)
	}
	log.Info("loaded simulation runs",
		zap.String("path", path),
		zap.Int("runs", len(X)),
		zap.Int("skipped", skipped),
	)
	return X, Y, nil
}

// SaveRuns writes simulation runs as CSV, one row per run, parameters first.
func SaveRuns(path string, X, Y [][]float64) error {
	if len(X) != len(Y) {
		return fmt.Errorf("data: %d parameter rows but %d output rows", len(X), len(Y))
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("data: creating %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	rec := make([]string, 0, len(X[0])+len(Y[0]))
	for i := range X {
		rec = rec[:0]
		for _, v := range X[i] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, v := range Y[i] {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("data: writing %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

// parseRow converts a CSV record to floats, rejecting the whole row on the
// first non-numeric or non-finite value.
func parseRow(rec []string) ([]float64, bool) {
	row := make([]float64, len(rec))
	for i, s := range rec {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}
