package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRuns(t *testing.T) {
	path := writeFile(t, "1,2,10,20,30\n3,4,40,50,60\n")

	X, Y, err := LoadRuns(path, 2, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, X)
	assert.Equal(t, [][]float64{{10, 20, 30}, {40, 50, 60}}, Y)
}

func TestLoadRunsSkipsBadRows(t *testing.T) {
	path := writeFile(t, "1,2,10\nbad,2,10\n3,4\n5,6,NaN\n7,8,70\n")

	X, Y, err := LoadRuns(path, 2, 1, nil)
	require.NoError(t, err)
	require.Len(t, X, 2)
	assert.Equal(t, []float64{1, 2}, X[0])
	assert.Equal(t, []float64{7, 8}, X[1])
	assert.Equal(t, [][]float64{{10}, {70}}, Y)
}

func TestLoadRunsEmptyFile(t *testing.T) {
	path := writeFile(t, "")
	_, _, err := LoadRuns(path, 2, 1, nil)
	assert.Error(t, err)
}

func TestLoadRunsMissingFile(t *testing.T) {
	_, _, err := LoadRuns(filepath.Join(t.TempDir(), "absent.csv"), 1, 1, nil)
	assert.Error(t, err)
}

func TestSaveRunsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	X := [][]float64{{1.5, -2}, {0.25, 3}}
	Y := [][]float64{{10, 0.5}, {-1, 2}}
	require.NoError(t, SaveRuns(path, X, Y))

	gotX, gotY, err := LoadRuns(path, 2, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, X, gotX)
	assert.Equal(t, Y, gotY)
}
