package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// Dataset is an immutable snapshot of training pairs: X holds one parameter
// vector per row, Y one scalar target per row. Datasets are rebuilt wholesale
// when new raw data arrives, never appended to.
type Dataset struct {
	X [][]float64
	Y []float64
}

// New validates and wraps the given training pairs. The slices are retained,
// not copied; callers must not mutate them afterwards.
func New(X [][]float64, y []float64) (*Dataset, error) {
	if len(X) == 0 {
		return nil, errors.New("dataset: no training samples")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("dataset: %d inputs but %d targets", len(X), len(y))
	}
	dim := len(X[0])
	if dim == 0 {
		return nil, errors.New("dataset: zero-dimensional inputs")
	}
	for i, row := range X {
		if len(row) != dim {
			return nil, fmt.Errorf("dataset: row %d has %d features, expected %d", i, len(row), dim)
		}
	}
	return &Dataset{X: X, Y: y}, nil
}

// Len returns the number of training samples.
func (d *Dataset) Len() int { return len(d.Y) }

// Dim returns the input dimensionality.
func (d *Dataset) Dim() int { return len(d.X[0]) }

// Split deterministically partitions the dataset into a training and a
// held-out test subset using a seeded permutation. The same fraction and
// seed always produce the same split.
func (d *Dataset) Split(testFraction float64, seed uint64) (train, test *Dataset, err error) {
	trainIdx, testIdx, err := SplitIndices(d.Len(), testFraction, seed)
	if err != nil {
		return nil, nil, err
	}
	train = &Dataset{X: gather(d.X, trainIdx), Y: gatherY(d.Y, trainIdx)}
	test = &Dataset{X: gather(d.X, testIdx), Y: gatherY(d.Y, testIdx)}
	return train, test, nil
}

// SplitIndices returns the permuted train and test index sets for n samples.
// It is exposed so callers can re-derive the exact split used by a model.
func SplitIndices(n int, testFraction float64, seed uint64) (trainIdx, testIdx []int, err error) {
	if testFraction < 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("dataset: test fraction %v outside [0, 1)", testFraction)
	}
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	nTrain := int((1 - testFraction) * float64(n))
	if nTrain == 0 {
		return nil, nil, fmt.Errorf("dataset: test fraction %v leaves no training samples out of %d", testFraction, n)
	}
	return perm[:nTrain], perm[nTrain:], nil
}

func gather(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func gatherY(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
