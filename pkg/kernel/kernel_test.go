package kernel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnknownFamily(t *testing.T) {
	_, err := New(Family("Matern52"), 1e-3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKernel)
}

func TestRBFNoiseBasics(t *testing.T) {
	k := NewRBFNoise(2.0, 0.5, 1e-3)

	x := []float64{0, 1}
	y := []float64{1, 0}

	// symmetry
	assert.InDelta(t, k.Eval(x, y), k.Eval(y, x), 1e-15)

	// identical inputs carry signal variance plus noise
	assert.InDelta(t, 2.0+1e-3, k.Eval(x, x), 1e-12)
	assert.InDelta(t, 2.0, k.Signal(x, x), 1e-12)

	// noise contributes only on identical points
	assert.InDelta(t, k.Signal(x, y), k.Eval(x, y), 1e-15)

	// covariance decays with distance and stays positive
	near := k.Eval([]float64{0, 0}, []float64{0.1, 0})
	far := k.Eval([]float64{0, 0}, []float64{3, 0})
	assert.Greater(t, near, far)
	assert.Greater(t, far, 0.0)
}

func TestRBFNoiseHyperparameterRoundTrip(t *testing.T) {
	k := NewRBFNoise(1.0, 1.0, 1e-4)
	theta := []float64{math.Log(3.0), math.Log(0.25)}
	require.NoError(t, k.SetHyperparameters(theta))
	assert.InDeltaSlice(t, theta, k.Hyperparameters(), 1e-15)

	assert.Error(t, k.SetHyperparameters([]float64{1}))
	assert.Equal(t, 2, k.NumHyperparameters())
}

func TestRBFNoiseThetaGradient(t *testing.T) {
	k := NewRBFNoise(1.5, 0.7, 1e-4)
	x := []float64{0.3, -0.2}
	y := []float64{-0.5, 0.9}

	grad := make([]float64, 2)
	k.ThetaGradient(x, y, grad)

	// compare against central finite differences in log space
	const h = 1e-6
	theta := k.Hyperparameters()
	for j := 0; j < 2; j++ {
		tp := append([]float64(nil), theta...)
		tm := append([]float64(nil), theta...)
		tp[j] += h
		tm[j] -= h
		require.NoError(t, k.SetHyperparameters(tp))
		fp := k.Signal(x, y)
		require.NoError(t, k.SetHyperparameters(tm))
		fm := k.Signal(x, y)
		require.NoError(t, k.SetHyperparameters(theta))
		assert.InDelta(t, (fp-fm)/(2*h), grad[j], 1e-6)
	}
}

func TestRBFNoiseInputGradient(t *testing.T) {
	k := NewRBFNoise(1.0, 0.5, 1e-4)
	x := []float64{0.1, 0.4}
	xi := []float64{-0.3, 0.8}

	grad := make([]float64, 2)
	k.InputGradient(x, xi, grad)

	const h = 1e-6
	for j := range x {
		xp := append([]float64(nil), x...)
		xm := append([]float64(nil), x...)
		xp[j] += h
		xm[j] -= h
		fd := (k.Signal(xp, xi) - k.Signal(xm, xi)) / (2 * h)
		assert.InDelta(t, fd, grad[j], 1e-6)
	}
}

func TestMatrix(t *testing.T) {
	k := NewRBFNoise(1.0, 1.0, 0.1)
	X := [][]float64{{0}, {1}, {2}}
	K := Matrix(k, X)

	n, _ := K.Dims()
	require.Equal(t, 3, n)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, 1.0+0.1, K.At(i, i), 1e-12)
		for j := 0; j < 3; j++ {
			assert.InDelta(t, K.At(j, i), K.At(i, j), 1e-15)
		}
	}
	assert.InDelta(t, k.Signal(X[0], X[1]), K.At(0, 1), 1e-15)
}
