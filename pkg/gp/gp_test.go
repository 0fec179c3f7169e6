package gp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lbalkenhol/OLE-candl-development/pkg/kernel"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/rng"
)

// quadraticModel trains a model on the noiseless quadratic y = x^2 over
// X = 0..3.
func quadraticModel(t *testing.T, cfg Config) *Model {
	t.Helper()
	m, err := NewModel("GP test dim 0", cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{0, 1, 4, 9}
	require.NoError(t, m.LoadData(X, y))
	require.NoError(t, m.Train())
	return m
}

func quadraticConfig() Config {
	cfg := DefaultConfig()
	cfg.ErrorTolerance = 1e-4
	cfg.NumIters = 200
	return cfg
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.LearningRate = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.NumIters = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.ErrorTolerance = -1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.TestsetFraction = 1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.ToleranceShrinkFactor = 1
	assert.Error(t, bad.Validate())
}

func TestTrainRequiresData(t *testing.T) {
	m, err := NewModel("gp", DefaultConfig(), nil, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Train(), ErrNoData)
}

func TestPredictRequiresTraining(t *testing.T) {
	m, err := NewModel("gp", DefaultConfig(), nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.LoadData([][]float64{{0}, {1}}, []float64{0, 1}))
	_, err = m.Predict([]float64{0.5})
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestUnknownKernelFailsAtTrain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kernel = kernel.Family("Matern")
	m, err := NewModel("gp", cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.LoadData([][]float64{{0}, {1}}, []float64{0, 1}))
	assert.ErrorIs(t, m.Train(), kernel.ErrUnknownKernel)
}

func TestQuadraticScenario(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())

	// interpolated prediction inside the monotonically increasing region
	pred, err := m.Predict([]float64{1.5})
	require.NoError(t, err)
	assert.Greater(t, pred, 1.5)
	assert.Less(t, pred, 4.5)

	// extrapolation carries a larger predictive uncertainty
	_, stdNear, err := m.PredictValueAndStd([]float64{1.5})
	require.NoError(t, err)
	_, stdFar, err := m.PredictValueAndStd([]float64{10})
	require.NoError(t, err)
	assert.Less(t, stdNear, stdFar)
	assert.GreaterOrEqual(t, stdNear, 0.0)
}

func TestInterpolatesTrainingTargets(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())
	targets := []float64{0, 1, 4, 9}
	for i, x := range [][]float64{{0}, {1}, {2}, {3}} {
		pred, err := m.Predict(x)
		require.NoError(t, err)
		assert.InDelta(t, targets[i], pred, 0.05, "training input %d", i)
	}
}

func TestTrainingReducesObjective(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())
	h := m.LossHistory()
	require.Len(t, h, 200)
	assert.Less(t, h[len(h)-1], h[0])
}

func TestStdApproachesPriorFarFromData(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())
	_, stdFar, err := m.PredictValueAndStd([]float64{1e6})
	require.NoError(t, err)
	prior := math.Sqrt(m.kern.Signal([]float64{0}, []float64{0}) + m.kern.NoiseVariance())
	assert.InDelta(t, prior, stdFar, 1e-6)
}

func TestSampleMomentsMatchPredictiveDistribution(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())
	x := []float64{1.5}
	mean, std, err := m.PredictValueAndStd(x)
	require.NoError(t, err)
	require.Greater(t, std, 0.0)

	const n = 20000
	samples, _, err := m.Sample(x, n, rng.NewKey(123))
	require.NoError(t, err)
	require.Len(t, samples, n)

	empMean := 0.0
	for _, v := range samples {
		empMean += v
	}
	empMean /= n

	empVar := 0.0
	for _, v := range samples {
		d := v - empMean
		empVar += d * d
	}
	empVar /= n

	assert.InDelta(t, mean, empMean, 5*std/math.Sqrt(n)+1e-9)
	assert.InEpsilon(t, std*std, empVar, 0.1)
}

func TestSampleKeyThreading(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())
	x := []float64{0.5}
	key := rng.NewKey(7)

	s1, next1, err := m.Sample(x, 5, key)
	require.NoError(t, err)
	s2, next2, err := m.Sample(x, 5, key)
	require.NoError(t, err)

	assert.Equal(t, s1, s2, "same key must reproduce the draw")
	assert.Equal(t, next1, next2)

	s3, _, err := m.Sample(x, 5, next1)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s3, "carried-forward key must give fresh draws")
}

func TestPredictGradientMatchesFiniteDifferences(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())
	x := []float64{1.3}

	grad, err := m.PredictGradient(x)
	require.NoError(t, err)
	require.Len(t, grad, 1)

	const h = 1e-5
	fp, err := m.Predict([]float64{x[0] + h})
	require.NoError(t, err)
	fm, err := m.Predict([]float64{x[0] - h})
	require.NoError(t, err)
	assert.InDelta(t, (fp-fm)/(2*h), grad[0], 1e-4)
}

func TestErrorToleranceRatchetIsMonotone(t *testing.T) {
	cfg := quadraticConfig()
	cfg.ErrorTolerance = 0.5 // noise dominates so the ratchet fires
	m := quadraticModel(t, cfg)

	prev := m.ErrorTolerance()
	require.Equal(t, 0.5, prev)
	fired := false
	for i := 0; i < 6; i++ {
		require.NoError(t, m.UpdateError([]float64{1.5}))
		cur := m.ErrorTolerance()
		assert.LessOrEqual(t, cur, prev)
		if cur < prev {
			fired = true
		}
		prev = cur
	}
	assert.True(t, fired, "ratchet never fired")
}

func TestReloadedDataInvalidatesCache(t *testing.T) {
	m := quadraticModel(t, quadraticConfig())

	// warm the cache
	_, err := m.Predict([]float64{1})
	require.NoError(t, err)

	// replace the data without retraining: predictions must reflect the
	// new targets, never the stale factorization
	X := [][]float64{{0}, {1}, {2}, {3}}
	yNew := []float64{5, 5, 5, 5}
	require.NoError(t, m.LoadData(X, yNew))

	pred, err := m.Predict([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 5, pred, 0.1)
}

func TestTestsetSplitConfigured(t *testing.T) {
	cfg := quadraticConfig()
	cfg.TestsetFraction = 0.25
	m, err := NewModel("gp", cfg, nil, nil)
	require.NoError(t, err)

	X := make([][]float64, 12)
	y := make([]float64, 12)
	for i := range X {
		X[i] = []float64{float64(i) / 3}
		y[i] = math.Sin(X[i][0])
	}
	require.NoError(t, m.LoadData(X, y))
	assert.Equal(t, 9, m.train.Len())
	assert.Equal(t, 3, m.test.Len())
	require.NoError(t, m.Train())
}
