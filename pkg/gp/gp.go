// Package gp implements a Gaussian process regressor with a single scalar
// output. One model is created per output dimension of an emulated quantity;
// the ensemble package fans queries out across models.
package gp

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Lbalkenhol/OLE-candl-development/pkg/dataset"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/kernel"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/metrics"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/optim"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/rng"
)

var (
	ErrNoData         = errors.New("gp: no training data loaded")
	ErrNotTrained     = errors.New("gp: model not trained")
	ErrIllConditioned = errors.New("gp: covariance matrix is not positive definite")
)

// Diagnostics consumes training and evaluation artifacts. The model never
// reads anything back; failures are logged and swallowed so diagnostics can
// never abort training or prediction.
type Diagnostics interface {
	LossHistory(name string, losses []float64) error
	TestSetPrediction(name string, truth, mean, std []float64) error
	PredictionCheck(name string, point []float64, truth, mean, std float64, samples []float64) error
}

// posterior is the cached covariance factorization of the training data
// under the current hyperparameters. It is tagged with the model state
// version that built it; any read checks the tag before trusting the cache,
// so a factorization can never outlive the data or hyperparameters that
// produced it.
type posterior struct {
	version uint64
	chol    *mat.Cholesky
	alpha   *mat.VecDense
}

// Model is a single-output Gaussian process regressor.
type Model struct {
	name string
	cfg  Config
	log  *zap.Logger
	diag Diagnostics

	// errTol is the current noise variance target. It starts at the
	// configured error tolerance and only ever shrinks (see UpdateError).
	errTol float64

	train *dataset.Dataset
	test  *dataset.Dataset

	kern    kernel.Kernel
	trained bool
	history []float64

	version   uint64
	posterior *posterior
}

// NewModel creates a model with the given configuration. A nil logger
// disables logging; a nil diagnostics sink disables all diagnostics output.
func NewModel(name string, cfg Config, log *zap.Logger, diag Diagnostics) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Model{
		name:   name,
		cfg:    cfg,
		log:    log.Named(name),
		diag:   diag,
		errTol: cfg.ErrorTolerance,
	}, nil
}

func (m *Model) Name() string { return m.name }

// ErrorTolerance reports the current noise variance target.
func (m *Model) ErrorTolerance() float64 { return m.errTol }

// LossHistory returns the objective values recorded during the last Train.
func (m *Model) LossHistory() []float64 { return m.history }

// LoadData replaces the model's dataset. When a test fraction is configured
// the samples are deterministically partitioned into a training and a
// held-out subset; otherwise everything becomes training data. Any cached
// covariance factorization is invalidated.
func (m *Model) LoadData(X [][]float64, y []float64) error {
	ds, err := dataset.New(X, y)
	if err != nil {
		return err
	}
	if m.cfg.TestsetFraction > 0 {
		m.train, m.test, err = ds.Split(m.cfg.TestsetFraction, m.cfg.SplitSeed)
		if err != nil {
			return err
		}
		m.log.Debug("split data into training and test set",
			zap.Int("train", m.train.Len()),
			zap.Int("test", m.test.Len()),
		)
	} else {
		m.train, m.test = ds, nil
	}
	m.version++
	m.posterior = nil
	return nil
}

// Train fits the kernel hyperparameters by minimizing the negative log
// marginal likelihood over a fixed number of Adam steps with an
// exponentially decaying learning rate. The noise variance stays pinned at
// the current error tolerance throughout.
func (m *Model) Train() error {
	if m.train == nil {
		return ErrNoData
	}
	kern, err := kernel.New(m.cfg.Kernel, m.errTol)
	if err != nil {
		return err
	}

	theta := kern.Hyperparameters()
	grad := make([]float64, kern.NumHyperparameters())
	opt := optim.NewAdam(m.cfg.LearningRate, m.cfg.DecayRate)
	history := make([]float64, 0, m.cfg.NumIters)

	for t := 0; t < m.cfg.NumIters; t++ {
		loss, err := negLogMarginal(kern, m.train.X, m.train.Y, grad)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", t, err)
		}
		history = append(history, loss)
		opt.Step(theta, grad)
		if err := kern.SetHyperparameters(theta); err != nil {
			return err
		}
	}

	m.kern = kern
	m.trained = true
	m.history = history
	m.version++
	m.posterior = nil

	m.log.Info("training finished",
		zap.Int("iterations", m.cfg.NumIters),
		zap.Float64("final_loss", history[len(history)-1]),
		zap.Float64s("hyperparameters", kern.Hyperparameters()),
		zap.Float64("noise_variance", m.errTol),
	)

	if m.diag != nil {
		if err := m.diag.LossHistory(m.name, history); err != nil {
			m.log.Warn("loss history diagnostics failed", zap.Error(err))
		}
		if m.test != nil {
			m.runTestSet()
		}
	}
	return nil
}

// ensurePosterior returns a covariance factorization that is guaranteed to
// match the current dataset and hyperparameters, rebuilding it when the
// cached one carries a stale version tag.
func (m *Model) ensurePosterior() (*posterior, error) {
	if !m.trained {
		return nil, ErrNotTrained
	}
	if m.train == nil {
		return nil, ErrNoData
	}
	if m.posterior != nil && m.posterior.version == m.version {
		return m.posterior, nil
	}

	n := m.train.Len()
	K := kernel.Matrix(m.kern, m.train.X)
	chol := &mat.Cholesky{}
	if !chol.Factorize(K) {
		return nil, ErrIllConditioned
	}
	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, mat.NewVecDense(n, m.train.Y)); err != nil {
		return nil, ErrIllConditioned
	}
	m.posterior = &posterior{version: m.version, chol: chol, alpha: alpha}
	m.log.Debug("rebuilt covariance factorization", zap.Uint64("version", m.version))
	return m.posterior, nil
}

// crossCovariance returns the signal covariances between x and every
// training input.
func (m *Model) crossCovariance(x []float64) *mat.VecDense {
	n := m.train.Len()
	ks := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		ks.SetVec(i, m.kern.Signal(x, m.train.X[i]))
	}
	return ks
}

// Predict returns the posterior mean at x using the cached factorization.
func (m *Model) Predict(x []float64) (float64, error) {
	post, err := m.ensurePosterior()
	if err != nil {
		return 0, err
	}
	return mat.Dot(m.crossCovariance(x), post.alpha), nil
}

// PredictValueAndStd returns the posterior mean and the marginal predictive
// standard deviation at x. The variance solve is performed fresh on every
// call; only the (version-checked) factorization is shared with the mean
// path.
func (m *Model) PredictValueAndStd(x []float64) (mean, std float64, err error) {
	post, err := m.ensurePosterior()
	if err != nil {
		return 0, 0, err
	}
	ks := m.crossCovariance(x)
	mean = mat.Dot(ks, post.alpha)

	v := mat.NewVecDense(ks.Len(), nil)
	if err := post.chol.SolveVecTo(v, ks); err != nil {
		return 0, 0, ErrIllConditioned
	}
	variance := m.kern.Signal(x, x) + m.kern.NoiseVariance() - mat.Dot(ks, v)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance), nil
}

// Sample draws n independent values from the predictive distribution at x.
// The given key is consumed; callers must carry the returned key forward and
// never reuse the one they passed in.
func (m *Model) Sample(x []float64, n int, key rng.Key) ([]float64, rng.Key, error) {
	mean, std, err := m.PredictValueAndStd(x)
	if err != nil {
		return nil, key, err
	}
	sub, next := key.Split()
	dist := distuv.Normal{Mu: mean, Sigma: std, Src: sub.Source()}
	out := make([]float64, n)
	for i := range out {
		out[i] = dist.Rand()
	}
	return out, next, nil
}

// PredictGradient returns the gradient of the posterior mean with respect to
// the components of x. It differentiates the same mean formula Predict uses.
func (m *Model) PredictGradient(x []float64) ([]float64, error) {
	post, err := m.ensurePosterior()
	if err != nil {
		return nil, err
	}
	grad := make([]float64, len(x))
	tmp := make([]float64, len(x))
	for i := 0; i < m.train.Len(); i++ {
		m.kern.InputGradient(x, m.train.X[i], tmp)
		floats.AddScaled(grad, post.alpha.AtVec(i), tmp)
	}
	return grad, nil
}

// UpdateError applies the error-tolerance ratchet at the given probe point:
// when the noise variance explains more than the configured fraction of the
// predictive variance there, the tolerance shrinks by the configured factor.
// The tolerance never grows; the tightened noise term takes effect at the
// next Train.
func (m *Model) UpdateError(point []float64) error {
	_, std, err := m.PredictValueAndStd(point)
	if err != nil {
		return err
	}
	variance := std * std
	if m.errTol > variance*m.cfg.NoiseVarianceFraction {
		old := m.errTol
		m.errTol *= m.cfg.ToleranceShrinkFactor
		m.log.Info("tightened error tolerance",
			zap.Float64("old", old),
			zap.Float64("new", m.errTol),
			zap.Float64("predictive_variance", variance),
		)
	}
	return nil
}

// CheckPrediction runs a sampling-based quality check at a probe point with
// known truth: it draws the configured number of samples and hands them to
// diagnostics together with the predictive distribution. The given key is
// consumed; the returned key replaces it.
func (m *Model) CheckPrediction(point []float64, truth float64, key rng.Key) (rng.Key, error) {
	mean, std, err := m.PredictValueAndStd(point)
	if err != nil {
		return key, err
	}
	samples, next, err := m.Sample(point, m.cfg.NQualitySamples, key)
	if err != nil {
		return key, err
	}
	m.log.Debug("prediction check",
		zap.Float64("truth", truth),
		zap.Float64("mean", mean),
		zap.Float64("std", std),
	)
	if m.diag != nil {
		if err := m.diag.PredictionCheck(m.name, point, truth, mean, std, samples); err != nil {
			m.log.Warn("prediction check diagnostics failed", zap.Error(err))
		}
	}
	return next, nil
}

// runTestSet predicts every held-out sample and reports the results to
// diagnostics. Failures are logged, never propagated.
func (m *Model) runTestSet() {
	n := m.test.Len()
	truth := make([]float64, n)
	means := make([]float64, n)
	stds := make([]float64, n)
	for i := 0; i < n; i++ {
		mean, std, err := m.PredictValueAndStd(m.test.X[i])
		if err != nil {
			m.log.Warn("held-out evaluation failed", zap.Error(err))
			return
		}
		truth[i] = m.test.Y[i]
		means[i] = mean
		stds[i] = std
	}
	m.log.Info("held-out evaluation",
		zap.Int("samples", n),
		zap.Float64("mse", metrics.MSE(truth, means)),
		zap.Float64("r2", metrics.R2(truth, means)),
	)
	if err := m.diag.TestSetPrediction(m.name, truth, means, stds); err != nil {
		m.log.Warn("test set diagnostics failed", zap.Error(err))
	}
}
