// Package ensemble emulates one vector-valued simulation quantity with a
// collection of independent Gaussian process models, one per compressed
// output dimension. Queries are normalized, fanned out across the models,
// and mapped back to raw units through the data-processing collaborator.
package ensemble

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/Lbalkenhol/OLE-candl-development/pkg/dataset"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/gp"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/metrics"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/process"
	"github.com/Lbalkenhol/OLE-candl-development/pkg/rng"
)

var (
	ErrNotInitialized = errors.New("ensemble: not initialized")
	ErrNotTrained     = errors.New("ensemble: not trained")
	ErrNoData         = errors.New("ensemble: no data loaded")
)

// ExampleState fixes the dimensionality of an ensemble at initialization:
// one example output vector per quantity and one example scalar per
// parameter. It is consulted exactly once.
type ExampleState struct {
	Parameters map[string]float64
	Quantities map[string][]float64
}

// Config carries the per-model defaults every constructed model inherits.
type Config struct {
	GP gp.Config
}

// DefaultConfig returns the ensemble defaults.
func DefaultConfig() Config {
	return Config{GP: gp.DefaultConfig()}
}

// Ensemble owns one Gaussian process model per compressed output dimension
// of a single quantity. The collection only ever grows: when a training
// round discovers a wider compressed output, fresh models are appended and
// the existing ones keep their state.
type Ensemble struct {
	quantity string
	cfg      Config
	proc     process.Processor
	diag     gp.Diagnostics
	log      *zap.Logger

	inputDim  int
	outputDim int

	models  []*gp.Model
	trained bool
}

// New creates an ensemble for the named quantity. A nil logger disables
// logging; a nil diagnostics sink disables diagnostics for every model.
func New(quantity string, cfg Config, proc process.Processor, diag gp.Diagnostics, log *zap.Logger) (*Ensemble, error) {
	if err := cfg.GP.Validate(); err != nil {
		return nil, err
	}
	if proc == nil {
		return nil, errors.New("ensemble: data processor is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Ensemble{
		quantity: quantity,
		cfg:      cfg,
		proc:     proc,
		diag:     diag,
		log:      log.Named("GP " + quantity),
	}, nil
}

// Initialize determines the input and output dimensionality from one example
// observation and configures the data processor accordingly. The ensemble
// starts with zero models; they are constructed lazily during Train.
func (e *Ensemble) Initialize(example ExampleState) error {
	out, ok := example.Quantities[e.quantity]
	if !ok {
		return fmt.Errorf("ensemble: example state has no quantity %q", e.quantity)
	}
	if len(out) == 0 || len(example.Parameters) == 0 {
		return fmt.Errorf("ensemble: example state for %q is degenerate", e.quantity)
	}
	e.inputDim = len(example.Parameters)
	e.outputDim = len(out)
	e.log.Info("initialized",
		zap.Int("input_size", e.inputDim),
		zap.Int("output_size", e.outputDim),
	)
	return e.proc.Initialize(e.inputDim, e.outputDim)
}

// LoadData hands the raw training samples to the data processor, which
// rebuilds its normalization and compression state from scratch.
func (e *Ensemble) LoadData(rawX, rawY [][]float64) error {
	if e.inputDim == 0 {
		return ErrNotInitialized
	}
	return e.proc.LoadData(rawX, rawY)
}

// Train fits one model per compressed output dimension on the processor's
// current data. If the compressed width grew since the last round, fresh
// models are appended first; existing models are retrained in place and keep
// their per-model state such as a ratcheted error tolerance.
func (e *Ensemble) Train() error {
	if e.inputDim == 0 {
		return ErrNotInitialized
	}
	X := e.proc.InputDataNormalized()
	Z := e.proc.OutputDataEmulator()
	if len(X) == 0 || len(Z) == 0 {
		return ErrNoData
	}
	width := len(Z[0])
	if width < len(e.models) {
		return fmt.Errorf("ensemble: compressed output shrank from %d to %d dimensions", len(e.models), width)
	}
	for len(e.models) < width {
		name := fmt.Sprintf("GP %s dim %d", e.quantity, len(e.models))
		m, err := gp.NewModel(name, e.cfg.GP, e.log, e.diag)
		if err != nil {
			return err
		}
		e.models = append(e.models, m)
	}

	col := make([]float64, len(Z))
	for i, m := range e.models {
		for r := range Z {
			col[r] = Z[r][i]
		}
		y := make([]float64, len(col))
		copy(y, col)
		if err := m.LoadData(X, y); err != nil {
			return fmt.Errorf("ensemble: loading dimension %d: %w", i, err)
		}
		if err := m.Train(); err != nil {
			return fmt.Errorf("ensemble: training dimension %d: %w", i, err)
		}
	}
	e.trained = true
	e.log.Info("trained", zap.Int("models", len(e.models)), zap.Int("samples", len(X)))
	return nil
}

// NumModels reports the current ensemble width.
func (e *Ensemble) NumModels() int { return len(e.models) }

// Models exposes the per-dimension models, ordered by dimension index.
func (e *Ensemble) Models() []*gp.Model { return e.models }

// Predict returns the emulated quantity at the given raw parameter vector,
// in the caller's original units.
func (e *Ensemble) Predict(parameters []float64) ([]float64, error) {
	compressed, err := e.fanOut(parameters, func(m *gp.Model, pn []float64) (float64, error) {
		return m.Predict(pn)
	})
	if err != nil {
		return nil, err
	}
	return e.proc.DenormalizeData(e.proc.DecompressData(compressed)), nil
}

// PredictValueAndStd returns the emulated quantity and its marginal
// predictive standard deviation, both in raw units.
func (e *Ensemble) PredictValueAndStd(parameters []float64) (mean, std []float64, err error) {
	if !e.trained {
		return nil, nil, ErrNotTrained
	}
	pn := e.proc.NormalizeInputData(parameters)
	cMean := make([]float64, len(e.models))
	cStd := make([]float64, len(e.models))
	for i, m := range e.models {
		cMean[i], cStd[i], err = m.PredictValueAndStd(pn)
		if err != nil {
			return nil, nil, fmt.Errorf("ensemble: dimension %d: %w", i, err)
		}
	}
	mean = e.proc.DenormalizeData(e.proc.DecompressData(cMean))
	std = e.proc.DenormalizeStd(e.proc.DecompressStd(cStd))
	return mean, std, nil
}

// SamplePrediction draws n independent realizations of the emulated quantity
// at the given parameters, in raw units, one row per draw. The passed key is
// consumed; callers must continue with the returned key.
func (e *Ensemble) SamplePrediction(parameters []float64, n int, key rng.Key) ([][]float64, rng.Key, error) {
	if !e.trained {
		return nil, key, ErrNotTrained
	}
	pn := e.proc.NormalizeInputData(parameters)

	perDim := make([][]float64, len(e.models))
	for i, m := range e.models {
		var err error
		perDim[i], key, err = m.Sample(pn, n, key)
		if err != nil {
			return nil, key, fmt.Errorf("ensemble: dimension %d: %w", i, err)
		}
	}

	out := make([][]float64, n)
	compressed := make([]float64, len(e.models))
	for j := 0; j < n; j++ {
		for i := range e.models {
			compressed[i] = perDim[i][j]
		}
		out[j] = e.proc.DenormalizeData(e.proc.DecompressData(compressed))
	}
	return out, key, nil
}

// PredictGradients returns the Jacobian of the emulated quantity with
// respect to the raw input parameters. Rows correspond to output dimensions,
// columns to input parameters. Decompressed gradients are rescaled through
// both normalization steps: divided by the input standard deviations and
// multiplied by the output standard deviations.
func (e *Ensemble) PredictGradients(parameters []float64) (*mat.Dense, error) {
	if !e.trained {
		return nil, ErrNotTrained
	}
	pn := e.proc.NormalizeInputData(parameters)

	gradC := make([][]float64, len(e.models))
	for i, m := range e.models {
		g, err := m.PredictGradient(pn)
		if err != nil {
			return nil, fmt.Errorf("ensemble: dimension %d: %w", i, err)
		}
		gradC[i] = g
	}

	inStds := e.proc.InputStds()
	outStds := e.proc.OutputStds()
	out := mat.NewDense(e.outputDim, e.inputDim, nil)
	col := make([]float64, len(e.models))
	for j := 0; j < e.inputDim; j++ {
		for i := range e.models {
			col[i] = gradC[i][j]
		}
		dec := e.proc.DecompressData(col)
		for d := 0; d < e.outputDim; d++ {
			out.Set(d, j, dec[d]/inStds[j]*outStds[d])
		}
	}
	return out, nil
}

// UpdateError applies each model's error-tolerance ratchet at the given raw
// probe point.
func (e *Ensemble) UpdateError(point []float64) error {
	if !e.trained {
		return ErrNotTrained
	}
	pn := e.proc.NormalizeInputData(point)
	for i, m := range e.models {
		if err := m.UpdateError(pn); err != nil {
			return fmt.Errorf("ensemble: dimension %d: %w", i, err)
		}
	}
	return nil
}

// RunTests re-derives the deterministic train/test split the models used
// internally, predicts the held-out samples in the original uncompressed
// space, and reports the comparison against the true raw values.
func (e *Ensemble) RunTests() error {
	if !e.trained {
		return ErrNotTrained
	}
	if e.cfg.GP.TestsetFraction <= 0 {
		return errors.New("ensemble: no test set configured")
	}
	rawX := e.proc.InputDataRaw()
	rawY := e.proc.OutputDataRaw()
	_, testIdx, err := dataset.SplitIndices(len(rawX), e.cfg.GP.TestsetFraction, e.cfg.GP.SplitSeed)
	if err != nil {
		return err
	}

	var truth, means, stds []float64
	for _, idx := range testIdx {
		mean, std, err := e.PredictValueAndStd(rawX[idx])
		if err != nil {
			return err
		}
		truth = append(truth, rawY[idx]...)
		means = append(means, mean...)
		stds = append(stds, std...)
	}

	e.log.Info("test set evaluation",
		zap.Int("samples", len(testIdx)),
		zap.Float64("rmse", metrics.RMSE(truth, means)),
		zap.Float64("r2", metrics.R2(truth, means)),
	)
	if e.diag != nil {
		name := fmt.Sprintf("GP %s test set", e.quantity)
		if err := e.diag.TestSetPrediction(name, truth, means, stds); err != nil {
			e.log.Warn("test set diagnostics failed", zap.Error(err))
		}
	}
	return nil
}

// fanOut normalizes the parameters and collects one compressed-space scalar
// per model.
func (e *Ensemble) fanOut(parameters []float64, f func(*gp.Model, []float64) (float64, error)) ([]float64, error) {
	if !e.trained {
		return nil, ErrNotTrained
	}
	pn := e.proc.NormalizeInputData(parameters)
	out := make([]float64, len(e.models))
	for i, m := range e.models {
		v, err := f(m, pn)
		if err != nil {
			return nil, fmt.Errorf("ensemble: dimension %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
