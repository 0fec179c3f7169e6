package gp

import (
	"fmt"

	"github.com/Lbalkenhol/OLE-candl-development/pkg/kernel"
)

// Config collects the hyperparameters of one Gaussian process model. It is
// constructed once per model instance; there is no shared mutable default
// state between models.
type Config struct {
	// Kernel selects the covariance family.
	Kernel kernel.Family

	// LearningRate and DecayRate control the exponential-decay schedule
	// lr(t) = LearningRate * exp(-DecayRate*t) of the Adam optimizer.
	LearningRate float64
	DecayRate    float64

	// NumIters is the fixed number of optimization steps. There is no early
	// stopping; the iteration count is the sole termination criterion.
	NumIters int

	// ErrorTolerance is the initial noise variance of the kernel. It acts
	// as the model's accuracy target and is pinned during optimization.
	ErrorTolerance float64

	// TestsetFraction is the held-out fraction of loaded data. Zero
	// disables the split entirely.
	TestsetFraction float64

	// SplitSeed seeds the train/test permutation so the split can be
	// re-derived later.
	SplitSeed uint64

	// NQualitySamples is the number of draws used by sampling-based
	// quality checks.
	NQualitySamples int

	// NoiseVarianceFraction and ToleranceShrinkFactor parametrize the
	// error-tolerance ratchet: when the noise variance exceeds the given
	// fraction of the predictive variance at a probe point, the tolerance
	// is multiplied by the shrink factor. The tolerance only ever shrinks.
	NoiseVarianceFraction float64
	ToleranceShrinkFactor float64
}

// DefaultConfig returns the defaults used for every model the ensemble
// constructs unless the caller overrides them.
func DefaultConfig() Config {
	return Config{
		Kernel:                kernel.RBF,
		LearningRate:          0.02,
		DecayRate:             0.02,
		NumIters:              100,
		ErrorTolerance:        1e-3,
		TestsetFraction:       0,
		SplitSeed:             0,
		NQualitySamples:       5,
		NoiseVarianceFraction: 1.0 / 3.0,
		ToleranceShrinkFactor: 0.5,
	}
}

// Validate checks the configuration and reports the first violated field.
func (c Config) Validate() error {
	if c.Kernel == "" {
		return fmt.Errorf("gp: kernel family must be set")
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("gp: learning rate %v must be positive", c.LearningRate)
	}
	if c.DecayRate < 0 {
		return fmt.Errorf("gp: decay rate %v must be non-negative", c.DecayRate)
	}
	if c.NumIters <= 0 {
		return fmt.Errorf("gp: iteration count %d must be positive", c.NumIters)
	}
	if c.ErrorTolerance <= 0 {
		return fmt.Errorf("gp: error tolerance %v must be positive", c.ErrorTolerance)
	}
	if c.TestsetFraction < 0 || c.TestsetFraction >= 1 {
		return fmt.Errorf("gp: testset fraction %v outside [0, 1)", c.TestsetFraction)
	}
	if c.NQualitySamples <= 0 {
		return fmt.Errorf("gp: quality sample count %d must be positive", c.NQualitySamples)
	}
	if c.NoiseVarianceFraction <= 0 || c.NoiseVarianceFraction > 1 {
		return fmt.Errorf("gp: noise variance fraction %v outside (0, 1]", c.NoiseVarianceFraction)
	}
	if c.ToleranceShrinkFactor <= 0 || c.ToleranceShrinkFactor >= 1 {
		return fmt.Errorf("gp: tolerance shrink factor %v outside (0, 1)", c.ToleranceShrinkFactor)
	}
	return nil
}
