package kernel

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Family names a supported covariance family.
type Family string

// RBF is the radial-basis-function (squared exponential) signal term plus
// independent noise. Currently the only supported family.
const RBF Family = "RBF"

var ErrUnknownKernel = errors.New("kernel: unknown covariance family")

// Kernel is a parametrized covariance function over input vectors. The
// trainable hyperparameters are exposed in log space so the optimizer can
// move freely while the underlying scales stay positive. The noise variance
// is pinned: it is an externally controlled accuracy knob, never part of the
// hyperparameter vector.
type Kernel interface {
	// Eval returns the full covariance between x1 and x2, including the
	// noise term when the two inputs coincide.
	Eval(x1, x2 []float64) float64

	// Signal returns only the smooth signal term.
	Signal(x1, x2 []float64) float64

	// ThetaGradient writes the partial derivatives of the signal term with
	// respect to each trainable hyperparameter into dst, which must have
	// length NumHyperparameters.
	ThetaGradient(x1, x2 []float64, dst []float64)

	// InputGradient writes the partial derivatives of the signal term
	// k(x, xi) with respect to the components of x into dst, which must
	// have length len(x).
	InputGradient(x, xi []float64, dst []float64)

	// Hyperparameters returns a copy of the trainable hyperparameters.
	Hyperparameters() []float64
	SetHyperparameters(theta []float64) error
	NumHyperparameters() int

	NoiseVariance() float64
	SetNoiseVariance(v float64)
}

// New constructs a kernel of the given family with its noise variance pinned
// at noiseVar.
func New(family Family, noiseVar float64) (Kernel, error) {
	switch family {
	case RBF:
		return NewRBFNoise(1.0, 1.0, noiseVar), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, family)
	}
}

// Matrix assembles the full covariance matrix over the rows of X, with the
// noise variance added on the diagonal.
func Matrix(k Kernel, X [][]float64) *mat.SymDense {
	n := len(X)
	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		K.SetSym(i, i, k.Signal(X[i], X[i])+k.NoiseVariance())
		for j := i + 1; j < n; j++ {
			K.SetSym(i, j, k.Signal(X[i], X[j]))
		}
	}
	return K
}
