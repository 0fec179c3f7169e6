package kernel

import (
	"fmt"
	"math"
)

// RBFNoise is the squared-exponential signal term plus independent noise:
//
//	k(x, x') = sf2 * exp(-|x-x'|^2 / (2*l2)) + noise * [x == x']
//
// The trainable hyperparameters are log(sf2) and log(l2); the noise variance
// is pinned at the owning model's current error tolerance.
type RBFNoise struct {
	logSignalVar float64 // log sf2
	logLength2   float64 // log l2
	noiseVar     float64
}

// NewRBFNoise creates an RBF+noise kernel from linear-space scales.
func NewRBFNoise(signalVar, length2, noiseVar float64) *RBFNoise {
	if signalVar <= 0 || length2 <= 0 {
		panic(fmt.Sprintf("kernel: scales must be positive, got sf2=%v l2=%v", signalVar, length2))
	}
	return &RBFNoise{
		logSignalVar: math.Log(signalVar),
		logLength2:   math.Log(length2),
		noiseVar:     noiseVar,
	}
}

func sqDist(x1, x2 []float64) float64 {
	s := 0.0
	for i := range x1 {
		d := x1[i] - x2[i]
		s += d * d
	}
	return s
}

func (k *RBFNoise) signalFromSq(d2 float64) float64 {
	return math.Exp(k.logSignalVar) * math.Exp(-d2/(2*math.Exp(k.logLength2)))
}

// Signal returns the smooth covariance term between x1 and x2.
func (k *RBFNoise) Signal(x1, x2 []float64) float64 {
	return k.signalFromSq(sqDist(x1, x2))
}

// Eval returns the full covariance; the noise term contributes only when the
// two inputs are identical.
func (k *RBFNoise) Eval(x1, x2 []float64) float64 {
	v := k.Signal(x1, x2)
	if sameInput(x1, x2) {
		v += k.noiseVar
	}
	return v
}

// ThetaGradient writes d k_signal / d log(sf2) and d k_signal / d log(l2).
func (k *RBFNoise) ThetaGradient(x1, x2 []float64, dst []float64) {
	d2 := sqDist(x1, x2)
	ks := k.signalFromSq(d2)
	dst[0] = ks
	dst[1] = ks * d2 / (2 * math.Exp(k.logLength2))
}

// InputGradient writes d k_signal(x, xi) / d x_j = k_signal * (xi_j - x_j) / l2.
func (k *RBFNoise) InputGradient(x, xi []float64, dst []float64) {
	ks := k.Signal(x, xi)
	l2 := math.Exp(k.logLength2)
	for j := range x {
		dst[j] = ks * (xi[j] - x[j]) / l2
	}
}

func (k *RBFNoise) Hyperparameters() []float64 {
	return []float64{k.logSignalVar, k.logLength2}
}

func (k *RBFNoise) SetHyperparameters(theta []float64) error {
	if len(theta) != 2 {
		return fmt.Errorf("kernel: expected 2 hyperparameters, got %d", len(theta))
	}
	k.logSignalVar = theta[0]
	k.logLength2 = theta[1]
	return nil
}

func (k *RBFNoise) NumHyperparameters() int { return 2 }

func (k *RBFNoise) NoiseVariance() float64     { return k.noiseVar }
func (k *RBFNoise) SetNoiseVariance(v float64) { k.noiseVar = v }

func sameInput(x1, x2 []float64) bool {
	if len(x1) != len(x2) {
		return false
	}
	for i := range x1 {
		if x1[i] != x2[i] {
			return false
		}
	}
	return true
}
