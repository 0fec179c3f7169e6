package optim

import "math"

// Adam is a momentum-based adaptive optimizer with an exponentially decaying
// learning rate schedule: lr(t) = LearningRate * exp(-DecayRate * t).
type Adam struct {
	LearningRate float64
	DecayRate    float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	step int
	m, v []float64
}

// NewAdam returns an Adam optimizer with the usual moment defaults.
func NewAdam(lr, decay float64) *Adam {
	return &Adam{
		LearningRate: lr,
		DecayRate:    decay,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// LR reports the schedule value at step t. The schedule is monotonically
// non-increasing in t.
func (o *Adam) LR(t int) float64 {
	return o.LearningRate * math.Exp(-o.DecayRate*float64(t))
}

// Step applies one in-place update to params using grads.
func (o *Adam) Step(params, grads []float64) {
	if o.m == nil {
		o.m = make([]float64, len(params))
		o.v = make([]float64, len(params))
	}
	lr := o.LR(o.step)
	o.step++
	t := float64(o.step)
	for i := range params {
		o.m[i] = o.Beta1*o.m[i] + (1-o.Beta1)*grads[i]
		o.v[i] = o.Beta2*o.v[i] + (1-o.Beta2)*grads[i]*grads[i]
		mHat := o.m[i] / (1 - math.Pow(o.Beta1, t))
		vHat := o.v[i] / (1 - math.Pow(o.Beta2, t))
		params[i] -= lr * mHat / (math.Sqrt(vHat) + o.Epsilon)
	}
}
