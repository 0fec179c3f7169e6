package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdamMinimizesQuadratic(t *testing.T) {
	// f(x) = (x0-3)^2 + (x1+1)^2
	x := []float64{0, 0}
	grad := make([]float64, 2)
	opt := NewAdam(0.1, 0.001)

	for i := 0; i < 1000; i++ {
		grad[0] = 2 * (x[0] - 3)
		grad[1] = 2 * (x[1] + 1)
		opt.Step(x, grad)
	}

	assert.InDelta(t, 3, x[0], 0.2)
	assert.InDelta(t, -1, x[1], 0.2)
}

func TestScheduleMonotone(t *testing.T) {
	opt := NewAdam(0.05, 0.02)
	prev := opt.LR(0)
	assert.InDelta(t, 0.05, prev, 1e-12)
	for i := 1; i < 100; i++ {
		lr := opt.LR(i)
		assert.LessOrEqual(t, lr, prev)
		prev = lr
	}
}

func TestZeroDecayKeepsRateConstant(t *testing.T) {
	opt := NewAdam(0.01, 0)
	assert.Equal(t, opt.LR(0), opt.LR(500))
}
