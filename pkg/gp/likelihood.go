package gp

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Lbalkenhol/OLE-candl-development/pkg/kernel"
)

// negLogMarginal evaluates the negative log marginal likelihood of the
// targets y under the kernel's prior over the inputs X,
//
//	nlml = 0.5*y'K^-1 y + 0.5*log|K| + n/2 log(2*pi),
//
// and, when grad is non-nil, its gradient with respect to the kernel's
// trainable hyperparameters:
//
//	d nlml / d theta_j = -0.5 * tr((alpha alpha' - K^-1) dK/dtheta_j).
//
// The pinned noise term has zero hyperparameter gradient by construction.
func negLogMarginal(kern kernel.Kernel, X [][]float64, y []float64, grad []float64) (float64, error) {
	n := len(y)
	K := kernel.Matrix(kern, X)

	var chol mat.Cholesky
	if !chol.Factorize(K) {
		return 0, ErrIllConditioned
	}

	yVec := mat.NewVecDense(n, y)
	alpha := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(alpha, yVec); err != nil {
		return 0, ErrIllConditioned
	}

	nlml := 0.5*mat.Dot(yVec, alpha) + 0.5*chol.LogDet() + 0.5*float64(n)*math.Log(2*math.Pi)

	if grad != nil {
		var kInv mat.SymDense
		if err := chol.InverseTo(&kInv); err != nil {
			return 0, ErrIllConditioned
		}
		for j := range grad {
			grad[j] = 0
		}
		dk := make([]float64, kern.NumHyperparameters())
		for i := 0; i < n; i++ {
			for l := 0; l < n; l++ {
				kern.ThetaGradient(X[i], X[l], dk)
				w := alpha.AtVec(i)*alpha.AtVec(l) - kInv.At(i, l)
				for j := range grad {
					grad[j] -= 0.5 * w * dk[j]
				}
			}
		}
	}
	return nlml, nil
}
