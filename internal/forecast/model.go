package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Model is an opaque point-prediction function from a feature vector to a
// log-scale price. Implementations are exchangeable with any supervised
// regression trainer; the pipeline only relies on Predict.
type Model interface {
	Predict(features []float64) (float64, error)
}

// ModelPair holds the two independently trained models. Created by the
// trainer, read-only thereafter; replaced wholesale by retraining.
type ModelPair struct {
	Wholesale *RidgeModel `json:"wholesale"`
	Retail    *RidgeModel `json:"retail"`
}

// RidgeModel is a linear model fit by L2-regularised least squares. The
// final weight is the intercept.
type RidgeModel struct {
	Weights []float64 `json:"weights"`
	Lambda  float64   `json:"lambda"`
}

// Predict computes the dot product of features and weights plus intercept.
// A dimension mismatch means the caller encoded against a different schema
// than the model was trained on, which must abort rather than misalign.
func (m *RidgeModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Weights)-1 {
		return 0, NewSchemaMismatchErrorf(
			"model expects %d features, got %d", len(m.Weights)-1, len(features))
	}
	y := m.Weights[len(m.Weights)-1]
	for i, x := range features {
		y += m.Weights[i] * x
	}
	return y, nil
}

// fitRidge solves (AᵀA + λI)w = Aᵀy where A is the feature matrix with an
// appended bias column. The intercept is not penalised. The ridge term
// keeps the normal equations positive definite even with collinear one-hot
// blocks.
func fitRidge(features [][]float64, target []float64, lambda float64) (*RidgeModel, error) {
	n := len(features)
	if n == 0 {
		return nil, NewInsufficientDataErrorf("no feature rows to fit")
	}
	p := len(features[0]) + 1

	a := mat.NewDense(n, p, nil)
	for i, row := range features {
		if len(row) != p-1 {
			return nil, NewSchemaMismatchErrorf(
				"feature row %d has %d columns, expected %d", i, len(row), p-1)
		}
		for j, v := range row {
			a.Set(i, j, v)
		}
		a.Set(i, p-1, 1)
	}
	y := mat.NewVecDense(n, append([]float64(nil), target...))

	var gram mat.Dense
	gram.Mul(a.T(), a)
	for j := 0; j < p-1; j++ {
		gram.Set(j, j, gram.At(j, j)+lambda)
	}

	var aty mat.VecDense
	aty.MulVec(a.T(), y)

	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sym.SetSym(i, j, gram.At(i, j))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("normal equations are not positive definite (lambda=%g)", lambda)
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, &aty); err != nil {
		return nil, fmt.Errorf("failed to solve normal equations: %w", err)
	}

	return &RidgeModel{Weights: w.RawVector().Data, Lambda: lambda}, nil
}
