package ai

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Classifier is a binary model. Labels are 0 (sell) and 1 (buy);
// PredictProba returns the probability of class 1.
type Classifier interface {
	Name() string
	Fit(X [][]float64, y []int) error
	PredictProba(x []float64) float64
}

// pipeline scales inputs before handing them to the model.
type pipeline struct {
	scaler StandardScaler
	model  Classifier
}

func (p *pipeline) Name() string { return p.model.Name() }

func (p *pipeline) Fit(X [][]float64, y []int) error {
	if err := p.scaler.Fit(X); err != nil {
		return err
	}
	return p.model.Fit(p.scaler.TransformAll(X), y)
}

func (p *pipeline) PredictProba(x []float64) float64 {
	return p.model.PredictProba(p.scaler.Transform(x))
}

func checkXY(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("rows/labels mismatch: %d vs %d", len(X), len(y))
	}
	seen := [2]bool{}
	for _, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("label %d is not binary", v)
		}
		seen[v] = true
	}
	if !seen[0] || !seen[1] {
		return errors.New("training data must contain both classes")
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// LogisticRegression is L2-regularised logistic regression. The penalised
// log-loss is minimised with L-BFGS.
type LogisticRegression struct {
	C       float64
	MaxIter int

	// coef[0] is the intercept.
	coef []float64
}

func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1.0, MaxIter: 1000}
}

func (m *LogisticRegression) Name() string { return "logistic_regression" }

func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	A := designMatrix(X, true)
	n, d := A.Dims()
	target := make([]float64, n)
	for i, v := range y {
		target[i] = float64(v)
	}
	penalty := 1 / (m.C * float64(n))

	z := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	linear := func(w []float64) {
		z.MulVec(A, mat.NewVecDense(d, w))
	}
	p := optimize.Problem{
		Func: func(w []float64) float64 {
			linear(w)
			loss := 0.0
			for i := 0; i < n; i++ {
				zi := z.AtVec(i)
				loss += softplus(zi) - target[i]*zi
			}
			return loss/float64(n) + penalty*floats.Dot(w[1:], w[1:])/2
		},
		Grad: func(grad, w []float64) {
			linear(w)
			for i := 0; i < n; i++ {
				resid.SetVec(i, sigmoid(z.AtVec(i))-target[i])
			}
			mat.NewVecDense(d, grad).MulVec(A.T(), resid)
			floats.Scale(1/float64(n), grad)
			floats.AddScaled(grad[1:], penalty, w[1:])
		},
	}

	res, err := optimize.Minimize(p, make([]float64, d), &optimize.Settings{MajorIterations: m.MaxIter}, &optimize.LBFGS{})
	if res == nil || !finite(res.X) {
		if err == nil {
			err = errors.New("no solution")
		}
		return fmt.Errorf("logistic regression: %w", err)
	}
	m.coef = res.X
	return nil
}

func (m *LogisticRegression) PredictProba(x []float64) float64 {
	if len(m.coef) != len(x)+1 {
		return 0.5
	}
	return sigmoid(m.coef[0] + floats.Dot(m.coef[1:], x))
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
