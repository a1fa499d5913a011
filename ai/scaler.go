package ai

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centres each column on zero with unit variance. Columns
// with zero variance are only centred.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 || len(X[0]) == 0 {
		return errors.New("scaler: empty input")
	}
	m := designMatrix(X, false)
	_, d := m.Dims()
	s.Mean = make([]float64, d)
	s.Scale = make([]float64, d)

	col := make([]float64, len(X))
	for j := 0; j < d; j++ {
		mat.Col(col, j, m)
		s.Mean[j], s.Scale[j] = stat.PopMeanStdDev(col, nil)
		if s.Scale[j] == 0 {
			s.Scale[j] = 1
		}
	}
	return nil
}

func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	floats.SubTo(out, x, s.Mean)
	floats.Div(out, s.Scale)
	return out
}

func (s *StandardScaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// designMatrix packs rows into a dense matrix, optionally with a leading
// column of ones for an intercept.
func designMatrix(X [][]float64, intercept bool) *mat.Dense {
	d := len(X[0])
	off := 0
	if intercept {
		off = 1
	}
	m := mat.NewDense(len(X), d+off, nil)
	for i, row := range X {
		if intercept {
			m.Set(i, 0, 1)
		}
		for j, v := range row {
			m.Set(i, j+off, v)
		}
	}
	return m
}
