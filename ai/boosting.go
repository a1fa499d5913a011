package ai

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// GradientBoosting fits regression trees to log-loss residuals. Leaves take
// a single Newton step.
type GradientBoosting struct {
	Stages       int
	LearningRate float64
	MaxDepth     int

	init  float64
	trees []*treeNode
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{Stages: 100, LearningRate: 0.1, MaxDepth: 6}
}

func (g *GradientBoosting) Name() string { return "gradient_boost" }

func (g *GradientBoosting) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	n := len(X)
	labels := make([]float64, n)
	for i, v := range y {
		labels[i] = float64(v)
	}
	p0 := stat.Mean(labels, nil)
	g.init = math.Log(p0 / (1 - p0))

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = g.init
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	resid := make([]float64, n)
	prob := make([]float64, n)
	cfg := treeConfig{maxDepth: g.MaxDepth, minSamplesLeaf: 1}
	g.trees = g.trees[:0]

	for s := 0; s < g.Stages; s++ {
		for i := range raw {
			prob[i] = sigmoid(raw[i])
			resid[i] = labels[i] - prob[i]
		}
		tree := growTree(X, resid, idx, 0, cfg, func(ix []int) float64 {
			var num, den float64
			for _, i := range ix {
				num += resid[i]
				den += prob[i] * (1 - prob[i])
			}
			if den < 1e-12 {
				return 0
			}
			return num / den
		})
		for i, x := range X {
			raw[i] += g.LearningRate * tree.predict(x)
		}
		g.trees = append(g.trees, tree)
	}
	return nil
}

func (g *GradientBoosting) PredictProba(x []float64) float64 {
	if g.trees == nil {
		return 0.5
	}
	z := g.init
	for _, t := range g.trees {
		z += g.LearningRate * t.predict(x)
	}
	return sigmoid(z)
}
