package ai

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
)

// RandomForest averages bootstrapped decision trees that each consider
// sqrt(d) random features per split.
type RandomForest struct {
	Trees    int
	MaxDepth int
	Seed     uint64

	trees []*DecisionTree
}

func NewRandomForest() *RandomForest {
	return &RandomForest{Trees: 100, MaxDepth: 10, Seed: 42}
}

func (f *RandomForest) Name() string { return "random_forest" }

func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(f.Seed, f.Seed^0x9e3779b97f4a7c15))
	maxFeatures := int(math.Sqrt(float64(len(X[0]))))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	f.trees = make([]*DecisionTree, f.Trees)
	for k := range f.trees {
		idx := make([]int, len(X))
		for i := range idx {
			idx[i] = rng.IntN(len(X))
		}
		t := &DecisionTree{MaxDepth: f.MaxDepth, MaxFeatures: maxFeatures, rng: rng}
		t.fit(X, y, idx)
		f.trees[k] = t
	}
	return nil
}

func (f *RandomForest) PredictProba(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0.5
	}
	votes := make([]float64, len(f.trees))
	for k, t := range f.trees {
		votes[k] = t.PredictProba(x)
	}
	return stat.Mean(votes, nil)
}
