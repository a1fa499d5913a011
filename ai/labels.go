package ai

import (
	"math/rand/v2"
	"sort"
)

type Label int

const (
	Sell Label = -1
	Hold Label = 0
	Buy  Label = 1
)

const (
	lookahead      = 5
	labelThreshold = 0.002
)

// Labels classifies each close by its return lookahead bars later. The
// final lookahead bars have no future and are reported as not ok.
func Labels(closes []float64, lookahead int, threshold float64) (labels []Label, ok []bool) {
	labels = make([]Label, len(closes))
	ok = make([]bool, len(closes))
	for i := 0; i+lookahead < len(closes); i++ {
		if closes[i] == 0 {
			continue
		}
		r := closes[i+lookahead]/closes[i] - 1
		switch {
		case r > threshold:
			labels[i] = Buy
		case r < -threshold:
			labels[i] = Sell
		default:
			labels[i] = Hold
		}
		ok[i] = true
	}
	return labels, ok
}

// trainTestSplit shuffles each class separately and holds out testFrac of
// it, so both sets keep the class balance.
func trainTestSplit(X [][]float64, y []int, testFrac float64, seed uint64) (xTrain, xTest [][]float64, yTrain, yTest []int) {
	rng := rand.New(rand.NewPCG(seed, seed))

	byClass := map[int][]int{}
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	for _, c := range classes {
		idx := byClass[c]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTest := int(float64(len(idx))*testFrac + 0.5)
		if nTest >= len(idx) {
			nTest = len(idx) - 1
		}
		for k, i := range idx {
			if k < nTest {
				xTest = append(xTest, X[i])
				yTest = append(yTest, y[i])
			} else {
				xTrain = append(xTrain, X[i])
				yTrain = append(yTrain, y[i])
			}
		}
	}
	return xTrain, xTest, yTrain, yTest
}

func accuracy(m Classifier, X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	hits := 0
	for i, x := range X {
		pred := 0
		if m.PredictProba(x) >= 0.5 {
			pred = 1
		}
		if pred == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(X))
}
