package ai

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat"
)

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
}

func (n *treeNode) leaf() bool { return n.left == nil }

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type treeConfig struct {
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int // 0 means all
	rng            *rand.Rand
}

// leafFunc computes a leaf's output from the sample indices that reach it.
type leafFunc func(idx []int) float64

// growTree builds a CART regression tree minimising squared error on
// target. On 0/1 targets this picks the same splits as Gini impurity.
func growTree(X [][]float64, target []float64, idx []int, depth int, cfg treeConfig, leafValue leafFunc) *treeNode {
	node := &treeNode{value: leafValue(idx)}
	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minSamplesLeaf || pure(target, idx) {
		return node
	}

	feat, thr, ok := bestSplit(X, target, idx, cfg)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.feature = feat
	node.threshold = thr
	node.left = growTree(X, target, left, depth+1, cfg, leafValue)
	node.right = growTree(X, target, right, depth+1, cfg, leafValue)
	return node
}

func pure(target []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if target[i] != target[idx[0]] {
			return false
		}
	}
	return true
}

func candidateFeatures(d int, cfg treeConfig) []int {
	if cfg.maxFeatures <= 0 || cfg.maxFeatures >= d || cfg.rng == nil {
		all := make([]int, d)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return cfg.rng.Perm(d)[:cfg.maxFeatures]
}

func bestSplit(X [][]float64, target []float64, idx []int, cfg treeConfig) (feature int, threshold float64, ok bool) {
	n := len(idx)
	var total, totalSq float64
	for _, i := range idx {
		total += target[i]
		totalSq += target[i] * target[i]
	}
	parentSSE := totalSq - total*total/float64(n)
	bestSSE := parentSSE

	sorted := make([]int, n)
	for _, j := range candidateFeatures(len(X[idx[0]]), cfg) {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][j] < X[sorted[b]][j] })

		var ls, lsq float64
		for k := 0; k < n-1; k++ {
			t := target[sorted[k]]
			ls += t
			lsq += t * t

			nl := k + 1
			nr := n - nl
			if nl < cfg.minSamplesLeaf || nr < cfg.minSamplesLeaf {
				continue
			}
			lo, hi := X[sorted[k]][j], X[sorted[k+1]][j]
			if lo == hi {
				continue
			}
			rs, rsq := total-ls, totalSq-lsq
			sse := (lsq - ls*ls/float64(nl)) + (rsq - rs*rs/float64(nr))
			if sse < bestSSE-1e-12 {
				bestSSE = sse
				feature = j
				threshold = (lo + hi) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// DecisionTree is a single CART classifier whose leaves hold the fraction of
// class-1 samples.
type DecisionTree struct {
	MaxDepth    int
	MaxFeatures int

	root *treeNode
	rng  *rand.Rand
}

func (t *DecisionTree) Name() string { return "decision_tree" }

func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	if err := checkXY(X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.fit(X, y, idx)
	return nil
}

func (t *DecisionTree) fit(X [][]float64, y []int, idx []int) {
	target := make([]float64, len(y))
	for i, v := range y {
		target[i] = float64(v)
	}
	cfg := treeConfig{maxDepth: t.MaxDepth, minSamplesLeaf: 1, maxFeatures: t.MaxFeatures, rng: t.rng}
	leaf := make([]float64, 0, len(idx))
	t.root = growTree(X, target, idx, 0, cfg, func(ix []int) float64 {
		leaf = leaf[:0]
		for _, i := range ix {
			leaf = append(leaf, target[i])
		}
		return stat.Mean(leaf, nil)
	})
}

func (t *DecisionTree) PredictProba(x []float64) float64 {
	if t.root == nil {
		return 0.5
	}
	return t.root.predict(x)
}
