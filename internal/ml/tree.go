package ml

import (
	"fmt"
	"sort"
)

const leafFeature = -1

// Node is one node of a flattened regression tree. Leaves carry
// Feature == -1 and a Value; internal nodes route x[Feature] <= Threshold
// to Left and everything else to Right.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predictRow(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature == leafFeature {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate rejects trees that would index out of range or loop. Children
// must come after their parent, which the builder guarantees.
func (t *Tree) validate(nFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Feature == leafFeature {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	// lambda is the L2 penalty on leaf weights; 0 yields plain means.
	lambda float64
}

type treeBuilder struct {
	rows   [][]float64
	target []float64
	params treeParams
	nodes  []Node
	order  []int
}

// buildTree grows a tree over the rows selected by idx. idx may contain
// repeats, as bootstrap samples do.
func buildTree(rows [][]float64, target []float64, idx []int, params treeParams) *Tree {
	if params.minSamplesLeaf < 1 {
		params.minSamplesLeaf = 1
	}
	b := &treeBuilder{
		rows:   rows,
		target: target,
		params: params,
		order:  make([]int, len(idx)),
	}
	b.grow(idx, 0)
	return &Tree{Nodes: b.nodes}
}

func (b *treeBuilder) leafValue(idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += b.target[i]
	}
	return sum / (float64(len(idx)) + b.params.lambda)
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: leafFeature, Value: b.leafValue(idx)})

	if depth >= b.params.maxDepth || len(idx) < 2*b.params.minSamplesLeaf {
		return self
	}

	feature, threshold, ok := b.bestSplit(idx)
	if !ok {
		return self
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.rows[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return self
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return self
}

// bestSplit scans every feature for the threshold with the largest
// reduction in squared error. Ties keep the first candidate found, so the
// result depends only on the data.
func (b *treeBuilder) bestSplit(idx []int) (int, float64, bool) {
	n := len(idx)
	lambda := b.params.lambda
	minLeaf := b.params.minSamplesLeaf

	var total float64
	for _, i := range idx {
		total += b.target[i]
	}
	parentScore := total * total / (float64(n) + lambda)

	bestGain := 1e-12
	bestFeature := -1
	var bestThreshold float64

	order := b.order[:n]
	nFeatures := len(b.rows[idx[0]])
	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, c int) bool {
			return b.rows[order[a]][f] < b.rows[order[c]][f]
		})

		var leftSum float64
		for k := 1; k < n; k++ {
			leftSum += b.target[order[k-1]]
			if k < minLeaf || n-k < minLeaf {
				continue
			}
			lo, hi := b.rows[order[k-1]][f], b.rows[order[k]][f]
			if lo == hi {
				continue
			}
			rightSum := total - leftSum
			gain := leftSum*leftSum/(float64(k)+lambda) +
				rightSum*rightSum/(float64(n-k)+lambda) -
				parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = lo + (hi-lo)/2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
