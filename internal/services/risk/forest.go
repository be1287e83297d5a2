package risk

import "math"

// Isolation forest inference. Trees are stored flat: a node with Left < 0 is
// external, and Size records how many training points fell into it so the
// average-path-length correction can be applied.

// Node is one split (or leaf) of an isolation tree.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Size      int     `json:"n"`
}

// Tree is a single isolation tree over scaled feature vectors.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

const eulerGamma = 0.5772156649015329

// avgPathLength is c(n): the average path length of an unsuccessful BST
// search over n points, used both as the depth correction for external nodes
// and as the normalization constant for the whole forest.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + eulerGamma
		return 2*h - 2*float64(n-1)/float64(n)
	}
}

// pathLength walks one scaled sample down the tree.
func (t Tree) pathLength(x []float64) float64 {
	idx, depth := 0, 0
	for {
		n := t.Nodes[idx]
		if n.Left < 0 {
			return float64(depth) + avgPathLength(n.Size)
		}
		if x[n.Feature] <= n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
		depth++
	}
}

// scoreSample returns the raw anomaly score of a scaled sample: -2^(-E[h]/c),
// in (-1, 0). Lower means more anomalous.
func scoreSample(trees []Tree, sampleSize int, x []float64) float64 {
	if len(trees) == 0 {
		return 0
	}
	var total float64
	for _, t := range trees {
		total += t.pathLength(x)
	}
	mean := total / float64(len(trees))
	return -math.Pow(2, -mean/avgPathLength(sampleSize))
}
