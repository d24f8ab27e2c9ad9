// Package classifier implements the crop model: a CART decision tree over numeric
// features and the label encoder that names its classes.
//
// Training is greedy and axis-aligned. Every node tries every feature, in an order
// drawn from a seeded generator, and keeps the split with the lowest weighted Gini
// impurity; an exact tie keeps the earlier candidate. The same data and seed always
// produce the same tree.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FeatureNames lists the model inputs in column order.
var FeatureNames = []string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall"}

// DefaultSeed matches the seed the reference model was trained with.
const DefaultSeed int64 = 42

const (
	leafFeature    = -1
	scoreTolerance = 1e-12
	probTolerance  = 1e-9
)

// ErrFeatureCount is returned when an input vector has the wrong width.
var ErrFeatureCount = errors.New("feature count mismatch")

// Node is one vertex of the tree. Nodes are stored in pre-order, so children
// always have larger indices than their parent.
type Node struct {
	Feature   int       `json:"feature"` // -1 marks a leaf
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Samples   int       `json:"samples"`
	Value     []float64 `json:"value,omitempty"` // class probabilities; leaves only
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return n.Feature == leafFeature }

// TrainingInfo describes the data a tree was fitted on.
type TrainingInfo struct {
	Samples   int       `json:"samples"`
	Source    string    `json:"source"`
	Seed      int64     `json:"seed"`
	TrainedAt time.Time `json:"trained_at"`
}

// DecisionTree is a fitted classifier. It is immutable once built and safe for
// concurrent use.
type DecisionTree struct {
	NumFeatures  int
	NumClasses   int
	FeatureNames []string
	Nodes        []Node
	Info         TrainingInfo
}

// Options control tree induction.
type Options struct {
	Seed            int64
	MinSamplesSplit int // defaults to 2
	MaxDepth        int // 0 grows until leaves are pure
	FeatureNames    []string
}

// Fit grows a tree on X (rows are samples) and class indices y in [0, numClasses).
func Fit(X mat.Matrix, y []int, numClasses int, opts Options) (*DecisionTree, error) {
	rows, cols := X.Dims()
	switch {
	case rows == 0 || cols == 0:
		return nil, errors.New("fit: empty training matrix")
	case rows != len(y):
		return nil, fmt.Errorf("fit: %d rows but %d labels", rows, len(y))
	case numClasses <= 0:
		return nil, fmt.Errorf("fit: invalid class count %d", numClasses)
	}
	for i, c := range y {
		if c < 0 || c >= numClasses {
			return nil, fmt.Errorf("fit: label %d at row %d outside [0,%d)", c, i, numClasses)
		}
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}

	b := &builder{
		cols:       make([][]float64, cols),
		y:          y,
		numClasses: numClasses,
		rng:        rand.New(rand.NewSource(opts.Seed)),
		opts:       opts,
	}
	for f := 0; f < cols; f++ {
		b.cols[f] = mat.Col(nil, f, X)
		for i, v := range b.cols[f] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("fit: non-finite value at row %d, column %d", i, f)
			}
		}
	}

	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	b.build(idx, 0)

	tree := &DecisionTree{
		NumFeatures: cols,
		NumClasses:  numClasses,
		Nodes:       b.nodes,
		Info:        TrainingInfo{Samples: rows, Seed: opts.Seed},
	}
	if len(opts.FeatureNames) == cols {
		tree.FeatureNames = slices.Clone(opts.FeatureNames)
	}
	return tree, nil
}

type builder struct {
	cols       [][]float64
	y          []int
	numClasses int
	rng        *rand.Rand
	opts       Options
	nodes      []Node
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

func (b *builder) build(idx []int, depth int) int {
	counts := make([]int, b.numClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}

	pos := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: leafFeature, Samples: len(idx)})

	if isPure(counts) || len(idx) < b.opts.MinSamplesSplit || (b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth) {
		b.nodes[pos].Value = distribution(counts, len(idx))
		return pos
	}

	best, ok := b.bestSplit(idx, counts)
	if !ok {
		b.nodes[pos].Value = distribution(counts, len(idx))
		return pos
	}

	var left, right []int
	col := b.cols[best.feature]
	for _, i := range idx {
		if col[i] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	// b.nodes may have been reallocated by the recursive calls.
	n := &b.nodes[pos]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left = l
	n.Right = r
	return pos
}

// bestSplit scans every feature for the threshold that maximizes
// sum_c(left_c^2)/n_left + sum_c(right_c^2)/n_right, which is the same as
// minimizing the weighted Gini impurity of the children.
func (b *builder) bestSplit(idx []int, parent []int) (split, bool) {
	n := len(idx)
	order := make([]int, n)
	left := make([]int, b.numClasses)
	right := make([]int, b.numClasses)

	var parentSq int
	for _, c := range parent {
		parentSq += c * c
	}

	var best split
	found := false
	for _, f := range b.rng.Perm(len(b.cols)) {
		col := b.cols[f]
		copy(order, idx)
		slices.SortFunc(order, func(a, c int) int {
			switch {
			case col[a] < col[c]:
				return -1
			case col[a] > col[c]:
				return 1
			default:
				return a - c
			}
		})
		if col[order[0]] == col[order[n-1]] {
			continue
		}

		clear(left)
		copy(right, parent)
		leftSq, rightSq := 0, parentSq
		for i := 0; i < n-1; i++ {
			c := b.y[order[i]]
			leftSq += 2*left[c] + 1
			left[c]++
			rightSq -= 2*right[c] - 1
			right[c]--

			v, next := col[order[i]], col[order[i+1]]
			if next <= v {
				continue
			}
			nl := i + 1
			score := float64(leftSq)/float64(nl) + float64(rightSq)/float64(n-nl)
			if !found || score > best.score+scoreTolerance {
				best = split{feature: f, threshold: midpoint(v, next), score: score}
				found = true
			}
		}
	}
	return best, found
}

func midpoint(a, b float64) float64 {
	t := a + (b-a)/2
	if t >= b || math.IsInf(t, 0) {
		return a
	}
	return t
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func distribution(counts []int, total int) []float64 {
	out := make([]float64, len(counts))
	if total == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(total)
	}
	return out
}

// PredictProba returns the class distribution of the leaf x falls into.
// The returned slice is a copy owned by the caller.
func (t *DecisionTree) PredictProba(x []float64) ([]float64, error) {
	if len(x) != t.NumFeatures {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureCount, len(x), t.NumFeatures)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("predict: non-finite value for feature %d", i)
		}
	}
	if len(t.Nodes) == 0 {
		return nil, errors.New("predict: empty tree")
	}
	i := 0
	for steps := 0; ; steps++ {
		if steps > len(t.Nodes) {
			return nil, errors.New("predict: malformed tree")
		}
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return slices.Clone(n.Value), nil
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Predict returns the most probable class; ties go to the lower index.
func (t *DecisionTree) Predict(x []float64) (int, error) {
	p, err := t.PredictProba(x)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(p), nil
}

// Score returns the fraction of rows of X that Predict labels correctly.
func (t *DecisionTree) Score(X mat.Matrix, y []int) (float64, error) {
	rows, _ := X.Dims()
	if rows != len(y) || rows == 0 {
		return 0, fmt.Errorf("score: %d rows but %d labels", rows, len(y))
	}
	correct := 0
	for i := 0; i < rows; i++ {
		c, err := t.Predict(mat.Row(nil, i, X))
		if err != nil {
			return 0, err
		}
		if c == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// NumLeaves counts the leaves.
func (t *DecisionTree) NumLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// Depth returns the length of the longest root-to-leaf path.
func (t *DecisionTree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(0)
}

// Validate checks the structural invariants a loaded artifact must satisfy.
func (t *DecisionTree) Validate() error {
	if t.NumFeatures <= 0 || t.NumClasses <= 0 {
		return fmt.Errorf("tree: invalid shape %d features x %d classes", t.NumFeatures, t.NumClasses)
	}
	if len(t.Nodes) == 0 {
		return errors.New("tree: no nodes")
	}
	if t.FeatureNames != nil && len(t.FeatureNames) != t.NumFeatures {
		return fmt.Errorf("tree: %d feature names for %d features", len(t.FeatureNames), t.NumFeatures)
	}
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			if len(n.Value) != t.NumClasses {
				return fmt.Errorf("tree: leaf %d has %d probabilities, want %d", i, len(n.Value), t.NumClasses)
			}
			for _, p := range n.Value {
				if p < 0 || p > 1 || math.IsNaN(p) {
					return fmt.Errorf("tree: leaf %d has invalid probability %v", i, p)
				}
			}
			if math.Abs(floats.Sum(n.Value)-1) > probTolerance {
				return fmt.Errorf("tree: leaf %d probabilities do not sum to 1", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= t.NumFeatures {
			return fmt.Errorf("tree: node %d splits on unknown feature %d", i, n.Feature)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("tree: node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

type treeArtifact struct {
	Format       string       `json:"format"`
	Version      int          `json:"version"`
	NumFeatures  int          `json:"num_features"`
	NumClasses   int          `json:"num_classes"`
	FeatureNames []string     `json:"feature_names,omitempty"`
	Info         TrainingInfo `json:"info"`
	Nodes        []Node       `json:"nodes"`
}

const (
	treeFormat  = "cropadvisor/decision-tree"
	treeVersion = 1
)

// MarshalJSON writes the artifact form of the tree.
func (t *DecisionTree) MarshalJSON() ([]byte, error) {
	return json.Marshal(treeArtifact{
		Format:       treeFormat,
		Version:      treeVersion,
		NumFeatures:  t.NumFeatures,
		NumClasses:   t.NumClasses,
		FeatureNames: t.FeatureNames,
		Info:         t.Info,
		Nodes:        t.Nodes,
	})
}

// UnmarshalJSON reads the artifact form and validates it.
func (t *DecisionTree) UnmarshalJSON(data []byte) error {
	var a treeArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Format != treeFormat {
		return fmt.Errorf("tree: unexpected format %q", a.Format)
	}
	if a.Version != treeVersion {
		return fmt.Errorf("tree: unsupported version %d", a.Version)
	}
	decoded := DecisionTree{
		NumFeatures:  a.NumFeatures,
		NumClasses:   a.NumClasses,
		FeatureNames: a.FeatureNames,
		Nodes:        a.Nodes,
		Info:         a.Info,
	}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*t = decoded
	return nil
}
