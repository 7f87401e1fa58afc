package postprocess

// NoiseLabel marks candidates that belong to no cluster. Noise is always
// discarded by the aggregator.
const NoiseLabel = -1

// Clusterer assigns a cluster label to each sample given a precomputed
// pairwise distance matrix and per-sample weights. Labels are small
// non-negative integers; NoiseLabel marks unclustered samples.
type Clusterer interface {
	Cluster(dist *DistanceMatrix, weights []float32) []int
}

// WeightedDBSCAN is density-based clustering where the density requirement is
// measured in confidence mass rather than point count: a sample is a core
// point when the summed weights of its epsilon-neighborhood (itself included)
// reach MinSamples. Clusters are the connected components of core points
// within Epsilon of each other; non-core samples within Epsilon of a core
// point join that core's cluster, everything else is noise.
type WeightedDBSCAN struct {
	// Epsilon is the neighborhood radius in distance space.
	Epsilon float32
	// MinSamples is the minimum neighborhood weight mass for a core point.
	MinSamples float32
}

// Cluster labels every sample. The result depends only on the distances and
// weights, never on scheduling: neighborhoods are scanned in index order and
// border points attach to their nearest core neighbor, ties going to the
// lowest index. Labels are renumbered by first appearance so repeated runs
// over identical input produce identical labelings.
func (c WeightedDBSCAN) Cluster(dist *DistanceMatrix, weights []float32) []int {
	n := dist.Len()
	if n == 0 {
		return nil
	}

	// Epsilon-neighborhoods and their weight mass. Every sample is in its own
	// neighborhood since d(i, i) = 0.
	neighbors := make([][]int, n)
	core := make([]bool, n)
	for i := 0; i < n; i++ {
		var mass float32
		for j := 0; j < n; j++ {
			if dist.At(i, j) <= c.Epsilon {
				neighbors[i] = append(neighbors[i], j)
				mass += weights[j]
			}
		}
		core[i] = mass >= c.MinSamples
	}

	// Connected components over core points.
	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		if !core[i] {
			continue
		}
		for _, j := range neighbors[i] {
			if j > i && core[j] {
				uf.union(i, j)
			}
		}
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = NoiseLabel
	}

	// Core points take their component root; border points take the cluster
	// of their nearest core neighbor.
	assignRoot := make([]int, n)
	for i := 0; i < n; i++ {
		assignRoot[i] = -1
		if core[i] {
			assignRoot[i] = uf.find(i)
			continue
		}
		best := -1
		var bestDist float32
		for _, j := range neighbors[i] {
			if !core[j] {
				continue
			}
			d := dist.At(i, j)
			if best == -1 || d < bestDist {
				best = j
				bestDist = d
			}
		}
		if best >= 0 {
			assignRoot[i] = uf.find(best)
		}
	}

	// Renumber component roots into dense labels ordered by first appearance.
	next := 0
	labelOf := make(map[int]int, n)
	for i := 0; i < n; i++ {
		root := assignRoot[i]
		if root < 0 {
			continue
		}
		label, ok := labelOf[root]
		if !ok {
			label = next
			labelOf[root] = label
			next++
		}
		labels[i] = label
	}
	return labels
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
