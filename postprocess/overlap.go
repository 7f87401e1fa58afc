package postprocess

// DistanceMatrix is a symmetric pairwise distance matrix over one
// (image, class) candidate set, using d = 1 - IoU. For every box b,
// d(b, b) = 0; all distances lie in [0, 1].
type DistanceMatrix struct {
	n int
	d []float32
}

// PairwiseDistances computes the 1-IoU distance matrix over a candidate set.
// Returns an empty matrix for an empty set; downstream stages skip the
// (image, class) pair in that case.
func PairwiseDistances(candidates []Candidate) *DistanceMatrix {
	n := len(candidates)
	m := &DistanceMatrix{n: n, d: make([]float32, n*n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - candidates[i].Box.IoU(&candidates[j].Box)
			m.d[i*n+j] = d
			m.d[j*n+i] = d
		}
	}
	return m
}

// Len returns the number of candidates the matrix covers.
func (m *DistanceMatrix) Len() int { return m.n }

// At returns the distance between candidates i and j.
func (m *DistanceMatrix) At(i, j int) float32 { return m.d[i*m.n+j] }
