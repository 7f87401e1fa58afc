package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairwiseDistances(t *testing.T) {
	candidates := []Candidate{
		{Box: boxAt(0, 0, 10, 10), Weight: 0.9},
		{Box: boxAt(0, 0, 10, 8), Weight: 0.5},    // IoU 0.8 with the first
		{Box: boxAt(50, 50, 60, 60), Weight: 0.4}, // disjoint from both
	}

	m := PairwiseDistances(candidates)
	require.Equal(t, 3, m.Len())

	// d(b, b) = 0 for all b.
	for i := 0; i < m.Len(); i++ {
		assert.Equal(t, float32(0), m.At(i, i))
	}

	// Symmetric and in [0, 1].
	for i := 0; i < m.Len(); i++ {
		for j := 0; j < m.Len(); j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i))
			assert.GreaterOrEqual(t, m.At(i, j), float32(0))
			assert.LessOrEqual(t, m.At(i, j), float32(1))
		}
	}

	// d = 1 - IoU.
	assert.InDelta(t, float32(0.2), m.At(0, 1), 1e-6)
	assert.Equal(t, float32(1), m.At(0, 2))
}

func TestPairwiseDistancesEmpty(t *testing.T) {
	m := PairwiseDistances(nil)
	assert.Equal(t, 0, m.Len())
}
