package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdedCells(t *testing.T) {
	classes := []string{"car"}
	b := newBatchBuilder(classes, 1, 2, 2, DefaultGridSpec(16))
	b.cov[b.covIndex(0, 0, 0, 0)] = 0.9
	b.cov[b.covIndex(0, 0, 0, 1)] = 0.5
	b.cov[b.covIndex(0, 0, 1, 0)] = 0.2
	b.cov[b.covIndex(0, 0, 1, 1)] = 0.0
	batch := b.build(t)

	t.Run("strictly exceeds threshold", func(t *testing.T) {
		// 0.5 sits exactly on the threshold and must not survive.
		cells := ThresholdedCells(batch, 0, 0, 0.5)
		assert.Equal(t, []int{0}, cells)
	})

	t.Run("lower threshold keeps more", func(t *testing.T) {
		cells := ThresholdedCells(batch, 0, 0, 0.1)
		assert.Len(t, cells, 3)
	})

	t.Run("empty set is not an error", func(t *testing.T) {
		cells := ThresholdedCells(batch, 0, 0, 0.95)
		assert.Empty(t, cells)
	})
}

// Raising the threshold never increases the number of surviving cells.
func TestThresholdMonotonicity(t *testing.T) {
	classes := []string{"car"}
	b := newBatchBuilder(classes, 1, 4, 4, DefaultGridSpec(16))
	scores := []float32{0.05, 0.1, 0.15, 0.2, 0.3, 0.4, 0.45, 0.5, 0.55, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99}
	for i, s := range scores {
		b.cov[b.covIndex(0, 0, i/4, i%4)] = s
	}
	batch := b.build(t)

	prev := len(ThresholdedCells(batch, 0, 0, 0))
	for _, threshold := range []float32{0.1, 0.25, 0.5, 0.75, 0.9, 1.0} {
		n := len(ThresholdedCells(batch, 0, 0, threshold))
		assert.LessOrEqual(t, n, prev, "threshold %v", threshold)
		prev = n
	}
}
