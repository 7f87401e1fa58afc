package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellCenter(t *testing.T) {
	grid := DefaultGridSpec(16)

	cx, cy := grid.CellCenter(0, 0)
	assert.Equal(t, float32(0.5), cx)
	assert.Equal(t, float32(0.5), cy)

	cx, cy = grid.CellCenter(2, 1)
	assert.Equal(t, float32(32.5), cx)
	assert.Equal(t, float32(16.5), cy)
}

func TestDenormalizeRoundTrip(t *testing.T) {
	classes := []string{"car"}
	grid := DefaultGridSpec(16)

	want := boxAt(10, 10, 50, 50)
	b := newBatchBuilder(classes, 1, 4, 4, grid)
	b.plant(0, 0, 1, 2, want, 0.9)
	batch := b.build(t)

	cell := 2*batch.GridRows() + 1 // col 2, row 1
	got := grid.Denormalize(batch, 0, 0, cell)
	assert.InDelta(t, want.X1, got.X1, 1e-4)
	assert.InDelta(t, want.Y1, got.Y1, 1e-4)
	assert.InDelta(t, want.X2, got.X2, 1e-4)
	assert.InDelta(t, want.Y2, got.Y2, 1e-4)
}

func TestDenormalizeOrdersCoordinates(t *testing.T) {
	classes := []string{"car"}
	grid := DefaultGridSpec(16)

	// Plant a box with swapped edges; the denormalizer must still emit
	// x1 <= x2 and y1 <= y2.
	b := newBatchBuilder(classes, 1, 4, 4, grid)
	b.plant(0, 0, 0, 0, boxAt(50, 40, 10, 10), 0.9)
	batch := b.build(t)

	got := grid.Denormalize(batch, 0, 0, 0)
	assert.LessOrEqual(t, got.X1, got.X2)
	assert.LessOrEqual(t, got.Y1, got.Y2)
	assert.InDelta(t, float32(10), got.X1, 1e-4)
	assert.InDelta(t, float32(50), got.X2, 1e-4)
	assert.InDelta(t, float32(10), got.Y1, 1e-4)
	assert.InDelta(t, float32(40), got.Y2, 1e-4)
}

func TestDenormalizeScaleFactors(t *testing.T) {
	classes := []string{"car"}
	grid := DefaultGridSpec(16).ScaledTo(1920, 1080, 960, 540)
	assert.Equal(t, float32(2), grid.ScaleX)
	assert.Equal(t, float32(2), grid.ScaleY)

	want := boxAt(20, 20, 100, 100) // already in target space
	b := newBatchBuilder(classes, 1, 4, 4, grid)
	b.plant(0, 0, 0, 0, want, 0.9)
	batch := b.build(t)

	got := grid.Denormalize(batch, 0, 0, 0)
	assert.InDelta(t, want.X1, got.X1, 1e-3)
	assert.InDelta(t, want.Y2, got.Y2, 1e-3)
}

func TestCandidates(t *testing.T) {
	classes := []string{"car"}
	grid := DefaultGridSpec(16)

	b := newBatchBuilder(classes, 1, 4, 4, grid)
	b.plant(0, 0, 0, 0, boxAt(0, 0, 20, 20), 0.8)
	b.plant(0, 0, 2, 3, boxAt(40, 30, 60, 55), 0.6)
	batch := b.build(t)

	cells := ThresholdedCells(batch, 0, 0, 0.5)
	require.Len(t, cells, 2)

	cands := grid.Candidates(batch, 0, 0, cells)
	require.Len(t, cands, 2)

	// Candidate order follows the grid scan order of the cell indices.
	assert.Equal(t, cells[0], cands[0].Cell)
	assert.Equal(t, cells[1], cands[1].Cell)
	assert.Equal(t, float32(0.8), cands[0].Weight)
	assert.Equal(t, float32(0.6), cands[1].Weight)
	assert.InDelta(t, float32(55), cands[1].Box.Y2, 1e-4)

	assert.Nil(t, grid.Candidates(batch, 0, 0, nil))
}
