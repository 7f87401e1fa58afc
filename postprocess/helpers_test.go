package postprocess

import (
	"testing"

	"github.com/nvr-ai/go-gridbox/common"
	"github.com/stretchr/testify/require"
)

// batchBuilder assembles raw coverage/bbox buffers in the model's native
// [batch, channel, row, col] layout so tests can describe planted boxes in
// absolute pixel coordinates.
type batchBuilder struct {
	classes      []string
	batch        int
	gridH, gridW int
	grid         GridSpec
	cov          []float32
	bbox         []float32
}

func newBatchBuilder(classes []string, batch, gridH, gridW int, grid GridSpec) *batchBuilder {
	c := len(classes)
	return &batchBuilder{
		classes: classes,
		batch:   batch,
		gridH:   gridH,
		gridW:   gridW,
		grid:    grid,
		cov:     make([]float32, batch*c*gridH*gridW),
		bbox:    make([]float32, batch*4*c*gridH*gridW),
	}
}

func (b *batchBuilder) covIndex(img, class, row, col int) int {
	return ((img*len(b.classes)+class)*b.gridH+row)*b.gridW + col
}

func (b *batchBuilder) boxIndex(img, channel, row, col int) int {
	return ((img*4*len(b.classes)+channel)*b.gridH+row)*b.gridW + col
}

// plant writes a coverage score and the regression offsets that denormalize
// back to the wanted absolute box at the given cell.
func (b *batchBuilder) plant(img, class, row, col int, box common.BoundingBox, coverage float32) {
	b.cov[b.covIndex(img, class, row, col)] = coverage

	cx, cy := b.grid.CellCenter(col, row)
	b.bbox[b.boxIndex(img, 4*class+0, row, col)] = (box.X1/b.grid.ScaleX - cx) / b.grid.BoxNormX
	b.bbox[b.boxIndex(img, 4*class+1, row, col)] = (box.Y1/b.grid.ScaleY - cy) / b.grid.BoxNormY
	b.bbox[b.boxIndex(img, 4*class+2, row, col)] = (box.X2/b.grid.ScaleX - cx) / b.grid.BoxNormX
	b.bbox[b.boxIndex(img, 4*class+3, row, col)] = (box.Y2/b.grid.ScaleY - cy) / b.grid.BoxNormY
}

func (b *batchBuilder) build(t *testing.T) *RawTensorBatch {
	t.Helper()
	batch, err := NewRawTensorBatch(b.classes, b.cov, b.bbox, b.batch, b.gridH, b.gridW)
	require.NoError(t, err)
	return batch
}

func boxAt(x1, y1, x2, y2 float32) common.BoundingBox {
	return common.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}
