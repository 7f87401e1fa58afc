package postprocess

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Output tensor names emitted by DetectNet-style grid-box models.
const (
	// CoverageTensorName is the per-cell object coverage (confidence) map.
	CoverageTensorName = "output_cov/Sigmoid"
	// BBoxTensorName is the per-cell bounding box regression map.
	BBoxTensorName = "output_bbox/BiasAdd"
)

// RawTensorBatch holds one batch of raw model outputs in the canonical
// [batch, class, col, row] layout. The model emits [batch, class, row, col];
// the constructor applies the (0, 1, 3, 2) transpose once so every consumer
// indexes the same way. All raw-index arithmetic lives here; the rest of the
// pipeline goes through the typed accessors.
type RawTensorBatch struct {
	coverage tensor.Tensor // [batch, classes, cols, rows]
	bbox     tensor.Tensor // [batch, 4*classes, cols, rows]

	covData  []float32
	bboxData []float32

	batch   int
	classes int
	cols    int
	rows    int
}

// NewRawTensorBatch wraps the flat coverage and bbox regression buffers
// produced by the model.
//
// Arguments:
// - classes: The run's class list; its length must match the tensor's class dimension.
// - coverage: Flat [batch, classes, gridH, gridW] coverage values in [0, 1].
// - bbox: Flat [batch, 4*classes, gridH, gridW] regression offsets.
// - batch: Number of images in the batch.
// - gridH, gridW: Spatial dimensions of the model output grid.
//
// Returns:
// - *RawTensorBatch: Canonically transposed tensor views.
// - error: Shape mismatch error.
func NewRawTensorBatch(classes []string, coverage, bbox []float32, batch, gridH, gridW int) (*RawTensorBatch, error) {
	numClasses := len(classes)
	if numClasses == 0 {
		return nil, errors.New("empty class list")
	}
	if batch <= 0 || gridH <= 0 || gridW <= 0 {
		return nil, errors.Errorf("invalid tensor shape [%d, %d, %d, %d]", batch, numClasses, gridH, gridW)
	}

	wantCov := batch * numClasses * gridH * gridW
	if len(coverage) != wantCov {
		return nil, errors.Errorf(
			"%s tensor has %d values, want %d for shape [%d, %d, %d, %d]",
			CoverageTensorName, len(coverage), wantCov, batch, numClasses, gridH, gridW)
	}
	wantBBox := batch * 4 * numClasses * gridH * gridW
	if len(bbox) != wantBBox {
		return nil, errors.Errorf(
			"%s tensor has %d values, want %d for shape [%d, %d, %d, %d]",
			BBoxTensorName, len(bbox), wantBBox, batch, 4*numClasses, gridH, gridW)
	}

	cov := tensor.New(
		tensor.WithShape(batch, numClasses, gridH, gridW),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(coverage),
	)
	box := tensor.New(
		tensor.WithShape(batch, 4*numClasses, gridH, gridW),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(bbox),
	)

	// Canonical layout: swap the two spatial axes and materialize so the
	// backing slices are contiguous in [batch, class, col, row] order.
	covT, err := tensor.Transpose(cov, 0, 1, 3, 2)
	if err != nil {
		return nil, errors.Wrap(err, "transposing coverage tensor")
	}
	boxT, err := tensor.Transpose(box, 0, 1, 3, 2)
	if err != nil {
		return nil, errors.Wrap(err, "transposing bbox tensor")
	}

	return &RawTensorBatch{
		coverage: covT,
		bbox:     boxT,
		covData:  covT.Data().([]float32),
		bboxData: boxT.Data().([]float32),
		batch:    batch,
		classes:  numClasses,
		cols:     gridW,
		rows:     gridH,
	}, nil
}

// Batch returns the number of images in the batch.
func (t *RawTensorBatch) Batch() int { return t.batch }

// Classes returns the size of the class dimension.
func (t *RawTensorBatch) Classes() int { return t.classes }

// GridCols returns the number of grid columns (x cells).
func (t *RawTensorBatch) GridCols() int { return t.cols }

// GridRows returns the number of grid rows (y cells).
func (t *RawTensorBatch) GridRows() int { return t.rows }

// Cells returns the number of cells in one class plane.
func (t *RawTensorBatch) Cells() int { return t.cols * t.rows }

// Coverage returns the coverage score for one grid cell. The flat cell index
// follows the canonical layout: cell = col*rows + row.
func (t *RawTensorBatch) Coverage(img, class, cell int) float32 {
	return t.covData[((img*t.classes)+class)*t.cols*t.rows+cell]
}

// BoxOffset returns one of the four regressed edge offsets (0..3 for
// x1, y1, x2, y2) for a grid cell of one class.
func (t *RawTensorBatch) BoxOffset(img, class, coord, cell int) float32 {
	channel := 4*class + coord
	return t.bboxData[((img*4*t.classes)+channel)*t.cols*t.rows+cell]
}

// CellColRow converts a flat cell index back to its (col, row) position.
func (t *RawTensorBatch) CellColRow(cell int) (col, row int) {
	return cell / t.rows, cell % t.rows
}
