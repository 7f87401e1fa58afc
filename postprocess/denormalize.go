package postprocess

import (
	"github.com/nvr-ai/go-gridbox/common"
)

// GridSpec describes how a model output grid cell maps back to input image
// coordinates: the spatial stride, the sub-pixel center offset, the per-axis
// regression normalization, and the scale factors between the network's
// training resolution and the target image shape.
type GridSpec struct {
	// Stride is the spatial downsampling factor of the output grid.
	Stride int
	// Offset is the sub-pixel center offset of each cell, usually 0.5.
	Offset float32
	// BoxNormX and BoxNormY scale the regressed offsets back to pixels.
	BoxNormX float32
	BoxNormY float32
	// ScaleX and ScaleY rescale boxes to the target image shape. 1 when the
	// target matches the network input resolution.
	ScaleX float32
	ScaleY float32
}

// DefaultGridSpec returns the standard DetectNet-v2 grid mapping for the
// given stride: center offset 0.5, box normalization 35 on both axes, no
// rescale.
func DefaultGridSpec(stride int) GridSpec {
	return GridSpec{
		Stride:   stride,
		Offset:   0.5,
		BoxNormX: 35,
		BoxNormY: 35,
		ScaleX:   1,
		ScaleY:   1,
	}
}

// ScaledTo returns a copy of the spec with scale factors mapping boxes from
// the model input shape onto a target image shape.
func (g GridSpec) ScaledTo(targetW, targetH, modelW, modelH int) GridSpec {
	g.ScaleX = float32(targetW) / float32(modelW)
	g.ScaleY = float32(targetH) / float32(modelH)
	return g
}

// CellCenter returns the absolute pixel position of a grid cell's center.
func (g GridSpec) CellCenter(col, row int) (cx, cy float32) {
	cx = float32(col)*float32(g.Stride) + g.Offset
	cy = float32(row)*float32(g.Stride) + g.Offset
	return cx, cy
}

// Denormalize converts the four regressed offsets of one grid cell into an
// absolute pixel-space box: each offset is scaled by the normalization
// factor, shifted by the cell center, then rescaled to the target shape.
// The returned coordinates are always ordered (x1 <= x2, y1 <= y2); no
// clamping to image bounds happens here.
func (g GridSpec) Denormalize(t *RawTensorBatch, img, class, cell int) common.BoundingBox {
	col, row := t.CellColRow(cell)
	cx, cy := g.CellCenter(col, row)

	x1 := (t.BoxOffset(img, class, 0, cell)*g.BoxNormX + cx) * g.ScaleX
	y1 := (t.BoxOffset(img, class, 1, cell)*g.BoxNormY + cy) * g.ScaleY
	x2 := (t.BoxOffset(img, class, 2, cell)*g.BoxNormX + cx) * g.ScaleX
	y2 := (t.BoxOffset(img, class, 3, cell)*g.BoxNormY + cy) * g.ScaleY

	if x1 > x2 {
		x1, x2 = x2, x1
	}
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	return common.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Candidate is one thresholded grid cell: its absolute box and its coverage
// score, which doubles as the sample weight during clustering.
type Candidate struct {
	Cell   int
	Box    common.BoundingBox
	Weight float32
}

// Candidates denormalizes the given thresholded cell indices of one
// (image, class) plane into candidates. Candidate order follows the cell
// index order, which is the deterministic grid scan order.
func (g GridSpec) Candidates(t *RawTensorBatch, img, class int, cells []int) []Candidate {
	if len(cells) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(cells))
	for _, cell := range cells {
		out = append(out, Candidate{
			Cell:   cell,
			Box:    g.Denormalize(t, img, class, cell),
			Weight: t.Coverage(img, class, cell),
		})
	}
	return out
}
