package postprocess

// ThresholdedCells returns the flat cell indices of one (image, class)
// coverage plane whose score strictly exceeds the threshold, in grid scan
// order. An empty result is a normal outcome: that class simply produces no
// candidates for the image.
func ThresholdedCells(t *RawTensorBatch, img, class int, threshold float32) []int {
	var cells []int
	n := t.Cells()
	for cell := 0; cell < n; cell++ {
		if t.Coverage(img, class, cell) > threshold {
			cells = append(cells, cell)
		}
	}
	return cells
}
