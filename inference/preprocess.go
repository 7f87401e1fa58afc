package inference

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareBatch decodes and resizes a run of image files into one
// [batch, 3, H, W] float32 input buffer, RGB channels-first, pixel values
// scaled to [0, 1]. When fewer paths than the batch size remain the tail
// positions stay zero; the postprocessor drops them via the filename
// mapping.
//
// Arguments:
// - paths: Image file paths for this batch, at most spec.BatchSize of them.
// - spec: The model spec providing the input shape and batch size.
//
// Returns:
// - The filled input buffer.
// - error: Decode or size error.
func PrepareBatch(paths []string, spec ModelSpec) ([]float32, error) {
	if len(paths) > spec.BatchSize {
		return nil, errors.Errorf("got %d paths for a batch of %d", len(paths), spec.BatchSize)
	}

	w, h := spec.InputWidth, spec.InputHeight
	plane := w * h
	buf := make([]float32, spec.BatchSize*3*plane)

	for i, path := range paths {
		img, err := decodeImageFile(path)
		if err != nil {
			return nil, err
		}
		resized := resize.Resize(uint(w), uint(h), img, resize.Lanczos3)

		base := i * 3 * plane
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := resized.At(x, y).RGBA()
				idx := y*w + x
				buf[base+idx] = float32(r>>8) / 255.0
				buf[base+plane+idx] = float32(g>>8) / 255.0
				buf[base+2*plane+idx] = float32(b>>8) / 255.0
			}
		}
	}
	return buf, nil
}

func decodeImageFile(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image %s", path)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding image %s", path)
	}
	return img, nil
}
