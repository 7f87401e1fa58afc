// Package render burns detection boxes into copies of the source frames.
package render

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-gridbox/postprocess"
)

// Frame draws each detection on the source image with its class color from
// the clustering config and writes the annotated copy to outDir under the
// frame's filename.
//
// Arguments:
// - framePath: Path to the source image.
// - outDir: Directory for the annotated copy; created if missing.
// - result: The frame's detections and filename.
// - cfg: Clustering config supplying per-class colors.
//
// Returns:
// - error: Read, lookup, or write error.
func Frame(framePath, outDir string, result postprocess.FrameResult, cfg *postprocess.ClusteringConfig) error {
	img := gocv.IMRead(framePath, gocv.IMReadColor)
	if img.Empty() {
		return errors.Errorf("cannot read image %s", framePath)
	}
	defer img.Close()

	for _, det := range result.Detections {
		cc, err := cfg.Class(det.Class)
		if err != nil {
			return err
		}
		rgb := color.RGBA{R: cc.Color[0], G: cc.Color[1], B: cc.Color[2], A: 255}
		gocv.Rectangle(&img, det.Bounding().ToRect(), rgb, 2)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %s", outDir)
	}
	outPath := filepath.Join(outDir, result.Filename)
	if ok := gocv.IMWrite(outPath, img); !ok {
		return errors.Errorf("cannot write annotated image %s", outPath)
	}
	return nil
}
