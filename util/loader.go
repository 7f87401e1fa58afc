package util

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Frame represents one source image of a run.
type Frame struct {
	// Path is the path to the image file.
	Path string
	// Name is the base filename, used to key the per-image output record.
	Name string
}

// LoadFrames reads all image files from a directory, sorted by filename so
// batch positions are stable across runs.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []Frame: Ordered frames.
// - error: Error if the directory cannot be read or holds no images.
func LoadFrames(dir string) ([]Frame, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading image directory %s", dir)
	}

	var frames []Frame
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		switch filepath.Ext(file.Name()) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			frames = append(frames, Frame{
				Path: filepath.Join(dir, file.Name()),
				Name: file.Name(),
			})
		}
	}
	if len(frames) == 0 {
		return nil, errors.Errorf("no image files in %s", dir)
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Name < frames[j].Name
	})
	return frames, nil
}

// PickBatchSize chooses the inference batch size from the number of files in
// a run: small runs use 8, large runs 16.
func PickBatchSize(frames int) int {
	if frames < 256 {
		return 8
	}
	return 16
}

// Names returns the base filenames of a run of frames, preserving order.
func Names(frames []Frame) []string {
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.Name
	}
	return names
}

// Paths returns the file paths of a run of frames, preserving order.
func Paths(frames []Frame) []string {
	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = f.Path
	}
	return paths
}
