// Package inference - sessions against grid-box detection models served by
// ONNX Runtime. The postprocessing core only sees the Provider interface, so
// tests and embedders can substitute canned tensors.
package inference

import (
	"runtime"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-gridbox/postprocess"
)

// Provider produces one raw tensor batch per inference call.
type Provider interface {
	// Run executes the model over a prepared [batch, 3, H, W] input buffer
	// and returns the coverage and bbox output tensors.
	Run(input []float32) (*postprocess.RawTensorBatch, error)
	// Close releases any native resources held by the provider.
	Close() error
}

// ModelSpec describes the tensor geometry of a grid-box detection model.
type ModelSpec struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string
	// InputName is the model's input node name.
	InputName string
	// InputWidth and InputHeight are the model input resolution.
	InputWidth  int
	InputHeight int
	// Stride is the spatial downsampling factor of the output grid.
	Stride int
	// Classes is the class list, in class-dimension order.
	Classes []string
	// BatchSize is the fixed batch dimension of the session tensors.
	BatchSize int
	// LibraryPath is the ONNX Runtime shared library to load. Empty means
	// DefaultSharedLibPath().
	LibraryPath string
}

// SharedLibPath returns the shared library path to load, falling back to the
// platform default when the spec leaves it unset.
func (s ModelSpec) SharedLibPath() string {
	if s.LibraryPath != "" {
		return s.LibraryPath
	}
	return DefaultSharedLibPath()
}

// GridW returns the number of output grid columns.
func (s ModelSpec) GridW() int { return s.InputWidth / s.Stride }

// GridH returns the number of output grid rows.
func (s ModelSpec) GridH() int { return s.InputHeight / s.Stride }

// Validate checks the spec for the obvious misconfigurations before any
// native resources are allocated.
func (s ModelSpec) Validate() error {
	if s.ModelPath == "" {
		return errors.New("model path is required")
	}
	if len(s.Classes) == 0 {
		return errors.New("class list is required")
	}
	if s.BatchSize <= 0 {
		return errors.Errorf("batch size must be positive, got %d", s.BatchSize)
	}
	if s.Stride <= 0 {
		return errors.Errorf("stride must be positive, got %d", s.Stride)
	}
	if s.InputWidth%s.Stride != 0 || s.InputHeight%s.Stride != 0 {
		return errors.Errorf("input shape %dx%d is not divisible by stride %d",
			s.InputWidth, s.InputHeight, s.Stride)
	}
	return nil
}

// DefaultSharedLibPath returns the conventional third_party location of the
// ONNX Runtime shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library.
func DefaultSharedLibPath() string {
	if runtime.GOOS == "windows" {
		if runtime.GOARCH == "amd64" {
			return "../third_party/onnxruntime.dll"
		}
	}
	if runtime.GOOS == "darwin" {
		return "./third_party/libonnxruntime.1.23.0.dylib"
	}
	if runtime.GOOS == "linux" {
		if runtime.GOARCH == "arm64" {
			return "../third_party/onnxruntime_arm64.so"
		}
		return "../third_party/onnxruntime.so"
	}
	panic("Unable to find a version of the onnxruntime library supporting this system.")
}
