package inference

import (
	"os"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-gridbox/postprocess"
)

// Session is an ONNX Runtime session against a grid-box detection model,
// with preallocated input and output tensors sized for the model spec.
type Session struct {
	spec     ModelSpec
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	coverage *ort.Tensor[float32]
	bbox     *ort.Tensor[float32]
}

// NewSession creates an ONNX Runtime session for the given model spec.
//
// Order of operations:
//  1. Library path check: ensures the native runtime is accessible.
//  2. Environment setup: required once per process.
//  3. Tensor allocation: fixed-shape buffers for the input and the two
//     grid-box output heads.
//  4. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - spec: The model's tensor geometry.
//
// Returns:
//   - *Session: A runnable inference session; Close releases it.
//   - error: An error if the native setup or model loading fails.
func NewSession(spec ModelSpec) (*Session, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	libPath := spec.SharedLibPath()
	if _, err := os.Stat(libPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}

	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "error initializing ORT environment")
		}
	}

	batch := int64(spec.BatchSize)
	classes := int64(len(spec.Classes))
	gridH := int64(spec.GridH())
	gridW := int64(spec.GridW())

	input, err := ort.NewEmptyTensor[float32](
		ort.NewShape(batch, 3, int64(spec.InputHeight), int64(spec.InputWidth)))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	coverage, err := ort.NewEmptyTensor[float32](
		ort.NewShape(batch, classes, gridH, gridW))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrapf(err, "error creating %s tensor", postprocess.CoverageTensorName)
	}
	bbox, err := ort.NewEmptyTensor[float32](
		ort.NewShape(batch, 4*classes, gridH, gridW))
	if err != nil {
		input.Destroy()
		coverage.Destroy()
		return nil, errors.Wrapf(err, "error creating %s tensor", postprocess.BBoxTensorName)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		coverage.Destroy()
		bbox.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session options")
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(0)
	options.SetInterOpNumThreads(0)
	options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended)

	session, err := ort.NewAdvancedSession(
		spec.ModelPath,
		[]string{spec.InputName},
		[]string{postprocess.CoverageTensorName, postprocess.BBoxTensorName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{coverage, bbox},
		options,
	)
	if err != nil {
		input.Destroy()
		coverage.Destroy()
		bbox.Destroy()
		return nil, errors.Wrapf(err, "error creating ORT session for %s", spec.ModelPath)
	}

	return &Session{
		spec:     spec,
		session:  session,
		input:    input,
		coverage: coverage,
		bbox:     bbox,
	}, nil
}

// Spec returns the model spec the session was built for.
func (s *Session) Spec() ModelSpec { return s.spec }

// Run executes one inference pass. The input buffer must be exactly
// [batch, 3, H, W] floats; output tensor contents are copied out so the
// returned batch stays valid across subsequent runs.
func (s *Session) Run(input []float32) (*postprocess.RawTensorBatch, error) {
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, errors.Errorf("input buffer has %d values, want %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "error running ORT session")
	}

	coverage := append([]float32(nil), s.coverage.GetData()...)
	bbox := append([]float32(nil), s.bbox.GetData()...)
	return postprocess.NewRawTensorBatch(
		s.spec.Classes, coverage, bbox, s.spec.BatchSize, s.spec.GridH(), s.spec.GridW())
}

// Close releases the session and its tensors.
func (s *Session) Close() error {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.coverage != nil {
		s.coverage.Destroy()
		s.coverage = nil
	}
	if s.bbox != nil {
		s.bbox.Destroy()
		s.bbox = nil
	}
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
		s.session = nil
	}
	return nil
}
