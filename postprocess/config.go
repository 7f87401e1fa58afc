// Package postprocess converts raw grid-box model outputs into discrete
// detections: denormalize, threshold, cluster, aggregate.
package postprocess

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ClassConfig holds the clustering parameters for one object class.
type ClassConfig struct {
	// CoverageThreshold is the cell-level confidence cutoff applied before
	// clustering. Cells at or below it never become candidates.
	CoverageThreshold float32
	// Epsilon is the clustering radius in 1-IoU distance space.
	Epsilon float32
	// MinSamples is the minimum neighborhood weight mass for a candidate to
	// count as a core point. Weights are coverage scores, so this is a float.
	MinSamples float32
	// ConfidenceThreshold is the cluster-level cutoff: a cluster whose
	// aggregated weight does not exceed it produces no detection.
	ConfidenceThreshold float32
	// MinBoxHeight is the minimum height in pixels of an aggregated box.
	MinBoxHeight float32
	// Color is the RGB triplet used when rendering boxes of this class.
	Color [3]uint8
}

// ClusteringConfig is the immutable per-class clustering configuration for a
// run. Build it once with LoadClusteringConfig or NewClusteringConfig; per
// class lookups go through Class.
type ClusteringConfig struct {
	stride  int
	classes map[string]ClassConfig
}

type rawClassConfig struct {
	CoverageThreshold *float32 `yaml:"coverage_threshold"`
	DBSCAN            struct {
		Eps                 *float32 `yaml:"eps"`
		MinSamples          *float32 `yaml:"min_samples"`
		ConfidenceThreshold *float32 `yaml:"confidence_threshold"`
	} `yaml:"dbscan"`
	MinBoxHeight *float32 `yaml:"minimum_bounding_box_height"`
	Color        []uint8  `yaml:"color"`
}

type rawConfig struct {
	Stride  int                       `yaml:"stride"`
	Classes map[string]rawClassConfig `yaml:"classes"`
}

// LoadClusteringConfig reads the clustering parameters from a YAML file.
//
// The file lists, per class name, the cell-level coverage threshold, the
// dbscan block (eps, min_samples, confidence_threshold), the minimum box
// height, and an RGB render color:
//
//	stride: 16
//	classes:
//	  car:
//	    coverage_threshold: 0.005
//	    dbscan:
//	      eps: 0.3
//	      min_samples: 0.05
//	      confidence_threshold: 0.9
//	    minimum_bounding_box_height: 4
//	    color: [0, 255, 0]
//
// A missing or malformed file is a fatal load error; nothing in the run may
// proceed on a partial configuration.
//
// Arguments:
// - path: Path to the YAML clustering config.
//
// Returns:
// - *ClusteringConfig: The immutable parsed configuration.
// - error: Load or validation error.
func LoadClusteringConfig(path string) (*ClusteringConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "clustering config not found at %s", path)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(err, "malformed clustering config %s", path)
	}

	cfg, err := newClusteringConfig(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid clustering config %s", path)
	}
	return cfg, nil
}

// NewClusteringConfig builds a ClusteringConfig directly from typed values.
// Intended for tests and embedding callers that do not read a file.
func NewClusteringConfig(stride int, classes map[string]ClassConfig) (*ClusteringConfig, error) {
	if stride <= 0 {
		return nil, errors.Errorf("stride must be positive, got %d", stride)
	}
	if len(classes) == 0 {
		return nil, errors.New("no classes configured")
	}
	copied := make(map[string]ClassConfig, len(classes))
	for name, cc := range classes {
		if err := validateClassConfig(name, cc); err != nil {
			return nil, err
		}
		copied[name] = cc
	}
	return &ClusteringConfig{stride: stride, classes: copied}, nil
}

func newClusteringConfig(raw rawConfig) (*ClusteringConfig, error) {
	if raw.Stride <= 0 {
		return nil, errors.Errorf("stride must be positive, got %d", raw.Stride)
	}
	if len(raw.Classes) == 0 {
		return nil, errors.New("no classes configured")
	}

	classes := make(map[string]ClassConfig, len(raw.Classes))
	for name, rc := range raw.Classes {
		if rc.CoverageThreshold == nil {
			return nil, errors.Errorf("class %q: missing coverage_threshold", name)
		}
		if rc.DBSCAN.Eps == nil {
			return nil, errors.Errorf("class %q: missing dbscan.eps", name)
		}
		if rc.DBSCAN.MinSamples == nil {
			return nil, errors.Errorf("class %q: missing dbscan.min_samples", name)
		}
		if rc.DBSCAN.ConfidenceThreshold == nil {
			return nil, errors.Errorf("class %q: missing dbscan.confidence_threshold", name)
		}
		if rc.MinBoxHeight == nil {
			return nil, errors.Errorf("class %q: missing minimum_bounding_box_height", name)
		}
		if len(rc.Color) != 3 {
			return nil, errors.Errorf("class %q: color must be an RGB triplet, got %d values",
				name, len(rc.Color))
		}

		cc := ClassConfig{
			CoverageThreshold:   *rc.CoverageThreshold,
			Epsilon:             *rc.DBSCAN.Eps,
			MinSamples:          *rc.DBSCAN.MinSamples,
			ConfidenceThreshold: *rc.DBSCAN.ConfidenceThreshold,
			MinBoxHeight:        *rc.MinBoxHeight,
			Color:               [3]uint8{rc.Color[0], rc.Color[1], rc.Color[2]},
		}
		if err := validateClassConfig(name, cc); err != nil {
			return nil, err
		}
		classes[name] = cc
	}

	return &ClusteringConfig{stride: raw.Stride, classes: classes}, nil
}

func validateClassConfig(name string, cc ClassConfig) error {
	if cc.Epsilon <= 0 || cc.Epsilon > 1 {
		return errors.Errorf("class %q: dbscan.eps must be in (0, 1], got %v", name, cc.Epsilon)
	}
	if cc.MinSamples < 0 {
		return errors.Errorf("class %q: dbscan.min_samples must be non-negative, got %v",
			name, cc.MinSamples)
	}
	if cc.CoverageThreshold < 0 || cc.CoverageThreshold >= 1 {
		return errors.Errorf("class %q: coverage_threshold must be in [0, 1), got %v",
			name, cc.CoverageThreshold)
	}
	if cc.MinBoxHeight < 0 {
		return errors.Errorf("class %q: minimum_bounding_box_height must be non-negative, got %v",
			name, cc.MinBoxHeight)
	}
	return nil
}

// Stride returns the spatial stride of the model output grid.
func (c *ClusteringConfig) Stride() int {
	return c.stride
}

// Class returns the configuration for the named class. A class that the run
// requires but the config does not carry is a fatal lookup error.
func (c *ClusteringConfig) Class(name string) (ClassConfig, error) {
	cc, ok := c.classes[name]
	if !ok {
		return ClassConfig{}, errors.Errorf("cannot find class name %q in clustering config", name)
	}
	return cc, nil
}

// ClassNames returns the configured class names in unspecified order.
func (c *ClusteringConfig) ClassNames() []string {
	names := make([]string, 0, len(c.classes))
	for name := range c.classes {
		names = append(names, name)
	}
	return names
}
