package postprocess

import (
	"github.com/nvr-ai/go-gridbox/common"
)

// Detection is one final detected object: the aggregated box of a cluster
// with the cluster's combined confidence. The box is [x1, y1, x2, y2] in
// absolute pixel coordinates. Detections are immutable once produced.
type Detection struct {
	Class      string     `json:"class"`
	Box        [4]float32 `json:"box"`
	Confidence float32    `json:"confidence"`
}

// Bounding converts the detection to a common.BoundingBox for rendering.
func (d Detection) Bounding() common.BoundingBox {
	return common.BoundingBox{
		Label:      d.Class,
		Confidence: d.Confidence,
		X1:         d.Box[0],
		Y1:         d.Box[1],
		X2:         d.Box[2],
		Y2:         d.Box[3],
	}
}

// AggregateClusters merges each labeled cluster into one detection.
//
// For a cluster with member weights w_i, the aggregated weight is the plain
// sum and the aggregated box is the per-coordinate average of member boxes
// weighted by w_i normalized over the cluster. The cluster survives only if
// the aggregated weight exceeds the cluster-level confidence threshold and
// the aggregated box is taller than the minimum height; otherwise it is
// dropped silently. Noise candidates never contribute.
//
// Arguments:
// - class: Class name stamped onto the produced detections.
// - candidates: The clustered candidate set of one (image, class) pair.
// - labels: Cluster label per candidate, aligned with candidates.
// - cfg: The class's clustering parameters.
//
// Returns:
// - Detections in cluster label order, possibly empty.
func AggregateClusters(class string, candidates []Candidate, labels []int, cfg ClassConfig) []Detection {
	maxLabel := -1
	for _, label := range labels {
		if label > maxLabel {
			maxLabel = label
		}
	}
	if maxLabel < 0 {
		return nil
	}

	detections := make([]Detection, 0, maxLabel+1)
	for label := 0; label <= maxLabel; label++ {
		var aggregated float32
		for i, l := range labels {
			if l == label {
				aggregated += candidates[i].Weight
			}
		}
		if aggregated <= 0 {
			continue
		}

		var box [4]float32
		for i, l := range labels {
			if l != label {
				continue
			}
			norm := candidates[i].Weight / aggregated
			box[0] += candidates[i].Box.X1 * norm
			box[1] += candidates[i].Box.Y1 * norm
			box[2] += candidates[i].Box.X2 * norm
			box[3] += candidates[i].Box.Y2 * norm
		}

		height := box[3] - box[1]
		if aggregated > cfg.ConfidenceThreshold && height > cfg.MinBoxHeight {
			detections = append(detections, Detection{
				Class:      class,
				Box:        box,
				Confidence: aggregated,
			})
		}
	}
	return detections
}
