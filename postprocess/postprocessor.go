package postprocess

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
)

// FrameResult is the per-image output slot: the source filename, the final
// detections for that image, and a per-image error when its processing
// failed. A failed image never aborts its siblings.
type FrameResult struct {
	Filename   string      `json:"filename"`
	Detections []Detection `json:"detections"`
	Err        error       `json:"-"`
}

// NewPostprocessorArgs configures a Postprocessor.
type NewPostprocessorArgs struct {
	// Config is the per-class clustering configuration.
	Config *ClusteringConfig
	// Classes is the run's class list, in class-dimension order. Every name
	// must be present in Config.
	Classes []string
	// Grid overrides the grid-to-pixel mapping. Zero value means
	// DefaultGridSpec(Config.Stride()).
	Grid GridSpec
	// Workers is the worker pool size for (image, class) tasks. Zero means
	// runtime.NumCPU().
	Workers int
	// NewClusterer builds the clusterer for a class. Nil means the built-in
	// confidence-weighted DBSCAN.
	NewClusterer func(ClassConfig) Clusterer
}

// Postprocessor runs the full postprocessing pipeline over raw tensor
// batches: threshold, denormalize, pairwise overlap, weighted density
// clustering, aggregation, and per-image formatting. It holds only immutable
// per-class state and is safe for concurrent use.
type Postprocessor struct {
	classes    []string
	classCfgs  []ClassConfig
	clusterers []Clusterer
	grid       GridSpec
	workers    int
}

// NewPostprocessor builds a Postprocessor, resolving every run class against
// the clustering config up front. A class missing from the config fails here,
// before any tensor is touched.
func NewPostprocessor(args NewPostprocessorArgs) (*Postprocessor, error) {
	if args.Config == nil {
		return nil, errors.New("clustering config is required")
	}
	if len(args.Classes) == 0 {
		return nil, errors.New("class list is required")
	}

	grid := args.Grid
	if grid.Stride == 0 {
		grid = DefaultGridSpec(args.Config.Stride())
	}
	workers := args.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	newClusterer := args.NewClusterer
	if newClusterer == nil {
		newClusterer = func(cfg ClassConfig) Clusterer {
			return WeightedDBSCAN{Epsilon: cfg.Epsilon, MinSamples: cfg.MinSamples}
		}
	}

	p := &Postprocessor{
		classes:    append([]string(nil), args.Classes...),
		classCfgs:  make([]ClassConfig, len(args.Classes)),
		clusterers: make([]Clusterer, len(args.Classes)),
		grid:       grid,
		workers:    workers,
	}
	for i, name := range p.classes {
		cfg, err := args.Config.Class(name)
		if err != nil {
			return nil, err
		}
		p.classCfgs[i] = cfg
		p.clusterers[i] = newClusterer(cfg)
	}
	return p, nil
}

// Grid returns the grid-to-pixel mapping in use.
func (p *Postprocessor) Grid() GridSpec { return p.grid }

// Apply converts one raw tensor batch into per-image detection lists.
//
// filenames maps batch positions to source image names; batch position i is
// the i-th entry. A partial final batch simply passes fewer filenames than
// the tensor's batch dimension and the tail positions are dropped without
// error.
//
// Each (image, class) pair is an independent task dispatched to a worker
// pool; results land in preallocated slots indexed by (image, class), so the
// output is bit-for-bit identical regardless of scheduling. Cancelling ctx
// abandons unstarted tasks and returns the context error.
//
// Arguments:
// - ctx: Cancellation context for the batch.
// - batch: The raw coverage and bbox tensors.
// - filenames: Source names by batch position.
//
// Returns:
// - One FrameResult per processed image, in batch order.
// - error: Fatal shape mismatch or context cancellation.
func (p *Postprocessor) Apply(ctx context.Context, batch *RawTensorBatch, filenames []string) ([]FrameResult, error) {
	if batch.Classes() != len(p.classes) {
		return nil, errors.Errorf(
			"number of classes %d != number of dimensions in the %s tensor: %d",
			len(p.classes), CoverageTensorName, batch.Classes())
	}

	images := batch.Batch()
	if len(filenames) < images {
		images = len(filenames)
	}
	if images == 0 {
		return nil, nil
	}

	type task struct {
		img, class int
	}
	type slotErr struct {
		img int
		err error
	}

	slots := make([][][]Detection, images)
	for i := range slots {
		slots[i] = make([][]Detection, len(p.classes))
	}

	tasks := make(chan task)
	errs := make(chan slotErr, images*len(p.classes))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range tasks {
				dets, err := p.processPlane(batch, tk.img, tk.class)
				if err != nil {
					errs <- slotErr{img: tk.img, err: err}
					continue
				}
				slots[tk.img][tk.class] = dets
			}
		}()
	}

	var cancelled error
dispatch:
	for img := 0; img < images; img++ {
		for class := range p.classes {
			if err := ctx.Err(); err != nil {
				cancelled = err
				break dispatch
			}
			select {
			case tasks <- task{img: img, class: class}:
			case <-ctx.Done():
				cancelled = ctx.Err()
				break dispatch
			}
		}
	}
	close(tasks)
	wg.Wait()
	close(errs)

	if cancelled != nil {
		return nil, cancelled
	}

	imageErr := make([]error, images)
	for se := range errs {
		if imageErr[se.img] == nil {
			imageErr[se.img] = se.err
		}
	}

	results := make([]FrameResult, images)
	for img := 0; img < images; img++ {
		fr := FrameResult{
			Filename:   filenames[img],
			Detections: []Detection{},
			Err:        imageErr[img],
		}
		if fr.Err == nil {
			for class := range p.classes {
				fr.Detections = append(fr.Detections, slots[img][class]...)
			}
		}
		results[img] = fr
	}
	return results, nil
}

// processPlane runs the per-(image, class) pipeline. A panic in the pipeline
// is contained as that image's error rather than tearing down the batch.
func (p *Postprocessor) processPlane(batch *RawTensorBatch, img, class int) (dets []Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			dets = nil
			err = errors.Errorf("panic processing image %d class %q: %v", img, p.classes[class], r)
		}
	}()

	cfg := p.classCfgs[class]

	cells := ThresholdedCells(batch, img, class, cfg.CoverageThreshold)
	if len(cells) == 0 {
		return nil, nil
	}
	candidates := p.grid.Candidates(batch, img, class, cells)

	dist := PairwiseDistances(candidates)
	weights := make([]float32, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Weight
	}
	labels := p.clusterers[class].Cluster(dist, weights)

	return AggregateClusters(p.classes[class], candidates, labels, cfg), nil
}
