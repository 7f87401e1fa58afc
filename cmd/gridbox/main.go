// Command gridbox runs a grid-box detection model over a directory of images
// and prints one JSON detection record per image. All the interesting work
// happens in the postprocess package; this is glue.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/nvr-ai/go-gridbox/inference"
	"github.com/nvr-ai/go-gridbox/postprocess"
	"github.com/nvr-ai/go-gridbox/render"
	"github.com/nvr-ai/go-gridbox/util"
)

func main() {
	var (
		configPath = flag.String("config", "clustering.yaml", "clustering config file")
		imageDir   = flag.String("images", "", "directory of input images")
		modelPath  = flag.String("model", "", "ONNX model file")
		inputName  = flag.String("input-name", "input_1", "model input node name")
		inputW     = flag.Int("input-width", 960, "model input width")
		inputH     = flag.Int("input-height", 544, "model input height")
		classList  = flag.String("classes", "car,bicycle,person,road_sign", "comma-separated class list in class-dimension order")
		ortLib     = flag.String("onnxruntime-lib", "", "ONNX Runtime shared library; empty uses the platform default")
		outDir     = flag.String("out", "", "directory for annotated images; empty disables rendering")
	)
	flag.Parse()

	if *imageDir == "" || *modelPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := postprocess.LoadClusteringConfig(*configPath)
	if err != nil {
		log.Fatalf("loading clustering config: %v", err)
	}
	classes := strings.Split(*classList, ",")

	frames, err := util.LoadFrames(*imageDir)
	if err != nil {
		log.Fatalf("loading frames: %v", err)
	}
	batchSize := util.PickBatchSize(len(frames))

	spec := inference.ModelSpec{
		ModelPath:   *modelPath,
		InputName:   *inputName,
		InputWidth:  *inputW,
		InputHeight: *inputH,
		Stride:      cfg.Stride(),
		Classes:     classes,
		BatchSize:   batchSize,
		LibraryPath: *ortLib,
	}
	session, err := inference.NewSession(spec)
	if err != nil {
		log.Fatalf("creating inference session: %v", err)
	}
	defer session.Close()

	processor, err := postprocess.NewPostprocessor(postprocess.NewPostprocessorArgs{
		Config:  cfg,
		Classes: classes,
	})
	if err != nil {
		log.Fatalf("creating postprocessor: %v", err)
	}

	ctx := context.Background()
	enc := json.NewEncoder(os.Stdout)

	for start := 0; start < len(frames); start += batchSize {
		end := start + batchSize
		if end > len(frames) {
			end = len(frames)
		}
		chunk := frames[start:end]

		input, err := inference.PrepareBatch(util.Paths(chunk), spec)
		if err != nil {
			log.Fatalf("preparing batch at frame %d: %v", start, err)
		}
		batch, err := session.Run(input)
		if err != nil {
			log.Fatalf("running inference at frame %d: %v", start, err)
		}

		results, err := processor.Apply(ctx, batch, util.Names(chunk))
		if err != nil {
			log.Fatalf("postprocessing batch at frame %d: %v", start, err)
		}

		for i, fr := range results {
			if fr.Err != nil {
				log.Printf("frame %s failed: %v", fr.Filename, fr.Err)
				continue
			}
			if err := enc.Encode(fr); err != nil {
				log.Fatalf("encoding result for %s: %v", fr.Filename, err)
			}
			if *outDir != "" {
				if err := render.Frame(chunk[i].Path, *outDir, fr, cfg); err != nil {
					log.Printf("rendering %s: %v", fr.Filename, err)
				}
			}
		}
	}
}
