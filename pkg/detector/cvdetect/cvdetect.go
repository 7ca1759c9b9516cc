// Package cvdetect runs an SSD object-detection network through OpenCV DNN.
package cvdetect

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/JaimeStill/glimpse/pkg/detector"
	"github.com/JaimeStill/glimpse/pkg/geometry"
)

// ssdRowLen is the width of one SSD detection row:
// [batch, class, confidence, xmin, ymin, xmax, ymax].
const ssdRowLen = 7

var (
	ErrModelLoad = errors.New("detection model could not be loaded")
	ErrImageRead = errors.New("detection image could not be read")
)

// Options locate the network weights and configuration.
type Options struct {
	ModelPath  string
	ConfigPath string
	InputSize  int
}

// Detector loads the network on first use and serializes forward passes,
// since a gocv.Net is not safe for concurrent use.
type Detector struct {
	opts   Options
	logger *slog.Logger

	mu  sync.Mutex
	net *gocv.Net
}

// New creates a Detector. The network is read lazily.
func New(opts Options, logger *slog.Logger) *Detector {
	if opts.InputSize == 0 {
		opts.InputSize = 300
	}
	return &Detector{
		opts:   opts,
		logger: logger.With("system", "detector"),
	}
}

var _ detector.Detector = (*Detector)(nil)

// Detect returns candidates whose confidence is at least threshold.
func (d *Detector) Detect(ctx context.Context, imagePath string, threshold float64, debug bool) ([]detector.Candidate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	net, err := d.load()
	if err != nil {
		return nil, err
	}

	img := gocv.IMRead(imagePath, gocv.IMReadColor)
	defer img.Close()
	if img.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrImageRead, imagePath)
	}

	size := image.Pt(d.opts.InputSize, d.opts.InputSize)
	blob := gocv.BlobFromImage(img, 1.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	net.SetInput(blob, "")
	prob := net.Forward("")
	defer prob.Close()

	if debug {
		d.logger.Info("detection forward pass complete",
			"image", imagePath,
			"image_width", img.Cols(),
			"image_height", img.Rows(),
			"output_values", prob.Total(),
		)
	}

	candidates := parse(prob, threshold)

	if debug {
		for _, c := range candidates {
			d.logger.Info("detection candidate",
				"xmin", c.XMin, "ymin", c.YMin,
				"xmax", c.XMax, "ymax", c.YMax,
				"confidence", c.Confidence,
			)
		}
	}

	return candidates, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.net == nil {
		return nil
	}
	err := d.net.Close()
	d.net = nil
	return err
}

func (d *Detector) load() (*gocv.Net, error) {
	if d.net != nil {
		return d.net, nil
	}

	net := gocv.ReadNet(d.opts.ModelPath, d.opts.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrModelLoad, d.opts.ModelPath)
	}

	d.logger.Info("detection model loaded", "model", d.opts.ModelPath)
	d.net = &net
	return d.net, nil
}

func parse(prob gocv.Mat, threshold float64) []detector.Candidate {
	var out []detector.Candidate
	for i := 0; i+ssdRowLen <= prob.Total(); i += ssdRowLen {
		conf := float64(prob.GetFloatAt(0, i+2))
		if conf < threshold {
			continue
		}
		out = append(out, detector.Candidate{
			Box: geometry.Box{
				XMin: clamp(prob.GetFloatAt(0, i+3)),
				YMin: clamp(prob.GetFloatAt(0, i+4)),
				XMax: clamp(prob.GetFloatAt(0, i+5)),
				YMax: clamp(prob.GetFloatAt(0, i+6)),
			},
			Confidence: conf,
		})
	}
	return out
}

func clamp(v float32) float64 {
	return min(max(float64(v), 0), 1)
}
