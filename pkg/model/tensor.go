package model

import (
	"image"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/floats"
)

// Tensor is a dense float32 input in NHWC layout.
type Tensor struct {
	Data  []float32
	Shape []int64
}

// TensorSpec describes how an element image becomes a model input.
type TensorSpec struct {
	Width     int
	Height    int
	Channels  int
	Mean      float64
	Std       float64
	Grayscale bool
}

// DefaultTensorSpec matches the 224x224 grayscale-replicated input used by
// the bundled element classifier.
func DefaultTensorSpec() TensorSpec {
	return TensorSpec{
		Width:     224,
		Height:    224,
		Channels:  3,
		Mean:      0,
		Std:       255,
		Grayscale: true,
	}
}

// Shape returns the [1, H, W, C] input shape.
func (s TensorSpec) Shape() []int64 {
	return []int64{1, int64(s.Height), int64(s.Width), int64(s.Channels)}
}

// FromImage resizes img bilinearly to the spec dimensions and normalizes
// each channel as (v - Mean) / Std. In grayscale mode the average of r, g
// and b is replicated across every channel.
func (s TensorSpec) FromImage(img image.Image) Tensor {
	dst := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	values := make([]float64, s.Width*s.Height*s.Channels)
	i := 0
	for p := 0; p < len(dst.Pix); p += 4 {
		r := float64(dst.Pix[p])
		g := float64(dst.Pix[p+1])
		b := float64(dst.Pix[p+2])

		if s.Grayscale {
			gray := (r + g + b) / 3
			for range s.Channels {
				values[i] = gray
				i++
			}
			continue
		}

		rgb := [3]float64{r, g, b}
		for c := range s.Channels {
			values[i] = rgb[min(c, 2)]
			i++
		}
	}

	floats.AddConst(-s.Mean, values)
	if s.Std != 0 {
		floats.Scale(1/s.Std, values)
	}

	data := make([]float32, len(values))
	for j, v := range values {
		data[j] = float32(v)
	}

	return Tensor{Data: data, Shape: s.Shape()}
}
