package model_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/model"
)

type stubRuntime struct {
	closed atomic.Bool
}

func (s *stubRuntime) Infer(_ context.Context, _ model.Tensor) ([]float32, error) {
	return []float32{1}, nil
}

func (s *stubRuntime) Close() error {
	s.closed.Store(true)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProviderLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	rt := &stubRuntime{}

	p := model.NewProvider(func(context.Context) (model.Runtime, error) {
		loads.Add(1)
		return rt, nil
	}, discard())

	var wg sync.WaitGroup
	for range 16 {
		wg.Go(func() {
			got, err := p.Model(context.Background())
			if err != nil {
				t.Errorf("Model failed: %v", err)
				return
			}
			if got != rt {
				t.Error("Model returned a different runtime")
			}
		})
	}
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
	if !p.Ready() {
		t.Error("Ready() = false after load")
	}
}

func TestProviderRetriesFailedLoad(t *testing.T) {
	attempts := 0
	p := model.NewProvider(func(context.Context) (model.Runtime, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("library missing")
		}
		return &stubRuntime{}, nil
	}, discard())

	if _, err := p.Model(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	if p.Ready() {
		t.Error("Ready() = true after failed load")
	}
	if _, err := p.Model(context.Background()); err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestProviderClose(t *testing.T) {
	rt := &stubRuntime{}
	p := model.NewProvider(func(context.Context) (model.Runtime, error) {
		return rt, nil
	}, discard())

	if _, err := p.Model(context.Background()); err != nil {
		t.Fatalf("Model failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !rt.closed.Load() {
		t.Error("runtime not closed")
	}
	if _, err := p.Model(context.Background()); !errors.Is(err, model.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestTensorSpecFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 6))
	for y := range 6 {
		for x := range 10 {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	spec := model.TensorSpec{Width: 4, Height: 2, Channels: 3, Std: 255, Grayscale: true}
	tensor := spec.FromImage(img)

	wantShape := []int64{1, 2, 4, 3}
	for i, d := range wantShape {
		if tensor.Shape[i] != d {
			t.Fatalf("shape = %v, want %v", tensor.Shape, wantShape)
		}
	}

	if len(tensor.Data) != 4*2*3 {
		t.Fatalf("data length = %d, want 24", len(tensor.Data))
	}

	want := float32(85.0 / 255.0)
	for i, v := range tensor.Data {
		if diff := v - want; diff > 1e-4 || diff < -1e-4 {
			t.Fatalf("data[%d] = %f, want %f", i, v, want)
		}
	}
}

func TestTensorSpecRGB(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 51, A: 255})
		}
	}

	spec := model.TensorSpec{Width: 2, Height: 2, Channels: 3, Std: 255}
	tensor := spec.FromImage(img)

	if tensor.Data[0] != 1 || tensor.Data[1] != 0 {
		t.Errorf("first pixel = %v, want [1 0 0.2]", tensor.Data[:3])
	}
	if diff := tensor.Data[2] - 0.2; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("blue channel = %f, want 0.2", tensor.Data[2])
	}
}

func TestConfigFinalizeDefaults(t *testing.T) {
	var cfg model.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	if cfg.InputName != "Placeholder" || cfg.OutputName != "final_result" {
		t.Errorf("io names = %s/%s", cfg.InputName, cfg.OutputName)
	}

	spec := cfg.TensorSpec()
	if spec != model.DefaultTensorSpec() {
		t.Errorf("TensorSpec() = %+v, want %+v", spec, model.DefaultTensorSpec())
	}
}

func TestConfigInvalidColorMode(t *testing.T) {
	cfg := model.Config{ColorMode: "sepia"}
	if err := cfg.Finalize(nil); err == nil {
		t.Error("expected error for unknown color mode")
	}
}
