// Package onnx implements model.Runtime on top of ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/JaimeStill/glimpse/pkg/model"
)

// ErrOutputShape indicates the model output has no fixed element count.
var ErrOutputShape = errors.New("model output shape is not fixed")

// Options locate the model file and its input and output tensors.
type Options struct {
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
}

// envMu guards process-wide ONNX Runtime environment setup.
var envMu sync.Mutex

type runtime struct {
	session *ort.DynamicAdvancedSession
	outLen  int64
	logger  *slog.Logger
}

// Loader returns a model.Loader that opens the ONNX session described by opts.
func Loader(opts Options, logger *slog.Logger) model.Loader {
	return func(ctx context.Context) (model.Runtime, error) {
		return open(opts, logger)
	}
}

func open(opts Options, logger *slog.Logger) (*runtime, error) {
	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	outLen, err := outputLength(opts.ModelPath, opts.OutputName)
	if err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(
		opts.ModelPath,
		[]string{opts.InputName},
		[]string{opts.OutputName},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", opts.ModelPath, err)
	}

	logger.Info("onnx session ready",
		"model", opts.ModelPath,
		"input", opts.InputName,
		"output", opts.OutputName,
		"labels", outLen,
	)

	return &runtime{
		session: session,
		outLen:  outLen,
		logger:  logger.With("runtime", "onnx"),
	}, nil
}

func (r *runtime) Infer(ctx context.Context, input model.Tensor) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, r.outLen))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := r.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	data := out.GetData()
	scores := make([]float32, len(data))
	copy(scores, data)
	return scores, nil
}

func (r *runtime) Close() error {
	err := r.session.Destroy()

	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		err = errors.Join(err, ort.DestroyEnvironment())
	}
	return err
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

// outputLength reads the named output's dimensions and returns its element
// count, treating a dynamic batch dimension as 1.
func outputLength(modelPath, outputName string) (int64, error) {
	_, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return 0, fmt.Errorf("read model info %s: %w", modelPath, err)
	}

	for _, info := range outputs {
		if info.Name != outputName {
			continue
		}
		n := int64(1)
		for i, d := range info.Dimensions {
			switch {
			case d > 0:
				n *= d
			case i == 0:
				// dynamic batch
			default:
				return 0, fmt.Errorf("%w: %s %v", ErrOutputShape, outputName, info.Dimensions)
			}
		}
		return n, nil
	}

	return 0, fmt.Errorf("output %q not found in %s", outputName, modelPath)
}
