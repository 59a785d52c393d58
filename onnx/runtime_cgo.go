//go:build cgo

package onnx

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeMu    sync.Mutex
	runtimeReady bool
)

// Init loads the ONNX Runtime shared library and initializes the
// environment. Calling it again after success is a no-op.
func Init(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimeReady {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx: initialize runtime: %w", err)
	}
	runtimeReady = true
	slog.Info("onnx: runtime initialized", "library", libraryPath)
	return nil
}

// Shutdown destroys the environment. Sessions must be closed first.
func Shutdown() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !runtimeReady {
		return nil
	}
	runtimeReady = false
	return ort.DestroyEnvironment()
}

// Available reports whether Init has succeeded.
func Available() bool {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	return runtimeReady
}

type cgoSession struct {
	sess *ort.DynamicAdvancedSession
}

func newSession(opts Options) (session, error) {
	if !Available() {
		return nil, ErrRuntimeUnavailable
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}

	inputName, outputName := opts.InputName, opts.OutputName
	if inputName == "" || outputName == "" {
		inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("probe model: %w", err)
		}
		if len(inputs) == 0 || len(outputs) == 0 {
			return nil, fmt.Errorf("model %s has no inputs or outputs", opts.ModelPath)
		}
		if inputName == "" {
			inputName = inputs[0].Name
		}
		if outputName == "" {
			outputName = outputs[0].Name
		}
	}

	sess, err := ort.NewDynamicAdvancedSession(opts.ModelPath,
		[]string{inputName}, []string{outputName}, nil)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	slog.Debug("onnx: session ready", "model", opts.Name, "input", inputName, "output", outputName)
	return &cgoSession{sess: sess}, nil
}

func (s *cgoSession) run(input []float32, shape []int64, numClasses int) ([]float32, error) {
	in, err := ort.NewTensor(ort.NewShape(shape...), input)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(numClasses)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy()

	if err := s.sess.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, err
	}

	scores := make([]float32, numClasses)
	copy(scores, out.GetData())
	return scores, nil
}

func (s *cgoSession) close() error {
	return s.sess.Destroy()
}
