package detector

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Dv04/aixavier/internal/vision/geometry"
)

var runtimeInit struct {
	once sync.Once
	err  error
}

// initRuntime initialises the onnxruntime environment once per process. The
// shared library path from the first caller wins.
func initRuntime(sharedLibrary string) error {
	runtimeInit.once.Do(func() {
		if ort.IsInitialized() {
			return
		}
		if sharedLibrary != "" {
			ort.SetSharedLibraryPath(sharedLibrary)
		}
		runtimeInit.err = ort.InitializeEnvironment()
	})
	return runtimeInit.err
}

type onnxSession struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	outputNames []string
	inputShape  []int64
}

// OpenONNX loads an ONNX model with onnxruntime. It is the default Opener.
func OpenONNX(path, sharedLibrary string) (Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model not found: %w", err)
	}
	if err := initRuntime(sharedLibrary); err != nil {
		return nil, fmt.Errorf("onnxruntime unavailable: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("inspect model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model has no inputs or outputs")
	}
	outNames := make([]string, len(outputs))
	for i, o := range outputs {
		outNames[i] = o.Name
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()

	s, err := ort.NewDynamicAdvancedSession(path, []string{inputs[0].Name}, outNames, opts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &onnxSession{
		session:     s,
		outputNames: outNames,
		inputShape:  slices.Clone([]int64(inputs[0].Dimensions)),
	}, nil
}

func (o *onnxSession) InputShape() []int64 { return slices.Clone(o.inputShape) }

func (o *onnxSession) Run(input geometry.Tensor) ([]geometry.Tensor, error) {
	in, err := ort.NewTensor(ort.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()

	outs := make([]ort.Value, len(o.outputNames))
	o.mu.Lock()
	err = o.session.Run([]ort.Value{in}, outs)
	o.mu.Unlock()
	defer func() {
		for _, v := range outs {
			if v != nil {
				v.Destroy()
			}
		}
	}()
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}

	result := make([]geometry.Tensor, 0, len(outs))
	for i, v := range outs {
		t, ok := v.(*ort.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("%w: output %q is not float32", geometry.ErrTensorShape, o.outputNames[i])
		}
		result = append(result, geometry.Tensor{
			Shape: slices.Clone([]int64(t.GetShape())),
			Data:  slices.Clone(t.GetData()),
		})
	}
	return result, nil
}

func (o *onnxSession) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Destroy()
}
