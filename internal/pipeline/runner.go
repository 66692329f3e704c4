package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Dv04/aixavier/internal/events"
)

// DefaultQueueSize bounds the frames waiting for one camera.
const DefaultQueueSize = 64

// CameraFactory builds the pipeline for a camera seen for the first time.
type CameraFactory func(cameraID string) (*Camera, error)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	QueueSize int
	Loader    ImageLoader
}

type worker struct {
	cam    *Camera
	frames chan FrameRecord
}

// Runner dispatches frame records to one goroutine per camera. Frames of a
// camera are processed in dispatch order; cameras run independently.
type Runner struct {
	cfg     RunnerConfig
	factory CameraFactory

	ctx    context.Context
	cancel context.CancelFunc

	// sendMu keeps Close from closing a queue mid-send.
	sendMu sync.RWMutex

	mu      sync.Mutex
	workers map[string]*worker
	failed  map[string]error
	closed  bool
	wg      sync.WaitGroup

	skipped atomic.Uint64
}

// NewRunner creates a runner. Cameras are built lazily by factory.
func NewRunner(factory CameraFactory, cfg RunnerConfig) *Runner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Loader == nil {
		cfg.Loader = LoadImage
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		cfg:     cfg,
		factory: factory,
		ctx:     ctx,
		cancel:  cancel,
		workers: make(map[string]*worker),
		failed:  make(map[string]error),
	}
}

// Dispatch queues fr for its camera, blocking while the camera's queue is
// full.
func (r *Runner) Dispatch(ctx context.Context, fr FrameRecord) error {
	if fr.CameraID == "" {
		fr.CameraID = DefaultCameraID
	}
	r.sendMu.RLock()
	defer r.sendMu.RUnlock()
	w, err := r.worker(fr.CameraID)
	if err != nil {
		return err
	}
	select {
	case w.frames <- fr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

func (r *Runner) worker(id string) (*worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("runner closed")
	}
	if w, ok := r.workers[id]; ok {
		return w, nil
	}
	if err, ok := r.failed[id]; ok {
		return nil, err
	}
	cam, err := r.factory(id)
	if err != nil {
		err = fmt.Errorf("camera %s: %w", id, err)
		r.failed[id] = err
		opsf("%v", err)
		return nil, err
	}
	w := &worker{cam: cam, frames: make(chan FrameRecord, r.cfg.QueueSize)}
	r.workers[id] = w
	r.wg.Add(1)
	go r.loop(w)
	diagf("camera %s: worker started", id)
	return w, nil
}

func (r *Runner) loop(w *worker) {
	defer r.wg.Done()
	for fr := range w.frames {
		if r.ctx.Err() != nil {
			continue
		}
		img, err := r.cfg.Loader(fr.Path)
		if err != nil {
			r.skipped.Add(1)
			opsf("camera %s frame %d: skipping: %v", fr.CameraID, fr.FrameIndex, err)
			continue
		}
		if err := w.cam.Process(r.ctx, fr, img); err != nil {
			opsf("%v", err)
		}
	}
}

// Run follows the frames log until ctx is cancelled and dispatches every
// decodable frame record. Malformed lines are logged and skipped. Run
// returns ctx.Err() after stopping the workers; call Close to release the
// cameras.
func (r *Runner) Run(ctx context.Context, frames *events.Tailer) error {
	err := frames.Follow(ctx, func(line []byte) error {
		fr, err := ParseFrameRecord(line)
		if err != nil {
			opsf("skipping malformed frame entry: %v", err)
			return nil
		}
		if err := r.Dispatch(ctx, fr); err != nil && ctx.Err() == nil {
			// Unbuildable cameras drop their frames.
			tracef("frame %d dropped: %v", fr.FrameIndex, err)
		}
		return nil
	})
	r.cancel()
	return err
}

// Close waits for queued frames to drain and closes every camera.
// Frames still queued after Run was cancelled are discarded.
func (r *Runner) Close() error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	for _, w := range r.workers {
		close(w.frames)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.cancel()

	var errs []error
	for id, w := range r.workers {
		if err := w.cam.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close camera %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Camera returns the pipeline of a running camera.
func (r *Runner) Camera(id string) (*Camera, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok {
		return nil, false
	}
	return w.cam, true
}

// Skipped is the number of frames skipped because their image could not
// be read.
func (r *Runner) Skipped() uint64 { return r.skipped.Load() }
