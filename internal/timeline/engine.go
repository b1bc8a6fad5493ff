package timeline

import (
	"context"
	"errors"
	"sync"
)

// Transcoder is the external engine that does the actual cutting and joining.
// Implementations must write the requested output file or return an error
// without leaving a partial result behind.
type Transcoder interface {
	Trim(ctx context.Context, input string, start, end float64, output string) error
	Concat(ctx context.Context, inputs []string, output string) error
	Probe(ctx context.Context, input string) (SourceVideo, error)
}

var (
	ErrEngineNotReady = errors.New("transcoding engine is not loaded")
	ErrExportBusy     = errors.New("another export is already running")
)

type EngineState int

const (
	EngineUnloaded EngineState = iota
	EngineLoading
	EngineReady
)

func (s EngineState) String() string {
	switch s {
	case EngineLoading:
		return "loading"
	case EngineReady:
		return "ready"
	default:
		return "unloaded"
	}
}

// Handle is the process-wide engine holder. Loading is expensive, so it runs
// once and the result is shared; exports are serialized through a size-1 slot
// because the underlying engine tolerates only one job at a time.
type Handle struct {
	mu     sync.Mutex
	state  EngineState
	engine Transcoder
	err    error
	loaded chan struct{}

	loader func() (Transcoder, error)
	slot   chan struct{}
}

func NewHandle(loader func() (Transcoder, error)) *Handle {
	return &Handle{
		loader: loader,
		slot:   make(chan struct{}, 1),
	}
}

// Load brings the engine to ready. Concurrent callers during loading block
// until the first load resolves; a failed load resets to unloaded so the next
// call retries.
func (h *Handle) Load(ctx context.Context) error {
	h.mu.Lock()
	switch h.state {
	case EngineReady:
		h.mu.Unlock()
		return nil
	case EngineLoading:
		loaded := h.loaded
		h.mu.Unlock()
		select {
		case <-loaded:
		case <-ctx.Done():
			return ctx.Err()
		}
		h.mu.Lock()
		err := h.err
		h.mu.Unlock()
		return err
	}

	h.state = EngineLoading
	h.loaded = make(chan struct{})
	h.mu.Unlock()

	engine, err := h.loader()

	h.mu.Lock()
	if err != nil {
		h.state = EngineUnloaded
		h.err = err
	} else {
		h.state = EngineReady
		h.engine = engine
		h.err = nil
	}
	close(h.loaded)
	h.mu.Unlock()
	return err
}

func (h *Handle) State() EngineState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Probe inspects a source video through the engine, loading it on first use.
// Probing is read-only and does not take the export slot.
func (h *Handle) Probe(ctx context.Context, input string) (SourceVideo, error) {
	if err := h.Load(ctx); err != nil {
		return SourceVideo{}, err
	}
	h.mu.Lock()
	engine := h.engine
	h.mu.Unlock()
	return engine.Probe(ctx, input)
}

// Acquire claims the single export slot and returns the engine plus a release
// function. ErrExportBusy when another export holds the slot.
func (h *Handle) Acquire() (Transcoder, func(), error) {
	h.mu.Lock()
	if h.state != EngineReady {
		h.mu.Unlock()
		return nil, nil, ErrEngineNotReady
	}
	engine := h.engine
	h.mu.Unlock()

	select {
	case h.slot <- struct{}{}:
		return engine, func() { <-h.slot }, nil
	default:
		return nil, nil, ErrExportBusy
	}
}
