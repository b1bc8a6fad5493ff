package timeline_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/contentpilot/backend/internal/timeline"
)

func TestHandleLoadsOnce(t *testing.T) {
	var loads atomic.Int32
	handle := timeline.NewHandle(func() (timeline.Transcoder, error) {
		loads.Add(1)
		return &fakeTranscoder{}, nil
	})

	if handle.State() != timeline.EngineUnloaded {
		t.Fatalf("state = %v, want unloaded", handle.State())
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := handle.Load(context.Background()); err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loader ran %d times, want 1", got)
	}
	if handle.State() != timeline.EngineReady {
		t.Errorf("state = %v, want ready", handle.State())
	}
}

func TestHandleFailedLoadRetries(t *testing.T) {
	var loads int
	handle := timeline.NewHandle(func() (timeline.Transcoder, error) {
		loads++
		if loads == 1 {
			return nil, errors.New("binary missing")
		}
		return &fakeTranscoder{}, nil
	})

	if err := handle.Load(context.Background()); err == nil {
		t.Fatal("expected first load to fail")
	}
	if handle.State() != timeline.EngineUnloaded {
		t.Fatalf("state after failed load = %v, want unloaded", handle.State())
	}

	if err := handle.Load(context.Background()); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if handle.State() != timeline.EngineReady {
		t.Errorf("state = %v, want ready", handle.State())
	}
}

func TestAcquireBeforeLoad(t *testing.T) {
	handle := timeline.NewHandle(func() (timeline.Transcoder, error) {
		return &fakeTranscoder{}, nil
	})

	if _, _, err := handle.Acquire(); !errors.Is(err, timeline.ErrEngineNotReady) {
		t.Fatalf("error = %v, want ErrEngineNotReady", err)
	}
}

func TestProbeLoadsLazily(t *testing.T) {
	handle := timeline.NewHandle(func() (timeline.Transcoder, error) {
		return &fakeTranscoder{}, nil
	})

	video, err := handle.Probe(context.Background(), "source.mp4")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if video.URL != "source.mp4" || video.Duration != 10 {
		t.Errorf("probed = %+v", video)
	}
	if handle.State() != timeline.EngineReady {
		t.Errorf("state = %v, probe should have loaded the engine", handle.State())
	}

	// Probing must not hold the export slot.
	_, release, err := handle.Acquire()
	if err != nil {
		t.Fatalf("acquire after probe: %v", err)
	}
	release()
}

func TestAcquireSerializes(t *testing.T) {
	handle := timeline.NewHandle(func() (timeline.Transcoder, error) {
		return &fakeTranscoder{}, nil
	})
	if err := handle.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, release, err := handle.Acquire()
	if err != nil {
		t.Fatal(err)
	}

	if _, _, err := handle.Acquire(); !errors.Is(err, timeline.ErrExportBusy) {
		t.Fatalf("error = %v, want ErrExportBusy", err)
	}

	release()
	_, release, err = handle.Acquire()
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	release()
}
