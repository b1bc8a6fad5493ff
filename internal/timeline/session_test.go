package timeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/timeline"
	"github.com/google/uuid"
)

// fakeTranscoder records trim calls and writes stand-in output files so the
// export path can read them back.
type fakeTranscoder struct {
	mu       sync.Mutex
	trims    []trimCall
	concats  int
	trimErr  error
	blocking chan struct{}
}

type trimCall struct {
	input      string
	start, end float64
}

func (f *fakeTranscoder) Trim(ctx context.Context, input string, start, end float64, output string) error {
	f.mu.Lock()
	f.trims = append(f.trims, trimCall{input: input, start: start, end: end})
	f.mu.Unlock()
	if f.trimErr != nil {
		return f.trimErr
	}
	return os.WriteFile(output, []byte("segment"), 0o644)
}

func (f *fakeTranscoder) Concat(ctx context.Context, inputs []string, output string) error {
	f.mu.Lock()
	f.concats++
	blocking := f.blocking
	f.mu.Unlock()
	if blocking != nil {
		<-blocking
	}
	return os.WriteFile(output, []byte("merged"), 0o644)
}

func (f *fakeTranscoder) Probe(ctx context.Context, input string) (timeline.SourceVideo, error) {
	return timeline.SourceVideo{URL: input, Duration: 10}, nil
}

func readyHandle(t *testing.T, engine timeline.Transcoder) *timeline.Handle {
	t.Helper()
	handle := timeline.NewHandle(func() (timeline.Transcoder, error) { return engine, nil })
	if err := handle.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return handle
}

func TestAddClipDefaults(t *testing.T) {
	session := timeline.NewSession()
	if session.State() != timeline.StateIdle {
		t.Fatalf("state = %v, want idle", session.State())
	}

	clip, err := session.AddClip(timeline.SourceVideo{URL: "a.mp4", Duration: 12.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clip.StartTime != 0 || clip.EndTime != 12.5 {
		t.Errorf("bounds = [%v, %v], want [0, 12.5]", clip.StartTime, clip.EndTime)
	}
	if clip.Order != 0 {
		t.Errorf("order = %d, want 0", clip.Order)
	}
	if session.State() != timeline.StateClipsSelected {
		t.Errorf("state = %v, want clips_selected", session.State())
	}
}

func TestAddClipRejectsZeroDuration(t *testing.T) {
	session := timeline.NewSession()
	_, err := session.AddClip(timeline.SourceVideo{URL: "a.mp4"})
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestUpdateTrimIgnoresInvalidBounds(t *testing.T) {
	session := timeline.NewSession()
	clip, err := session.AddClip(timeline.SourceVideo{URL: "a.mp4", Duration: 10})
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name       string
		start, end float64
	}{
		{"inverted", 6, 2},
		{"equal", 3, 3},
		{"negative start", -1, 5},
		{"end past duration", 2, 11},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session.UpdateTrim(clip.ID, tc.start, tc.end)
			got := session.Clips()[0]
			if got.StartTime != 0 || got.EndTime != 10 {
				t.Errorf("bounds changed to [%v, %v]", got.StartTime, got.EndTime)
			}
		})
	}

	session.UpdateTrim(clip.ID, 2, 6)
	got := session.Clips()[0]
	if got.StartTime != 2 || got.EndTime != 6 {
		t.Errorf("bounds = [%v, %v], want [2, 6]", got.StartTime, got.EndTime)
	}
}

func TestReorderKeepsDenseOrder(t *testing.T) {
	session := timeline.NewSession()
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		clip, err := session.AddClip(timeline.SourceVideo{URL: fmt.Sprintf("clip-%d.mp4", i), Duration: 5})
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = clip.ID
	}

	// Drag the last clip onto the first position.
	if err := session.Reorder(ids[3], ids[0]); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	clips := session.Clips()
	wantURLs := []string{"clip-3.mp4", "clip-0.mp4", "clip-1.mp4", "clip-2.mp4"}
	for i, clip := range clips {
		if clip.Order != i {
			t.Errorf("clips[%d].Order = %d, want %d", i, clip.Order, i)
		}
		if clip.Source.URL != wantURLs[i] {
			t.Errorf("clips[%d] = %s, want %s", i, clip.Source.URL, wantURLs[i])
		}
	}
}

func TestReorderUnknownClip(t *testing.T) {
	session := timeline.NewSession()
	clip, err := session.AddClip(timeline.SourceVideo{URL: "a.mp4", Duration: 5})
	if err != nil {
		t.Fatal(err)
	}
	if err := session.Reorder(clip.ID, uuid.New()); !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestRemoveClipRenumbers(t *testing.T) {
	session := timeline.NewSession()
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		clip, err := session.AddClip(timeline.SourceVideo{URL: fmt.Sprintf("clip-%d.mp4", i), Duration: 5})
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = clip.ID
	}

	if err := session.RemoveClip(ids[1]); err != nil {
		t.Fatal(err)
	}
	clips := session.Clips()
	if len(clips) != 2 {
		t.Fatalf("got %d clips, want 2", len(clips))
	}
	for i, clip := range clips {
		if clip.Order != i {
			t.Errorf("clips[%d].Order = %d, want %d", i, clip.Order, i)
		}
	}

	session.RemoveClip(ids[0])
	session.RemoveClip(ids[2])
	if session.State() != timeline.StateIdle {
		t.Errorf("state = %v, want idle after last clip removed", session.State())
	}
}

func TestExportSumsTrimmedDurations(t *testing.T) {
	session := timeline.NewSession()
	first, err := session.AddClip(timeline.SourceVideo{URL: "ten.mp4", Duration: 10})
	if err != nil {
		t.Fatal(err)
	}
	second, err := session.AddClip(timeline.SourceVideo{URL: "eight.mp4", Duration: 8})
	if err != nil {
		t.Fatal(err)
	}
	session.UpdateTrim(first.ID, 2, 6)
	session.UpdateTrim(second.ID, 0, 4)

	engine := &fakeTranscoder{}
	handle := readyHandle(t, engine)

	var stages []string
	result, err := session.Export(context.Background(), handle, t.TempDir(), func(percent int, stage string) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if result.Duration != 8 {
		t.Errorf("duration = %v, want 8", result.Duration)
	}
	if string(result.Data) != "merged" {
		t.Errorf("data = %q", result.Data)
	}
	if session.State() != timeline.StateExported {
		t.Errorf("state = %v, want exported", session.State())
	}
	if len(engine.trims) != 2 {
		t.Fatalf("got %d trims, want 2", len(engine.trims))
	}
	if engine.trims[0].start != 2 || engine.trims[0].end != 6 {
		t.Errorf("first trim = [%v, %v], want [2, 6]", engine.trims[0].start, engine.trims[0].end)
	}
	if len(stages) == 0 || stages[len(stages)-1] != "Export complete" {
		t.Errorf("stages = %v", stages)
	}
}

func TestExportWithNoClips(t *testing.T) {
	session := timeline.NewSession()
	handle := readyHandle(t, &fakeTranscoder{})

	_, err := session.Export(context.Background(), handle, t.TempDir(), nil)
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestExportFailureLeavesClips(t *testing.T) {
	session := timeline.NewSession()
	if _, err := session.AddClip(timeline.SourceVideo{URL: "a.mp4", Duration: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := session.AddClip(timeline.SourceVideo{URL: "b.mp4", Duration: 10}); err != nil {
		t.Fatal(err)
	}

	engine := &fakeTranscoder{trimErr: errors.New("codec exploded")}
	handle := readyHandle(t, engine)

	_, err := session.Export(context.Background(), handle, t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if session.State() != timeline.StateExportFailed {
		t.Errorf("state = %v, want export_failed", session.State())
	}
	if len(session.Clips()) != 2 {
		t.Errorf("clips were modified by a failed export")
	}
	// The whole export aborts on the first failure.
	if len(engine.trims) != 1 {
		t.Errorf("got %d trims, want 1", len(engine.trims))
	}

	// Redo returns the timeline to an editable, exportable state.
	if err := session.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if session.State() != timeline.StateClipsSelected {
		t.Errorf("state = %v, want clips_selected", session.State())
	}
}

func TestExportTwiceNeedsRedo(t *testing.T) {
	session := timeline.NewSession()
	if _, err := session.AddClip(timeline.SourceVideo{URL: "a.mp4", Duration: 10}); err != nil {
		t.Fatal(err)
	}
	handle := readyHandle(t, &fakeTranscoder{})

	if _, err := session.Export(context.Background(), handle, t.TempDir(), nil); err != nil {
		t.Fatal(err)
	}
	_, err := session.Export(context.Background(), handle, t.TempDir(), nil)
	if !apperr.IsInvalidState(err) {
		t.Fatalf("error = %v, want invalid state", err)
	}

	if err := session.Redo(); err != nil {
		t.Fatal(err)
	}
	if session.Result() != nil {
		t.Error("redo should discard the previous result")
	}
	if _, err := session.Export(context.Background(), handle, t.TempDir(), nil); err != nil {
		t.Fatalf("export after redo: %v", err)
	}
}

func TestEditsRefusedOnceExported(t *testing.T) {
	session := timeline.NewSession()
	clip, err := session.AddClip(timeline.SourceVideo{URL: "a.mp4", Duration: 10})
	if err != nil {
		t.Fatal(err)
	}
	handle := readyHandle(t, &fakeTranscoder{})

	if _, err := session.Export(context.Background(), handle, t.TempDir(), nil); err != nil {
		t.Fatal(err)
	}

	if _, err := session.AddClip(timeline.SourceVideo{URL: "b.mp4", Duration: 5}); !apperr.IsInvalidState(err) {
		t.Errorf("AddClip after export: error = %v, want invalid state", err)
	}
	if err := session.Reorder(clip.ID, clip.ID); !apperr.IsInvalidState(err) {
		t.Errorf("Reorder after export: error = %v, want invalid state", err)
	}
	if err := session.RemoveClip(clip.ID); !apperr.IsInvalidState(err) {
		t.Errorf("RemoveClip after export: error = %v, want invalid state", err)
	}
	session.UpdateTrim(clip.ID, 1, 3)
	got := session.Clips()[0]
	if got.StartTime != 0 || got.EndTime != 10 {
		t.Errorf("trim applied after export: [%v, %v]", got.StartTime, got.EndTime)
	}
	if len(session.Clips()) != 1 {
		t.Fatalf("clip list changed under a produced result")
	}

	// Redo is the one exit; editing works again afterwards.
	if err := session.Redo(); err != nil {
		t.Fatal(err)
	}
	if _, err := session.AddClip(timeline.SourceVideo{URL: "b.mp4", Duration: 5}); err != nil {
		t.Errorf("AddClip after redo: %v", err)
	}
}

func TestConcurrentExportIsRefused(t *testing.T) {
	engine := &fakeTranscoder{blocking: make(chan struct{})}
	handle := readyHandle(t, engine)

	first := timeline.NewSession()
	if _, err := first.AddClip(timeline.SourceVideo{URL: "a.mp4", Duration: 10}); err != nil {
		t.Fatal(err)
	}
	second := timeline.NewSession()
	if _, err := second.AddClip(timeline.SourceVideo{URL: "b.mp4", Duration: 10}); err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := first.Export(context.Background(), handle, t.TempDir(), func(percent int, stage string) {
			if stage == "Merging clips" {
				close(started)
			}
		})
		done <- err
	}()

	<-started
	_, err := second.Export(context.Background(), handle, t.TempDir(), nil)
	if !errors.Is(err, timeline.ErrExportBusy) {
		t.Fatalf("error = %v, want ErrExportBusy", err)
	}

	close(engine.blocking)
	if err := <-done; err != nil {
		t.Fatalf("first export: %v", err)
	}

	// The slot is free again once the first export releases it.
	if _, err := second.Export(context.Background(), handle, t.TempDir(), nil); err != nil {
		t.Fatalf("second export after release: %v", err)
	}
}
