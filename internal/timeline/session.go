package timeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/contentpilot/backend/internal/apperr"
)

type SessionState string

const (
	StateIdle          SessionState = "idle"
	StateClipsSelected SessionState = "clips_selected"
	StateExporting     SessionState = "exporting"
	StateExported      SessionState = "exported"
	StateExportFailed  SessionState = "export_failed"
)

// ProgressFunc receives export progress as a percentage and a stage message.
type ProgressFunc func(percent int, stage string)

type ExportResult struct {
	Path     string
	Data     []byte
	Duration float64
}

// Session is one editor's timeline. All operations hold the session mutex, so
// edits stay sequential even when the HTTP layer races requests at it.
type Session struct {
	ID uuid.UUID

	mu     sync.Mutex
	state  SessionState
	clips  []Clip
	result *ExportResult
}

func NewSession() *Session {
	return &Session{
		ID:    uuid.New(),
		state: StateIdle,
	}
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Clips returns a copy in ascending order.
func (s *Session) Clips() []Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clipsLocked()
}

func (s *Session) clipsLocked() []Clip {
	out := make([]Clip, len(s.clips))
	copy(out, s.clips)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (s *Session) Result() *ExportResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// editableLocked gates every timeline mutation. Once an export has run, redo
// is the only way back to an editable state; silently editing under a
// produced result would leave the blob inconsistent with the clip list.
func (s *Session) editableLocked() error {
	switch s.state {
	case StateExporting:
		return apperr.E(apperr.KindInvalidState, "cannot edit timeline while exporting")
	case StateExported, StateExportFailed:
		return apperr.E(apperr.KindInvalidState, "timeline is finalized; redo to edit")
	}
	return nil
}

// AddClip appends a full-length clip at the end of the timeline.
func (s *Session) AddClip(video SourceVideo) (Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return Clip{}, err
	}
	if video.Duration <= 0 {
		return Clip{}, apperr.E(apperr.KindValidation, "source video has no duration")
	}

	clip := Clip{
		ID:        uuid.New(),
		Source:    video,
		StartTime: 0,
		EndTime:   video.Duration,
		Order:     len(s.clips),
	}
	s.clips = append(s.clips, clip)
	s.state = StateClipsSelected
	return clip, nil
}

// UpdateTrim adjusts clip bounds. Out-of-range or inverted bounds are a
// silent no-op: the slider UI feeds transient garbage during drags and the
// timeline must never go inconsistent because of it.
func (s *Session) UpdateTrim(clipID uuid.UUID, start, end float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editableLocked() != nil {
		return
	}
	for i := range s.clips {
		if s.clips[i].ID != clipID {
			continue
		}
		if start >= end || start < 0 || end > s.clips[i].Source.Duration {
			return
		}
		s.clips[i].StartTime = start
		s.clips[i].EndTime = end
		return
	}
}

// Reorder splices the dragged clip to the target's position and renumbers
// every clip so order stays a dense permutation of [0, n-1].
func (s *Session) Reorder(draggedID, targetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}

	ordered := s.clipsLocked()
	draggedIdx, targetIdx := -1, -1
	for i, clip := range ordered {
		if clip.ID == draggedID {
			draggedIdx = i
		}
		if clip.ID == targetID {
			targetIdx = i
		}
	}
	if draggedIdx == -1 || targetIdx == -1 {
		return apperr.E(apperr.KindValidation, "unknown clip id")
	}
	if draggedIdx == targetIdx {
		return nil
	}

	dragged := ordered[draggedIdx]
	ordered = append(ordered[:draggedIdx], ordered[draggedIdx+1:]...)
	rest := make([]Clip, 0, len(ordered)+1)
	rest = append(rest, ordered[:targetIdx]...)
	rest = append(rest, dragged)
	rest = append(rest, ordered[targetIdx:]...)

	for i := range rest {
		rest[i].Order = i
	}
	s.clips = rest
	return nil
}

func (s *Session) RemoveClip(clipID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.editableLocked(); err != nil {
		return err
	}

	ordered := s.clipsLocked()
	kept := ordered[:0]
	found := false
	for _, clip := range ordered {
		if clip.ID == clipID {
			found = true
			continue
		}
		kept = append(kept, clip)
	}
	if !found {
		return apperr.E(apperr.KindValidation, "unknown clip id")
	}
	for i := range kept {
		kept[i].Order = i
	}
	s.clips = kept
	if len(s.clips) == 0 {
		s.state = StateIdle
	}
	return nil
}

// Redo discards a produced blob so export can run again.
func (s *Session) Redo() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateExported && s.state != StateExportFailed {
		return apperr.E(apperr.KindInvalidState, "nothing to redo")
	}
	s.result = nil
	s.state = StateClipsSelected
	return nil
}

// Export trims every clip in ascending order and concatenates the segments
// into one output file. Any failure aborts the whole export and leaves the
// timeline untouched; there is no segment-level retry.
func (s *Session) Export(ctx context.Context, handle *Handle, workDir string, progress ProgressFunc) (*ExportResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}

	s.mu.Lock()
	switch s.state {
	case StateExporting:
		s.mu.Unlock()
		return nil, apperr.Wrap(apperr.KindDomain, "export already running", ErrExportBusy)
	case StateExported:
		s.mu.Unlock()
		return nil, apperr.E(apperr.KindInvalidState, "export already produced; redo first")
	}
	if len(s.clips) == 0 {
		s.mu.Unlock()
		return nil, apperr.E(apperr.KindValidation, "timeline has no clips")
	}
	clips := s.clipsLocked()
	s.state = StateExporting
	s.mu.Unlock()

	result, err := s.runExport(ctx, handle, workDir, clips, progress)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateExportFailed
		return nil, err
	}
	s.state = StateExported
	s.result = result
	return result, nil
}

func (s *Session) runExport(ctx context.Context, handle *Handle, workDir string, clips []Clip, progress ProgressFunc) (*ExportResult, error) {
	if err := handle.Load(ctx); err != nil {
		return nil, apperr.Wrap(apperr.KindDomain, "transcoding engine failed to load", err)
	}
	engine, release, err := handle.Acquire()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDomain, "transcoding engine unavailable", err)
	}
	defer release()

	dir, err := os.MkdirTemp(workDir, "export-")
	if err != nil {
		return nil, fmt.Errorf("create export workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	// Trimming takes the first 80% of the bar, the merge the rest.
	segments := make([]string, 0, len(clips))
	var total float64
	for i, clip := range clips {
		progress(i*80/len(clips), fmt.Sprintf("Trimming clip %d of %d", i+1, len(clips)))
		segment := filepath.Join(dir, fmt.Sprintf("segment-%03d.mp4", i))
		if err := engine.Trim(ctx, clip.Source.URL, clip.StartTime, clip.EndTime, segment); err != nil {
			return nil, apperr.Wrap(apperr.KindDomain, fmt.Sprintf("trimming clip %d failed", i+1), err)
		}
		segments = append(segments, segment)
		total += clip.TrimmedDuration()
	}

	progress(80, "Merging clips")
	output := filepath.Join(dir, "merged.mp4")
	if err := engine.Concat(ctx, segments, output); err != nil {
		return nil, apperr.Wrap(apperr.KindDomain, "merging clips failed", err)
	}

	progress(95, "Reading output")
	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read merged output: %w", err)
	}

	progress(100, "Export complete")
	return &ExportResult{Path: output, Data: data, Duration: total}, nil
}
