package timeline

import "github.com/google/uuid"

// SourceVideo describes a candidate clip source, usually a search result from
// the video collaborator.
type SourceVideo struct {
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// Clip is one trimmed segment on the timeline. Order values are dense and
// zero-based across a session's clip list; reordering renumbers every clip.
type Clip struct {
	ID        uuid.UUID   `json:"id"`
	Source    SourceVideo `json:"source"`
	StartTime float64     `json:"start_time"`
	EndTime   float64     `json:"end_time"`
	Order     int         `json:"order"`
}

// TrimmedDuration is the seconds of source this clip contributes to a merge.
func (c Clip) TrimmedDuration() float64 {
	return c.EndTime - c.StartTime
}
