package timeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegEngine drives the system ffmpeg/ffprobe binaries. It satisfies
// Transcoder; the Handle loader verifies the binaries exist before handing
// the engine out.
type FFmpegEngine struct {
	FFmpegBinary  string
	FFprobeBinary string
}

// NewFFmpegLoader returns a Handle loader that probes for the binaries once.
func NewFFmpegLoader(ffmpegBinary, ffprobeBinary string) func() (Transcoder, error) {
	return func() (Transcoder, error) {
		for _, binary := range []string{ffmpegBinary, ffprobeBinary} {
			if _, err := exec.LookPath(binary); err != nil {
				return nil, fmt.Errorf("transcoder binary %q not found: %w", binary, err)
			}
		}
		return &FFmpegEngine{FFmpegBinary: ffmpegBinary, FFprobeBinary: ffprobeBinary}, nil
	}
}

func (e *FFmpegEngine) Trim(ctx context.Context, input string, start, end float64, output string) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", input,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		output,
	}
	return e.run(ctx, e.FFmpegBinary, args)
}

func (e *FFmpegEngine) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat requires at least one input")
	}

	// The concat demuxer wants a file list; inline it via the pipe protocol
	// so nothing is left on disk outside the export workspace.
	var list strings.Builder
	for _, input := range inputs {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(input, "'", `'\''`))
	}

	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-protocol_whitelist", "file,pipe",
		"-i", "pipe:0",
		"-c", "copy",
		output,
	}
	cmd := exec.CommandContext(ctx, e.FFmpegBinary, args...)
	cmd.Stdin = strings.NewReader(list.String())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", e.FFmpegBinary, err, lastLine(stderr.String()))
	}
	return nil
}

func (e *FFmpegEngine) Probe(ctx context.Context, input string) (SourceVideo, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		input,
	}
	cmd := exec.CommandContext(ctx, e.FFprobeBinary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return SourceVideo{}, fmt.Errorf("%s: %w: %s", e.FFprobeBinary, err, lastLine(stderr.String()))
	}

	var probed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &probed); err != nil {
		return SourceVideo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	duration, _ := strconv.ParseFloat(probed.Format.Duration, 64)
	video := SourceVideo{URL: input, Duration: duration}
	for _, stream := range probed.Streams {
		if stream.CodecType == "video" {
			video.Width = stream.Width
			video.Height = stream.Height
			break
		}
	}
	return video, nil
}

func (e *FFmpegEngine) run(ctx context.Context, binary string, args []string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", binary, err, lastLine(stderr.String()))
	}
	return nil
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
