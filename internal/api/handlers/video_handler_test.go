package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/workflow"
	"github.com/gofiber/fiber/v2"
)

type fakeWorkflowClient struct {
	videos   []workflow.VideoResult
	analysis string
	gotQuery string
	gotURL   string
	err      error
}

func (f *fakeWorkflowClient) GenerateContent(ctx context.Context, topic, intention string) (*workflow.GeneratedContent, error) {
	return nil, f.err
}

func (f *fakeWorkflowClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", f.err
}

func (f *fakeWorkflowClient) SearchVideos(ctx context.Context, query string) ([]workflow.VideoResult, error) {
	f.gotQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.videos, nil
}

func (f *fakeWorkflowClient) GenerateAudio(ctx context.Context, script string) (string, error) {
	return "", f.err
}

func (f *fakeWorkflowClient) AnalyzeVideo(ctx context.Context, videoURL string) (string, error) {
	f.gotURL = videoURL
	if f.err != nil {
		return "", f.err
	}
	return f.analysis, nil
}

func videoApp(wf workflow.Client) *fiber.App {
	app := fiber.New()
	h := NewVideoHandler(wf)
	app.Get("/api/videos/search", h.SearchVideos)
	app.Post("/api/videos/analyze", h.AnalyzeVideo)
	return app
}

func TestSearchVideos(t *testing.T) {
	wf := &fakeWorkflowClient{videos: []workflow.VideoResult{
		{URL: "https://videos.example/ocean.mp4", Duration: 12.5, Width: 1920, Height: 1080},
		{URL: "https://videos.example/beach.mp4", Duration: 8, Width: 1280, Height: 720},
	}}
	app := videoApp(wf)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/videos/search?query=ocean", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if wf.gotQuery != "ocean" {
		t.Errorf("query = %q, want %q", wf.gotQuery, "ocean")
	}

	var body struct {
		Videos []workflow.VideoResult `json:"videos"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(body.Videos) != 2 {
		t.Fatalf("got %d videos, want 2", len(body.Videos))
	}
	if body.Videos[0].URL != "https://videos.example/ocean.mp4" {
		t.Errorf("first url = %q", body.Videos[0].URL)
	}
}

func TestSearchVideosRequiresQuery(t *testing.T) {
	app := videoApp(&fakeWorkflowClient{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/videos/search", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}

func TestSearchVideosUpstreamFailure(t *testing.T) {
	wf := &fakeWorkflowClient{err: apperr.E(apperr.KindTransport, "workflow request failed")}
	app := videoApp(wf)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/videos/search?query=ocean", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestAnalyzeVideo(t *testing.T) {
	wf := &fakeWorkflowClient{analysis: "a calm beach scene with slow pans"}
	app := videoApp(wf)

	req := httptest.NewRequest("POST", "/api/videos/analyze",
		strings.NewReader(`{"video_url":"https://videos.example/beach.mp4"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if wf.gotURL != "https://videos.example/beach.mp4" {
		t.Errorf("url = %q", wf.gotURL)
	}

	var body struct {
		Result string `json:"result"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if body.Result != "a calm beach scene with slow pans" {
		t.Errorf("result = %q", body.Result)
	}
}

func TestAnalyzeVideoRequiresURL(t *testing.T) {
	app := videoApp(&fakeWorkflowClient{})

	req := httptest.NewRequest("POST", "/api/videos/analyze", strings.NewReader(`{"video_url":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
}
