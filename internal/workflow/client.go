// Package workflow talks to the external n8n generation pipeline and its AI
// collaborators. The webhook either returns the caption object directly or
// wraps it in a {"text": "```json ... ```"} envelope; both shapes are handled
// here so callers only see parsed captions or a classified error.
package workflow

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
)

type GeneratedContent struct {
	FacebookCaption  string `json:"facebook_caption"`
	InstagramCaption string `json:"instagram_caption"`
	LinkedInCaption  string `json:"linkedin_caption"`
	TwitterCaption   string `json:"twitter_caption"`
	ThreadsCaption   string `json:"threads_caption"`
	PinterestCaption string `json:"pinterest_caption"`
	ImagePrompt      string `json:"image_prompt"`
	ImageURL         string `json:"image_url"`
	VideoURL         string `json:"video_url"`
	AudioURL         string `json:"audio_url"`
}

type VideoResult struct {
	URL       string  `json:"url"`
	Duration  float64 `json:"duration"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Thumbnail string  `json:"thumbnail"`
}

type Client interface {
	GenerateContent(ctx context.Context, topic, intention string) (*GeneratedContent, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
	SearchVideos(ctx context.Context, query string) ([]VideoResult, error)
	GenerateAudio(ctx context.Context, script string) (string, error)
	AnalyzeVideo(ctx context.Context, videoURL string) (string, error)
}

type client struct {
	cfg  config.Workflow
	http *resty.Client
}

func NewClient(cfg config.Workflow) Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(5 * time.Minute).
		SetHeader("Content-Type", "application/json")
	if cfg.AuthToken != "" {
		httpClient.SetAuthToken(cfg.AuthToken)
	}
	return &client{cfg: cfg, http: httpClient}
}

type generateRequest struct {
	Topic     string `json:"Topic"`
	Intention string `json:"Intention"`
}

func (c *client) GenerateContent(ctx context.Context, topic, intention string) (*GeneratedContent, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{Topic: topic, Intention: intention}).
		Post("/webhook/generate-content")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "workflow request failed", err)
	}
	if resp.IsError() {
		return nil, apperr.Ef(apperr.KindTransport, "workflow returned status %d", resp.StatusCode())
	}

	return ParseGenerated(resp.Body())
}

// ParseGenerated accepts either a raw caption object or an envelope whose
// "text" field carries a fenced json block.
func ParseGenerated(body []byte) (*GeneratedContent, error) {
	var envelope struct {
		Text string `json:"text"`
	}
	payload := body
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Text != "" {
		extracted, ok := extractFencedJSON(envelope.Text)
		if !ok {
			return nil, apperr.E(apperr.KindFormat, "invalid response format")
		}
		payload = []byte(extracted)
	}

	var generated GeneratedContent
	if err := json.Unmarshal(payload, &generated); err != nil {
		return nil, apperr.Wrap(apperr.KindFormat, "invalid response format", err)
	}
	return &generated, nil
}

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

func extractFencedJSON(text string) (string, bool) {
	match := fencedJSONRe.FindStringSubmatch(text)
	if match == nil {
		// Fall back to a bare fence without the language tag.
		bare := regexp.MustCompile("(?s)```\\s*(\\{.*\\})\\s*```").FindStringSubmatch(text)
		if bare == nil {
			return "", false
		}
		return bare[1], true
	}
	extracted := strings.TrimSpace(match[1])
	if extracted == "" {
		return "", false
	}
	return extracted, true
}

type collaboratorResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	URL     string          `json:"url"`
	Result  string          `json:"result"`
	Videos  json.RawMessage `json:"videos"`
}

func (c *client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	result, err := c.callCollaborator(ctx, "/webhook/generate-image", map[string]string{"prompt": prompt})
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

func (c *client) SearchVideos(ctx context.Context, query string) ([]VideoResult, error) {
	result, err := c.callCollaborator(ctx, "/webhook/search-videos", map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	var videos []VideoResult
	if len(result.Videos) > 0 {
		if err := json.Unmarshal(result.Videos, &videos); err != nil {
			return nil, apperr.Wrap(apperr.KindFormat, "invalid video search payload", err)
		}
	}
	return videos, nil
}

func (c *client) GenerateAudio(ctx context.Context, script string) (string, error) {
	result, err := c.callCollaborator(ctx, "/webhook/generate-audio", map[string]string{"script": script})
	if err != nil {
		return "", err
	}
	return result.URL, nil
}

func (c *client) AnalyzeVideo(ctx context.Context, videoURL string) (string, error) {
	result, err := c.callCollaborator(ctx, "/webhook/analyze-video", map[string]string{"video_url": videoURL})
	if err != nil {
		return "", err
	}
	return result.Result, nil
}

// callCollaborator applies the shared {success, ...} contract: a transport
// problem and a success:false body are different error kinds.
func (c *client) callCollaborator(ctx context.Context, path string, body interface{}) (*collaboratorResponse, error) {
	var result collaboratorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "collaborator request failed", err)
	}
	if resp.IsError() {
		return nil, apperr.Ef(apperr.KindTransport, "collaborator returned status %d", resp.StatusCode())
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "collaborator reported failure"
		}
		return nil, apperr.E(apperr.KindDomain, msg)
	}
	return &result, nil
}
