package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/digkill/artbox/internal/config"
	"github.com/digkill/artbox/pkg/logger"
)

const generationsPath = "/v1/images/generations"

// Client talks to the OpenAI images API.
type Client struct {
	apiKey     string
	baseURL    string
	size       string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		apiKey:  cfg.OpenAIAPIKey,
		baseURL: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		size:    lo.Ternary(cfg.ImageSize != "", cfg.ImageSize, "512x512"),
		model:   cfg.ImageModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type generateRequest struct {
	Model          string `json:"model,omitempty"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type imageData struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type generateResponse struct {
	Data  []imageData `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate requests count images for prompt and returns their URLs in the
// order the API listed them.
func (c *Client) Generate(ctx context.Context, prompt string, count int) ([]string, error) {
	if count <= 0 {
		return nil, fmt.Errorf("image count must be positive")
	}

	fullURL, err := c.endpoint(generationsPath)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(generateRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              count,
		Size:           c.size,
		ResponseFormat: "url",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	log := c.logger(ctx)
	log.Info("requesting images", "url", fullURL, "n", count, "size", c.size)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post openai: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		log.Error("openai image generation failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return nil, fmt.Errorf("openai error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(rawBody, &genResp); err != nil {
		return nil, fmt.Errorf("decode response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if genResp.Error != nil {
		return nil, fmt.Errorf("openai error: %s (%s)", genResp.Error.Message, genResp.Error.Type)
	}

	urls := lo.FilterMap(genResp.Data, func(item imageData, _ int) (string, bool) {
		return item.URL, item.URL != ""
	})
	if len(urls) == 0 {
		return nil, fmt.Errorf("no image urls in response")
	}

	log.Info("images generated", "requested", count, "received", len(urls))
	return urls, nil
}

func (c *Client) logger(ctx context.Context) *slog.Logger {
	return logger.FromContextOr(ctx, c.log)
}

func (c *Client) endpoint(path string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
