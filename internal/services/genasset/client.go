package genasset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultJobTimeout   = 10 * time.Minute
	defaultHTTPTimeout  = 30 * time.Second
)

// Asset kinds accepted by Generate.
const (
	KindImage = "image"
	KindVideo = "video"
)

// Job states reported by the API.
const (
	statusQueued    = "queued"
	statusRunning   = "running"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// Config captures the runtime settings for the generation service.
type Config struct {
	APIKey         string
	BaseURL        string
	ImageModel     string
	VideoModel     string
	PollSeconds    int
	TimeoutSeconds int
}

// Client wraps the generation API.
type Client struct {
	cfg          Config
	httpClient   *http.Client
	pollInterval time.Duration
	jobTimeout   time.Duration
	sleeper      func(context.Context, time.Duration) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides the poll cadence (useful for tests).
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
	}
}

// NewClient constructs a generation client from configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ImageModel:     strings.TrimSpace(cfg.ImageModel),
			VideoModel:     strings.TrimSpace(cfg.VideoModel),
			PollSeconds:    cfg.PollSeconds,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		pollInterval: defaultPollInterval,
		jobTimeout:   defaultJobTimeout,
	}
	if cfg.PollSeconds > 0 {
		client.pollInterval = time.Duration(cfg.PollSeconds) * time.Second
	}
	if cfg.TimeoutSeconds > 0 {
		client.jobTimeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type submitRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Kind   string `json:"kind"`
}

type jobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	AssetURL string `json:"asset_url"`
	Error    string `json:"error"`
}

// Generate submits a prompt, waits for the job to finish, and downloads the
// produced asset to dest. Kind selects the image or video model.
func (c *Client) Generate(ctx context.Context, prompt, kind, dest string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errors.New("genasset: prompt required")
	}
	if c.cfg.APIKey == "" {
		return errors.New("genasset: api key required")
	}
	if c.cfg.BaseURL == "" {
		return errors.New("genasset: base url required")
	}
	model, err := c.modelFor(kind)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()

	job, err := c.submit(ctx, submitRequest{Model: model, Prompt: prompt, Kind: kind})
	if err != nil {
		return err
	}

	job, err = c.waitForCompletion(ctx, job)
	if err != nil {
		return err
	}
	if job.AssetURL == "" {
		return fmt.Errorf("genasset: job %s finished without an asset url", job.ID)
	}
	return c.download(ctx, job.AssetURL, dest)
}

func (c *Client) modelFor(kind string) (string, error) {
	switch kind {
	case KindImage:
		if c.cfg.ImageModel == "" {
			return "", errors.New("genasset: image model not configured")
		}
		return c.cfg.ImageModel, nil
	case KindVideo:
		if c.cfg.VideoModel == "" {
			return "", errors.New("genasset: video model not configured")
		}
		return c.cfg.VideoModel, nil
	default:
		return "", fmt.Errorf("genasset: unknown asset kind %q", kind)
	}
}

func (c *Client) submit(ctx context.Context, payload submitRequest) (jobResponse, error) {
	var job jobResponse
	encoded, err := json.Marshal(payload)
	if err != nil {
		return job, fmt.Errorf("genasset: encode request: %w", err)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "jobs")
	if err != nil {
		return job, fmt.Errorf("genasset: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return job, fmt.Errorf("genasset: new request: %w", err)
	}
	c.setHeaders(req)
	if err := c.doJSON(req, &job); err != nil {
		return job, fmt.Errorf("genasset: submit: %w", err)
	}
	if job.ID == "" {
		return job, errors.New("genasset: submit returned no job id")
	}
	return job, nil
}

func (c *Client) waitForCompletion(ctx context.Context, job jobResponse) (jobResponse, error) {
	for {
		switch job.Status {
		case statusSucceeded:
			return job, nil
		case statusFailed:
			return job, fmt.Errorf("genasset: job %s failed: %s", job.ID, strings.TrimSpace(job.Error))
		case statusQueued, statusRunning, "":
		default:
			return job, fmt.Errorf("genasset: job %s in unknown state %q", job.ID, job.Status)
		}

		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return job, fmt.Errorf("genasset: waiting for job %s: %w", job.ID, err)
		}

		refreshed, err := c.poll(ctx, job.ID)
		if err != nil {
			return job, err
		}
		job = refreshed
	}
}

func (c *Client) poll(ctx context.Context, jobID string) (jobResponse, error) {
	var job jobResponse
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "jobs", jobID)
	if err != nil {
		return job, fmt.Errorf("genasset: build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return job, fmt.Errorf("genasset: new request: %w", err)
	}
	c.setHeaders(req)
	if err := c.doJSON(req, &job); err != nil {
		return job, fmt.Errorf("genasset: poll %s: %w", jobID, err)
	}
	return job, nil
}

func (c *Client) download(ctx context.Context, assetURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return fmt.Errorf("genasset: new request: %w", err)
	}
	c.setHeaders(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genasset: download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("genasset: download: http %d", resp.StatusCode)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("genasset: create %s: %w", dest, err)
	}
	defer file.Close()
	if _, err := io.Copy(file, resp.Body); err != nil {
		return fmt.Errorf("genasset: write %s: %w", dest, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func (c *Client) doJSON(req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if c.sleeper != nil {
		return c.sleeper(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
