// Package interpret asks a generative model for a narrative reading of a
// report. Failures degrade to fallback text; they never fail a run.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"ipo-report-go/internal/logger"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("interpret: generative model not configured")

// ErrEmptyResponse is returned when the model answered with no text.
var ErrEmptyResponse = errors.New("empty response")

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.5-flash"

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClientConfig configures GenAIClient.
type ClientConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	// RequestTimeout bounds one call; MaxElapsed bounds all retries.
	RequestTimeout time.Duration
	MaxElapsed     time.Duration
	// RequestsPerMinute paces calls across every report of a run.
	RequestsPerMinute int
}

// GenAIClient calls the Gemini API with retry and pacing.
type GenAIClient struct {
	client  *genai.Client
	cfg     ClientConfig
	limiter *rate.Limiter
	log     *logger.Logger
}

func NewGenAIClient(ctx context.Context, cfg ClientConfig, log *logger.Logger) (*GenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 2 * time.Minute
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIClient{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:     log.WithComponent("interpret.genai"),
	}, nil
}

// Model names the model in use.
func (c *GenAIClient) Model() string { return c.cfg.Model }

// Generate waits for the limiter and retries transient failures. Client
// errors other than 429 are not retried.
func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	genCfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(c.cfg.Temperature)}
	if c.cfg.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = c.cfg.MaxOutputTokens
	}

	var text string
	attempt := 0
	op := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
		resp, err := c.client.Models.GenerateContent(callCtx, c.cfg.Model, genai.Text(prompt), genCfg)
		if err != nil {
			c.log.WithError(err).WithField("attempt", attempt).Warn("genai request failed")
			var apiErr genai.APIError
			if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			return backoff.Permanent(ErrEmptyResponse)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = c.cfg.MaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	c.log.WithField("attempts", attempt).WithField("chars", len(text)).Debug("genai response")
	return text, nil
}
