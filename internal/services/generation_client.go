package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brightboard/contentforge-backend/internal/logger"
	"github.com/brightboard/contentforge-backend/internal/utils"
)

// GenerationClient is the contract with the external generation service.
// The core never inspects generated content; it only persists it and
// classifies failures.
type GenerationClient interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

type GenerationRequest struct {
	Kind        string          `json:"kind"` // syllabus | notes | questions | assemble
	Board       string          `json:"board"`
	Grade       int             `json:"grade"`
	Subject     string          `json:"subject"`
	Chapter     string          `json:"chapter,omitempty"`
	Topic       string          `json:"topic,omitempty"`
	Language    string          `json:"language,omitempty"`
	Instruction json.RawMessage `json:"instruction,omitempty"`
}

type GenerationResult struct {
	Content      json.RawMessage `json:"content"`
	InputTokens  int             `json:"input_tokens"`
	OutputTokens int             `json:"output_tokens"`
}

type generationClient struct {
	httpClient *http.Client
	log        *logger.Logger
	baseURL    string
	apiKey     string
}

func NewGenerationClient(log *logger.Logger) (GenerationClient, error) {
	serviceLog := log.With("service", "GenerationClient")
	baseURL := utils.GetEnv("GENERATION_SERVICE_URL", "", log)
	if baseURL == "" {
		return nil, fmt.Errorf("GENERATION_SERVICE_URL is not set")
	}
	apiKey := utils.GetEnv("GENERATION_SERVICE_API_KEY", "", nil)
	timeout := utils.GetEnvAsDuration("GENERATION_TIMEOUT", 120*time.Second, log)
	return &generationClient{
		httpClient: &http.Client{Timeout: timeout},
		log:        serviceLog,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}, nil
}

func (c *generationClient) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("generation response read: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("generation service rate limit (429)")
	case resp.StatusCode == http.StatusGatewayTimeout, resp.StatusCode == http.StatusRequestTimeout:
		return nil, fmt.Errorf("generation service timeout (%d)", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("generation service status %d: %s", resp.StatusCode, firstBytes(raw, 120))
	}
	var out GenerationResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("invalid json from generation service: %w", err)
	}
	if len(out.Content) == 0 {
		return nil, fmt.Errorf("generation response missing content")
	}
	return &out, nil
}

func firstBytes(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
