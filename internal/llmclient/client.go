// File: internal/llmclient/client.go
// Description: Minimal HTTP client for the Gemini generateContent API. The
// pipeline treats every call as opaque and single-shot; retries, if ever
// desired, belong to a calling layer.
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crxtriage/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client talks to a Gemini-compatible model endpoint.
type Client struct {
	cfg        config.LLMConfig
	logger     *zap.Logger
	httpClient *http.Client
}

// NewClient creates a Client. A nil httpClient gets a default client with the
// configured timeout.
func NewClient(cfg config.LLMConfig, logger *zap.Logger, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key is not configured (CRXTRIAGE_LLM_API_KEY)")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:        cfg,
		logger:     logger.Named("llm"),
		httpClient: httpClient,
	}, nil
}

// -- Gemini API request/response structures (internal to this file) --

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// generateJSON sends one prompt and returns the raw JSON text the model
// produced. The response MIME type is pinned to JSON so the decode contract
// stays strict.
func (c *Client) generateJSON(ctx context.Context, system, prompt string) ([]byte, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}, Role: "user"}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      c.cfg.Temperature,
			MaxOutputTokens:  c.cfg.MaxTokens,
			ResponseMimeType: "application/json",
		},
	}
	if system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling model request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.cfg.Endpoint, c.cfg.Model, c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model endpoint: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading model response: %w", err)
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("model endpoint error %d: %s", decoded.Error.Code, decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model endpoint returned status %s", resp.Status)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("model response contained no candidates")
	}

	c.logger.Debug("Model call completed",
		zap.String("model", c.cfg.Model),
		zap.String("finish_reason", decoded.Candidates[0].FinishReason),
	)
	return []byte(decoded.Candidates[0].Content.Parts[0].Text), nil
}
