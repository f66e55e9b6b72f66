package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ExtractionResult holds the counters pulled out of one evidence screenshot
type ExtractionResult struct {
	Views      uint64   `json:"views"`
	Likes      uint64   `json:"likes"`
	Comments   uint64   `json:"comments"`
	Shares     uint64   `json:"shares"`
	Saves      uint64   `json:"saves"`
	Confidence *float64 `json:"confidence,omitempty"`
	Raw        string   `json:"raw,omitempty"`
}

// AIExtractionClient reads performance counters out of evidence screenshots.
// The client makes exactly one attempt per call; retry policy belongs to the
// caller.
type AIExtractionClient interface {
	Extract(ctx context.Context, evidenceRef, platformHint string) (*ExtractionResult, error)
}

// HTTPExtractionClient talks to the screenshot verification service
type HTTPExtractionClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewHTTPExtractionClient creates an extraction client with a hard timeout
func NewHTTPExtractionClient(baseURL, apiKey string, timeout time.Duration) *HTTPExtractionClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPExtractionClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

type extractionRequest struct {
	EvidenceRef  string `json:"evidence_ref"`
	PlatformHint string `json:"platform_hint,omitempty"`
}

type extractionEnvelope struct {
	Data    ExtractionResult `json:"data"`
	Message string           `json:"message"`
	Error   any              `json:"error"`
	Status  int              `json:"status"`
}

// Extract sends one evidence reference for counter extraction
func (c *HTTPExtractionClient) Extract(ctx context.Context, evidenceRef, platformHint string) (*ExtractionResult, error) {
	body := extractionRequest{
		EvidenceRef:  evidenceRef,
		PlatformHint: platformHint,
	}

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	url := c.BaseURL + "/v1/extract"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	var env extractionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, fmt.Errorf("extraction service error: %v", env.Error)
	}

	return &env.Data, nil
}
