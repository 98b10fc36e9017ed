// Package extractor calls the external document-extraction service and
// decodes whatever shape it returns. The payload schema is not fixed;
// downstream code resolves it structurally.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"grnflow/internal/config"
)

type Extractor interface {
	Extract(ctx context.Context, data []byte) (any, error)
}

type Client struct {
	cfg        config.Config
	httpClient *http.Client
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ExtractTimeoutMs) * time.Millisecond},
	}
}

// Extract posts one PDF to the configured agent and returns the decoded
// payload. A single attempt only; the caller owns the retry schedule.
func (c *Client) Extract(ctx context.Context, data []byte) (any, error) {
	if strings.TrimSpace(c.cfg.ExtractAPIKey) == "" {
		return nil, fmt.Errorf("missing EXTRACT_API_KEY")
	}
	if strings.TrimSpace(c.cfg.ExtractAgent) == "" {
		return nil, fmt.Errorf("missing EXTRACT_AGENT")
	}

	endpoint := strings.TrimRight(c.cfg.ExtractBaseURL, "/") +
		"/agents/" + url.PathEscape(c.cfg.ExtractAgent) + "/extract"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ExtractAPIKey)
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Success {
		return nil, fmt.Errorf("extraction unsuccessful: %s", string(apiResp.Errors))
	}

	return DecodePayload(apiResp.Data)
}

// DecodePayload decodes the service's data blob with numbers preserved
// as json.Number so their printed form survives normalization.
func DecodePayload(blob []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
