// Package barcode adapts an external QR decoder sidecar to the
// port.CornerReader contract. The sidecar receives one page image and
// returns, per corner region, every code string it managed to decode there.
package barcode

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"paperscan/internal/config"
	"paperscan/internal/domain"
	"paperscan/internal/port"
)

// Client calls the decoder sidecar over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a CornerReader backed by the decoder sidecar.
func NewClient(cfg *config.DecoderConfig) port.CornerReader {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type decodeRequest struct {
	Image string `json:"image"` // base64-encoded page bitmap
}

type decodeResponse struct {
	Corners map[string][]string `json:"corners"`
}

func (c *Client) ReadCorners(ctx context.Context, image []byte) (map[domain.Corner][]string, error) {
	reqBody, err := json.Marshal(decodeRequest{
		Image: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("barcode: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/decode", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("barcode: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("barcode: calling decoder: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("barcode: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("barcode: decoder returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded decodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("barcode: unmarshaling response: %w", err)
	}

	readings := make(map[domain.Corner][]string, len(decoded.Corners))
	for label, codes := range decoded.Corners {
		corner := domain.Corner(label)
		switch corner {
		case domain.CornerNE, domain.CornerNW, domain.CornerSW, domain.CornerSE:
			readings[corner] = codes
		default:
			return nil, fmt.Errorf("barcode: decoder returned unknown corner %q", label)
		}
	}
	return readings, nil
}
