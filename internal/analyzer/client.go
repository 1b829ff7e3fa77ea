package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"noticeboard/internal/model"
)

const responseBodyLimit = 1 << 20

// Client calls a remote analyzer. It sends no credentials and never retries.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient targets baseURL + "/api/notices". A zero timeout leaves requests
// bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/api/notices",
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Analyze(ctx context.Context, req Request) (model.Analysis, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("encode analyzer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Analysis{}, fmt.Errorf("build analyzer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.Analysis{}, fmt.Errorf("call analyzer: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return model.Analysis{}, fmt.Errorf("read analyzer response: %w", err)
	}

	var decoded Response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return model.Analysis{}, &FailureError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("analyzer returned status %d", resp.StatusCode),
		}
	}
	if !decoded.Success || decoded.Analysis == nil {
		c.logger.Warn("analyzer rejected notice",
			zap.Int("status", resp.StatusCode),
			zap.String("error", decoded.Error),
		)
		return model.Analysis{}, &FailureError{StatusCode: resp.StatusCode, Message: decoded.Error}
	}

	analysis := *decoded.Analysis
	if analysis.Tags == nil {
		analysis.Tags = []string{}
	}
	return analysis, nil
}
