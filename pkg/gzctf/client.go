package gzctf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "ctfcast/internal/errors"
)

// Client reads the game notice feed from a GZCTF instance.
type Client interface {
	FetchNotices(ctx context.Context, gameID int64) ([]Notice, error)
}

type GZCTFClient struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) Client {
	return &GZCTFClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *GZCTFClient) FetchNotices(ctx context.Context, gameID int64) ([]Notice, error) {
	url := fmt.Sprintf("%s/api/game/%d/notices", c.baseURL, gameID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeGZCTFAPI, "failed to fetch notices")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, apperrors.WrapRetryable(err, apperrors.ErrCodeGZCTFAPI, "notice feed unavailable")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeGZCTFAPI, "notice feed rejected request")
	}

	var notices []Notice
	if err := json.NewDecoder(resp.Body).Decode(&notices); err != nil {
		return nil, fmt.Errorf("failed to decode notices: %w", err)
	}

	return notices, nil
}
