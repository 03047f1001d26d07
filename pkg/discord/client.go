package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "ctfcast/internal/errors"

	"golang.org/x/time/rate"
)

// Client sends one formatted message to a channel. It owns rate-limit
// and protocol details; callers only consume the classified result.
type Client interface {
	SendPayload(ctx context.Context, payload string) error
}

type RESTClient struct {
	baseURL   string
	token     string
	channelID string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewRESTClient(baseURL, token, channelID string, timeout time.Duration, messagesPerSec float64) *RESTClient {
	return &RESTClient{
		baseURL:   baseURL,
		token:     token,
		channelID: channelID,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(messagesPerSec), 1),
	}
}

// SendPayload posts payload, a pre-formatted message JSON, to the
// configured channel. Failures are classified: network errors, 429 and
// 5xx are retryable, any other 4xx is permanent.
func (c *RESTClient) SendPayload(ctx context.Context, payload string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeRateLimit, "rate limiter interrupted")
	}

	url := fmt.Sprintf("%s/channels/%s/messages", c.baseURL, c.channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(payload)))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDiscordAPI, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.WrapRetryable(err, apperrors.ErrCodeDiscordAPI, "failed to send message")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return c.classifyStatus(resp)
}

func (c *RESTClient) classifyStatus(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr apiError
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		detail = fmt.Sprintf("status %d: %s", resp.StatusCode, apiErr.Message)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.WrapRetryable(fmt.Errorf("%s", detail), apperrors.ErrCodeRateLimit, "rate limited").
			WithContext("retry_after", resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 500:
		return apperrors.WrapRetryable(fmt.Errorf("%s", detail), apperrors.ErrCodeDiscordAPI, "server error")
	default:
		// Remaining 4xx: the payload or channel is wrong; a retry
		// cannot succeed.
		return apperrors.Wrap(fmt.Errorf("%s", detail), apperrors.ErrCodeDiscordAPI, "request rejected")
	}
}
