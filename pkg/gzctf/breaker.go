package gzctf

import (
	"context"

	"ctfcast/pkg/circuitbreaker"
)

// GuardedClient wraps a Client with a circuit breaker so a downed
// scoring platform fails poll cycles fast instead of stacking up
// request timeouts.
type GuardedClient struct {
	client  Client
	breaker *circuitbreaker.CircuitBreaker
}

func NewGuardedClient(client Client, breaker *circuitbreaker.CircuitBreaker) *GuardedClient {
	return &GuardedClient{client: client, breaker: breaker}
}

func (g *GuardedClient) FetchNotices(ctx context.Context, gameID int64) ([]Notice, error) {
	var notices []Notice
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		notices, fetchErr = g.client.FetchNotices(ctx, gameID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return notices, nil
}
