package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ctfcast/internal/constants"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

// Gateway opcodes used for the minimal presence connection.
const (
	opDispatch     = 0
	opHeartbeat    = 1
	opIdentify     = 2
	opHello        = 10
	opHeartbeatACK = 11
)

type gatewayPayload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

type helloData struct {
	HeartbeatIntervalMs int `json:"heartbeat_interval"`
}

// Gateway keeps a websocket session open so the bot shows as online.
// All announcements go over REST; the gateway carries no message
// traffic (identify with zero intents) and simply reconnects on any
// error.
type Gateway struct {
	url     string
	token   string
	logger  *logrus.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

func NewGateway(url, token string, logger *logrus.Logger) *Gateway {
	return &Gateway{
		url:    url,
		token:  token,
		logger: logger,
	}
}

func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running {
		return fmt.Errorf("gateway is already running")
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	g.running = true

	g.wg.Add(1)
	go g.connectLoop()

	g.logger.Info("Gateway presence started")
	return nil
}

func (g *Gateway) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		return
	}

	g.cancel()
	g.wg.Wait()
	g.running = false
	g.logger.Info("Gateway presence stopped")
}

// IsRunning returns whether the gateway loop is active
func (g *Gateway) IsRunning() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.running
}

func (g *Gateway) connectLoop() {
	defer g.wg.Done()

	reconnectDelay := time.Duration(constants.DefaultGatewayReconnectMs) * time.Millisecond

	for {
		if err := g.runSession(); err != nil {
			g.logger.WithError(err).Warn("Gateway session ended; reconnecting")
		}

		select {
		case <-g.ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (g *Gateway) runSession() error {
	dialCtx, cancel := context.WithTimeout(g.ctx, 30*time.Second)
	conn, _, err := websocket.Dial(dialCtx, g.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to dial gateway: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var hello gatewayPayload
	if err := wsjson.Read(g.ctx, conn, &hello); err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello opcode, got %d", hello.Op)
	}

	var heartbeat helloData
	if err := json.Unmarshal(hello.D, &heartbeat); err != nil {
		return fmt.Errorf("failed to parse hello: %w", err)
	}

	identify := map[string]interface{}{
		"op": opIdentify,
		"d": map[string]interface{}{
			"token":   g.token,
			"intents": 0,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "ctfcast",
				"device":  "ctfcast",
			},
		},
	}
	if err := wsjson.Write(g.ctx, conn, identify); err != nil {
		return fmt.Errorf("failed to identify: %w", err)
	}

	g.logger.WithField("heartbeat_ms", heartbeat.HeartbeatIntervalMs).Debug("Gateway session established")

	interval := time.Duration(heartbeat.HeartbeatIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 41 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	readErr := make(chan error, 1)
	go func() {
		for {
			var payload gatewayPayload
			if err := wsjson.Read(g.ctx, conn, &payload); err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-g.ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("gateway read failed: %w", err)
		case <-ticker.C:
			hb := map[string]interface{}{"op": opHeartbeat, "d": nil}
			if err := wsjson.Write(g.ctx, conn, hb); err != nil {
				return fmt.Errorf("failed to send heartbeat: %w", err)
			}
		}
	}
}
