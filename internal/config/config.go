package config

import (
	"encoding/json"
	"fmt"
	"os"

	"ctfcast/internal/constants"
	"ctfcast/internal/models"
	"ctfcast/internal/security"
)

var (
	ErrMissingGZCTFURL  = models.ConfigError{Message: "missing GZCTF base URL"}
	ErrMissingChannelID = models.ConfigError{Message: "missing Discord channel ID"}
	ErrMissingDBPath    = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.GZCTF.BaseURL == "" {
		return ErrMissingGZCTFURL
	}
	if c.Discord.ChannelID == "" {
		return ErrMissingChannelID
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if len(c.GZCTF.Games) == 0 {
		return models.ConfigError{Message: "games array is required and must contain at least one game"}
	}

	gameIDs := make(map[int64]bool)
	for i, game := range c.GZCTF.Games {
		if game.ID <= 0 {
			return models.ConfigError{Message: fmt.Sprintf("invalid game ID in game %d", i)}
		}
		if gameIDs[game.ID] {
			return models.ConfigError{Message: fmt.Sprintf("duplicate game ID: %d", game.ID)}
		}
		gameIDs[game.ID] = true
	}

	if c.GZCTF.PollIntervalSec <= 0 {
		c.GZCTF.PollIntervalSec = constants.DefaultPollIntervalSec
	}
	if c.GZCTF.TimeoutSec <= 0 {
		c.GZCTF.TimeoutSec = constants.DefaultGZCTFTimeoutSec
	}

	if c.Discord.APIBaseURL == "" {
		c.Discord.APIBaseURL = constants.DefaultDiscordAPIBaseURL
	}
	if c.Discord.GatewayURL == "" {
		c.Discord.GatewayURL = constants.DefaultDiscordGatewayURL
	}
	if c.Discord.TimeoutSec <= 0 {
		c.Discord.TimeoutSec = constants.DefaultSendTimeoutSec
	}
	if c.Discord.MessagesPerSec <= 0 {
		c.Discord.MessagesPerSec = constants.DefaultMessagesPerSec
	}

	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = constants.DefaultMaxAttempts
	}
	if c.Queue.InitialBackoffMs <= 0 {
		c.Queue.InitialBackoffMs = constants.DefaultInitialBackoffMs
	}
	if c.Queue.MaxBackoffMs <= 0 {
		c.Queue.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Queue.MaxBackoffMs < c.Queue.InitialBackoffMs {
		return models.ConfigError{Message: "queue max backoff must not be smaller than initial backoff"}
	}
	if c.Queue.TickMs <= 0 {
		c.Queue.TickMs = constants.DefaultWorkerTickMs
	}
	if c.Queue.SendTimeoutSec <= 0 {
		c.Queue.SendTimeoutSec = constants.DefaultSendTimeoutSec
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("CTFCAST_GZCTF_URL"); url != "" {
		c.GZCTF.BaseURL = url
	}
	if channel := os.Getenv("CTFCAST_DISCORD_CHANNEL_ID"); channel != "" {
		c.Discord.ChannelID = channel
	}
	if path := os.Getenv("CTFCAST_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if level := os.Getenv("CTFCAST_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}
