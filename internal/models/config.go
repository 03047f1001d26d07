package models

// Config holds the application configuration
type Config struct {
	GZCTF         GZCTFConfig    `json:"gzctf"`
	Discord       DiscordConfig  `json:"discord"`
	Database      DatabaseConfig `json:"database"`
	Queue         QueueConfig    `json:"queue"`
	Tracing       TracingConfig  `json:"tracing"`
	Server        ServerConfig   `json:"server"`
	LogLevel      string         `json:"log_level"`
	RetentionDays int            `json:"retention_days"`
}

// GameConfig identifies one monitored game on the GZCTF instance
type GameConfig struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GZCTFConfig holds event-source related configuration
type GZCTFConfig struct {
	BaseURL         string       `json:"base_url"`
	PollIntervalSec int          `json:"poll_interval_sec"`
	TimeoutSec      int          `json:"timeout_sec"`
	Games           []GameConfig `json:"games"`
}

// DiscordConfig holds chat-platform related configuration.
// The bot token is never read from the config file; it comes from the
// DISCORD_BOT_TOKEN environment variable.
type DiscordConfig struct {
	ChannelID      string  `json:"channel_id"`
	APIBaseURL     string  `json:"api_base_url"`
	TimeoutSec     int     `json:"timeout_sec"`
	MessagesPerSec float64 `json:"messages_per_sec"`
	GatewayEnabled bool    `json:"gateway_enabled"`
	GatewayURL     string  `json:"gateway_url"`
}

// DatabaseConfig holds persistent store related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// QueueConfig holds delivery queue related configuration
type QueueConfig struct {
	MaxAttempts      int `json:"max_attempts"`
	InitialBackoffMs int `json:"initial_backoff_ms"`
	MaxBackoffMs     int `json:"max_backoff_ms"`
	TickMs           int `json:"tick_ms"`
	SendTimeoutSec   int `json:"send_timeout_sec"`
}

// TracingConfig holds OpenTelemetry related configuration
type TracingConfig struct {
	Enabled      bool    `json:"enabled"`
	UseStdout    bool    `json:"use_stdout"`
	OTLPEndpoint string  `json:"otlp_endpoint"`
	SampleRate   float64 `json:"sample_rate"`
	ServiceName  string  `json:"service_name"`
	Environment  string  `json:"environment"`
}

// ServerConfig holds status server related configuration
type ServerConfig struct {
	Port int `json:"port"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
