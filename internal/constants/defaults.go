package constants

// Default polling configuration values
const (
	DefaultPollIntervalSec        = 30
	DefaultGZCTFTimeoutSec        = 15
	DefaultFeedBreakerFailures    = 5
	DefaultFeedBreakerCooldownSec = 60
)

// Default delivery queue configuration values
const (
	DefaultMaxAttempts      = 8
	DefaultInitialBackoffMs = 1000
	DefaultMaxBackoffMs     = 300000
	DefaultWorkerTickMs     = 1000
	DefaultSendTimeoutSec   = 10
)

// Default Discord transport values
const (
	DefaultDiscordAPIBaseURL  = "https://discord.com/api/v10"
	DefaultDiscordGatewayURL  = "wss://gateway.discord.gg/?v=10&encoding=json"
	DefaultDiscordTimeoutSec  = 10
	DefaultMessagesPerSec     = 1.0
	DefaultGatewayReconnectMs = 5000
)

// Default timeout and housekeeping values
const (
	DefaultDatabaseRetryAttempts = 3
	DefaultRetryBackoffMs        = 1000
	DefaultDBMaxBackoffMs        = 60000
	DefaultGracefulShutdownSec   = 30
	DefaultRetentionDays         = 30
	DefaultCleanupIntervalHours  = 24
	DefaultServerPort            = 8082
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	ServerErrorChannelSize       = 1
)

// Payload encryption parameters
const (
	EncryptionSalt       = "ctfcast-payload-v1"
	EncryptionKeySize    = 32
	EncryptionNonceSize  = 12
	EncryptionIterations = 100000
)

// Privacy settings
const (
	DefaultTokenMaskLength = 4
)
