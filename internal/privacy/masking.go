package privacy

import (
	"strings"

	"ctfcast/internal/constants"
)

// MaskToken masks a bot token showing only the last few characters.
// Example: "MTIzNDU2Nzg5.abcdef" -> "***************cdef"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	keep := constants.DefaultTokenMaskLength
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-keep) + token[len(token)-keep:]
}

// MaskChannelID masks a Discord channel ID for log output while
// keeping enough suffix to correlate with configuration.
// Example: "123456789012345678" -> "**************5678"
func MaskChannelID(channelID string) string {
	return MaskToken(channelID)
}
