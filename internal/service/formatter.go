package service

import (
	"encoding/json"
	"fmt"
	"time"

	"ctfcast/pkg/discord"
	"ctfcast/pkg/gzctf"
)

// Embed colors per notice category.
const (
	colorAnnouncement = 0x5865F2
	colorNewChallenge = 0x57F287
	colorNewHint      = 0xFEE75C
	colorFirstBlood   = 0xFFD700
	colorSecondBlood  = 0xC0C0C0
	colorThirdBlood   = 0xCD7F32
)

// Formatter maps a game notice to the message payload the transport
// sends. The queue treats the result as opaque.
type Formatter struct{}

func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format renders one notice as a channel message payload. gameName
// prefixes the title so multi-game setups stay readable in one channel.
func (f *Formatter) Format(gameName string, n gzctf.Notice) (string, error) {
	title, color := presentation(gzctf.NoticeType(n.Type))
	if gameName != "" {
		title = fmt.Sprintf("[%s] %s", gameName, title)
	}

	msg := discord.Message{
		Embeds: []discord.Embed{
			{
				Title:       title,
				Description: n.Content(),
				Color:       color,
				Timestamp:   time.UnixMilli(n.Time).UTC().Format(time.RFC3339),
			},
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}
	return string(payload), nil
}

func presentation(t gzctf.NoticeType) (string, int) {
	switch t {
	case gzctf.NoticeNewChallenge:
		return "New Challenge", colorNewChallenge
	case gzctf.NoticeNewHint:
		return "New Hint", colorNewHint
	case gzctf.NoticeFirstBlood:
		return "First Blood", colorFirstBlood
	case gzctf.NoticeSecondBlood:
		return "Second Blood", colorSecondBlood
	case gzctf.NoticeThirdBlood:
		return "Third Blood", colorThirdBlood
	default:
		return "Announcement", colorAnnouncement
	}
}
