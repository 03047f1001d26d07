package discord

// Embed is a rich message block. Only the fields the announcer needs
// are modeled.
type Embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
}

type Footer struct {
	Text string `json:"text"`
}

// Message is the body of a channel message create call. Payload strings
// produced by the formatter unmarshal into this shape.
type Message struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
