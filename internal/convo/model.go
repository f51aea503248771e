package convo

import (
	"encoding/json"
	"strings"
)

// Conversation is one fetched conversation: its title and raw message map.
type Conversation struct {
	ID      string          `json:"-"`
	Title   string          `json:"title"`
	Mapping map[string]Node `json:"mapping"`
}

// Node is one entry of a conversation mapping.
type Node struct {
	Message  *Message `json:"message"`
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
}

type Author struct {
	Role string `json:"role"`
}

type Message struct {
	Author     Author          `json:"author"`
	Content    json.RawMessage `json:"content"`
	CreateTime *float64        `json:"create_time"`
}

type contentParts struct {
	ContentType string            `json:"content_type"`
	Parts       []json.RawMessage `json:"parts"`
	Text        string            `json:"text"`
}

// Text returns the textual content of the message. String parts are joined
// with newlines; non-string parts (attachments, images) are ignored.
func (m *Message) Text() string {
	if m == nil || len(m.Content) == 0 {
		return ""
	}

	// plain string content
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}

	var c contentParts
	if err := json.Unmarshal(m.Content, &c); err != nil {
		return ""
	}
	if len(c.Parts) == 0 {
		return c.Text
	}

	var parts []string
	for _, raw := range c.Parts {
		var p string
		if err := json.Unmarshal(raw, &p); err == nil && p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// Time returns create_time, or 0 when the message carries none.
func (m *Message) Time() float64 {
	if m == nil || m.CreateTime == nil {
		return 0
	}
	return *m.CreateTime
}

// Parse decodes a conversation document.
func Parse(id string, data []byte) (*Conversation, error) {
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.ID = id
	if c.Mapping == nil {
		c.Mapping = map[string]Node{}
	}
	return &c, nil
}
