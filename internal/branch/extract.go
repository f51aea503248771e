package branch

import (
	"sort"
	"strings"

	"github.com/cheese-zj/forktree/internal/convo"
	"github.com/cheese-zj/forktree/internal/registry"
)

// InternalMessagePrefix starts the context messages forktree injects into a
// fork. They are never shown as user messages.
const InternalMessagePrefix = "[forktree:context]"

// RawMessage is a normalized user message.
type RawMessage struct {
	ID         string
	Role       string
	Text       string
	CreateTime float64 // seconds
}

// TimeSet holds normalized timestamps, in seconds.
type TimeSet map[float64]struct{}

func (s TimeSet) Has(t float64) bool {
	_, ok := s[t]
	return ok
}

// AddMessages records the timestamps of msgs.
func (s TimeSet) AddMessages(msgs []RawMessage) {
	for _, m := range msgs {
		s[m.CreateTime] = struct{}{}
	}
}

// NormalizeTime converts millisecond timestamps to seconds.
func NormalizeTime(t float64) float64 {
	return registry.Seconds(t)
}

// UserMessages returns the user-authored messages of mapping with non-empty
// text, oldest first. Messages whose timestamp is in exclude are dropped; an
// unknown (zero) timestamp never matches exclude.
func UserMessages(mapping map[string]convo.Node, exclude TimeSet) []RawMessage {
	var msgs []RawMessage
	for id, node := range mapping {
		m := node.Message
		if m == nil || m.Author.Role != "user" {
			continue
		}
		text := strings.TrimSpace(m.Text())
		if text == "" || strings.HasPrefix(text, InternalMessagePrefix) {
			continue
		}
		ts := NormalizeTime(m.Time())
		if ts != 0 && exclude.Has(ts) {
			continue
		}
		msgs = append(msgs, RawMessage{
			ID:         id,
			Role:       m.Author.Role,
			Text:       text,
			CreateTime: ts,
		})
	}

	// mapping order is random; the id breaks timestamp ties
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreateTime != msgs[j].CreateTime {
			return msgs[i].CreateTime < msgs[j].CreateTime
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs
}

// FirstUserMessage returns the earliest qualifying user message.
func FirstUserMessage(mapping map[string]convo.Node, exclude TimeSet) (RawMessage, bool) {
	msgs := UserMessages(mapping, exclude)
	if len(msgs) == 0 {
		return RawMessage{}, false
	}
	return msgs[0], true
}
