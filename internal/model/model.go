package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Well-known message roles. Other roles are stored unchanged.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message stores a single message in a chat.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Role      string          `json:"role" validate:"required,max=32"`
	Content   Content         `json:"content,omitzero"`
	Parts     []Part          `json:"parts,omitempty"`    // UI-style segment list, kept alongside Content.
	Metadata  json.RawMessage `json:"metadata,omitempty"` // Opaque to the store.
	CreatedAt *time.Time      `json:"createdAt,omitempty"`

	// Extra holds every other top-level key (toolInvocations, annotations,
	// experimental_attachments, ...) so it is written back unchanged.
	Extra map[string]json.RawMessage `json:"-" swaggerignore:"true"`
}

// messageFields has Message's layout without its JSON methods.
type messageFields Message

var messageKeys = []string{"id", "role", "content", "parts", "metadata", "createdAt"}

func isMessageKey(k string) bool {
	for _, known := range messageKeys {
		// encoding/json matches struct fields case-insensitively.
		if strings.EqualFold(k, known) {
			return true
		}
	}
	return false
}

func (m Message) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(messageFields(m))
	if err != nil || len(m.Extra) == 0 {
		return known, err
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(known, &out); err != nil {
		return nil, err
	}
	for k, v := range m.Extra {
		if !isMessageKey(k) {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var fields messageFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if isMessageKey(k) {
			delete(raw, k)
		}
	}
	fields.Extra = nil
	if len(raw) > 0 {
		fields.Extra = raw
	}
	*m = Message(fields)
	return nil
}

// RecordState tags a persisted chat log as live or soft-deleted.
type RecordState string

const (
	StateActive  RecordState = "active"
	StateCleared RecordState = "cleared"
)

// ChatLog is the persisted form of one chat: its state and ordered messages.
type ChatLog struct {
	State    RecordState
	Messages []Message
}

// ChatSummary is the derived, read-only view of a chat used by the sidebar.
type ChatSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	LastMessage  string    `json:"lastMessage"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"messageCount"`
}

// StreamChunk is a single event of a generation stream as seen by clients.
type StreamChunk struct {
	StreamID string `json:"streamId,omitempty"`
	Content  string `json:"content"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}
