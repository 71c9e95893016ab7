// Package codec converts chat logs and stream-id lists to and from their
// durable JSON form, and derives the flat text view of a message.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"chatstore/internal/model"
)

// ErrInvalidRecord is returned when stored bytes are not a recognisable record.
var ErrInvalidRecord = errors.New("codec: invalid record")

const logFormatVersion = 1

// logEnvelope is the on-disk layout of a chat record.
type logEnvelope struct {
	Version  int               `json:"version"`
	State    model.RecordState `json:"state"`
	Messages []model.Message   `json:"messages"`
}

// EncodeLog serialises a chat log. A missing state is written as active.
func EncodeLog(log model.ChatLog) ([]byte, error) {
	env := logEnvelope{
		Version:  logFormatVersion,
		State:    log.State,
		Messages: log.Messages,
	}
	if env.State == "" {
		env.State = model.StateActive
	}
	if env.Messages == nil {
		env.Messages = []model.Message{}
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode chat log: %w", err)
	}
	return data, nil
}

// DecodeLog parses a chat record. Three layouts are accepted:
//   - the versioned envelope written by EncodeLog,
//   - a bare JSON array of messages (treated as active),
//   - empty content, the truncated form of a cleared record.
func DecodeLog(data []byte) (model.ChatLog, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return model.ChatLog{State: model.StateCleared, Messages: []model.Message{}}, nil
	}
	if !utf8.Valid(data) {
		return model.ChatLog{}, fmt.Errorf("%w: not valid UTF-8", ErrInvalidRecord)
	}

	switch data[0] {
	case '[':
		var msgs []model.Message
		if err := json.Unmarshal(data, &msgs); err != nil {
			return model.ChatLog{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if msgs == nil {
			msgs = []model.Message{}
		}
		return model.ChatLog{State: model.StateActive, Messages: msgs}, nil
	case '{':
		var env logEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return model.ChatLog{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		if env.Version > logFormatVersion {
			return model.ChatLog{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, env.Version)
		}
		switch env.State {
		case "":
			env.State = model.StateActive
		case model.StateActive, model.StateCleared:
		default:
			return model.ChatLog{}, fmt.Errorf("%w: unknown state %q", ErrInvalidRecord, env.State)
		}
		if env.Messages == nil || env.State == model.StateCleared {
			env.Messages = []model.Message{}
		}
		return model.ChatLog{State: env.State, Messages: env.Messages}, nil
	default:
		return model.ChatLog{}, fmt.Errorf("%w: unexpected leading byte %q", ErrInvalidRecord, data[0])
	}
}

// EncodeStreamIDs serialises an ordered stream-id list as a JSON array.
func EncodeStreamIDs(ids []string) ([]byte, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not encode stream ids: %w", err)
	}
	return data, nil
}

// DecodeStreamIDs parses a stream-id list. Empty content is an empty list.
func DecodeStreamIDs(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return []string{}, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Text returns the flat text view of a message. A string body is returned
// as-is; a segmented body contributes its text segments joined in order.
// When the body is empty the UI-style parts list is used instead, so a
// message carrying both renditions is not counted twice.
func Text(m model.Message) string {
	if text := ContentText(m.Content); text != "" {
		return text
	}
	return partsText(m.Parts)
}

// ContentText returns the text view of a single content value.
func ContentText(c model.Content) string {
	if !c.IsStructured() {
		return c.Text
	}
	return partsText(c.Parts)
}

func partsText(parts []model.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Type == model.PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// Ellipsis marks a truncated text view.
const Ellipsis = "..."

// Truncate shortens s to n runes, appending Ellipsis when anything was cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + Ellipsis
}
