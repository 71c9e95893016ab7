package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// PartTypeText is the segment type that contributes to a message's text view.
const PartTypeText = "text"

// Content is a message body: either a single string or an ordered list of
// typed segments. The zero value is an empty string body.
type Content struct {
	Text       string
	Parts      []Part
	structured bool
}

// TextContent returns a plain string body.
func TextContent(s string) Content {
	return Content{Text: s}
}

// PartsContent returns a segmented body.
func PartsContent(parts ...Part) Content {
	if parts == nil {
		parts = []Part{}
	}
	return Content{Parts: parts, structured: true}
}

// IsStructured reports whether the body is a segment list.
func (c Content) IsStructured() bool {
	return c.structured
}

// IsZero lets `omitzero` drop an empty string body.
func (c Content) IsZero() bool {
	return !c.structured && c.Text == ""
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.structured {
		parts := c.Parts
		if parts == nil {
			parts = []Part{}
		}
		return json.Marshal(parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Content{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = TextContent(s)
		return nil
	case data[0] == '[':
		var parts []Part
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		*c = PartsContent(parts...)
		return nil
	default:
		return fmt.Errorf("content must be a string or an array of parts, got %q", truncateRaw(data))
	}
}

// Part is one typed content segment. Fields other than "type" and a string
// "text" are carried in Fields so they survive a read/write cycle unchanged.
type Part struct {
	Type   string
	Text   string
	Fields map[string]json.RawMessage

	// hasType and hasText record keys present on input, even when empty.
	hasType bool
	hasText bool
}

// TextPart returns a text segment.
func TextPart(s string) Part {
	return Part{Type: PartTypeText, Text: s, hasType: true, hasText: true}
}

func (p Part) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Fields)+2)
	for k, v := range p.Fields {
		out[k] = v
	}
	if p.hasType || p.Type != "" {
		typ, err := json.Marshal(p.Type)
		if err != nil {
			return nil, err
		}
		out["type"] = typ
	}
	if _, verbatim := p.Fields["text"]; !verbatim && (p.hasText || p.Text != "") {
		text, err := json.Marshal(p.Text)
		if err != nil {
			return nil, err
		}
		out["text"] = text
	}
	return json.Marshal(out)
}

func (p *Part) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("content part must be an object")
	}

	var part Part
	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &part.Type); err != nil {
			return fmt.Errorf("content part type: %w", err)
		}
		part.hasType = true
		delete(raw, "type")
	}
	if v, ok := raw["text"]; ok {
		// Non-string "text" values, null included, are kept verbatim.
		var text *string
		if err := json.Unmarshal(v, &text); err == nil && text != nil {
			part.Text = *text
			part.hasText = true
			delete(raw, "text")
		}
	}
	if len(raw) > 0 {
		part.Fields = raw
	}
	*p = part
	return nil
}

func truncateRaw(b []byte) string {
	const max = 32
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
