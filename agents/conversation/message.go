/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package conversation

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content []Part `json:"content"`
}

// New builds a message with the given role and parts.
func New(role Role, parts ...Part) Message {
	return Message{Role: role, Content: parts}
}

// System builds a system message holding a single text part.
func System(text string) Message {
	return New(RoleSystem, Text(text))
}

// User builds a user message from the given parts.
func User(parts ...Part) Message {
	return New(RoleUser, parts...)
}

// Assistant builds an assistant message from the given parts.
func Assistant(parts ...Part) Message {
	return New(RoleAssistant, parts...)
}

// FirstText returns the text of the first text part.
// The boolean is false when the message holds no text part.
func (m Message) FirstText() (string, bool) {
	for _, p := range m.Content {
		if t, ok := p.(TextPart); ok {
			return t.Text, true
		}
	}
	return "", false
}

// Clone returns a copy of m whose content slice does not alias m's.
func (m Message) Clone() Message {
	return Message{Role: m.Role, Content: slices.Clone(m.Content)}
}

// UnmarshalJSON decodes a message, accepting either a list of parts or a
// plain string as content. A string becomes a single text part.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Role.Valid() {
		return fmt.Errorf("unknown role %q", raw.Role)
	}
	m.Role = raw.Role
	m.Content = nil

	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw.Content, &text); err == nil {
		m.Content = []Part{Text(text)}
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw.Content, &parts); err != nil {
		return fmt.Errorf("decoding content: %w", err)
	}
	m.Content = make([]Part, 0, len(parts))
	for i, rp := range parts {
		p, err := decodePart(rp)
		if err != nil {
			return fmt.Errorf("content[%d]: %w", i, err)
		}
		m.Content = append(m.Content, p)
	}
	return nil
}

// Clone returns a deep copy of msgs suitable for extending without touching
// the caller's slice.
func Clone(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
