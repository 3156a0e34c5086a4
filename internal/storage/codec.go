package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zhouzirui/twinchat/backend/internal/model/chat"
)

// Encode renders a transcript as an indented JSON array. A nil transcript
// encodes as an empty array.
func Encode(messages []chat.Message) ([]byte, error) {
	if messages == nil {
		messages = []chat.Message{}
	}

	data, err := json.MarshalIndent(messages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return data, nil
}

// Decode parses a transcript document. Empty input decodes to an empty
// transcript.
func Decode(data []byte) ([]chat.Message, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []chat.Message{}, nil
	}

	var messages []chat.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	if messages == nil {
		messages = []chat.Message{}
	}
	return messages, nil
}
