// Package protocol defines the WebSocket messages exchanged between the
// presence engine and the browser presenter.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Presenter → engine
	TypePointerMove     MessageType = "pointer.move"     // Global pointer position
	TypePointerOver     MessageType = "pointer.over"     // Pointer entered an element
	TypeCharacterRegion MessageType = "character.region" // Character viewport bounds changed
	TypeSpeak           MessageType = "speak"            // Narration request
	TypeAudioEnded      MessageType = "audio.ended"      // Playback finished naturally
	TypeAudioFailed     MessageType = "audio.failed"     // Playback could not start

	// Engine → presenter
	TypeBubble    MessageType = "bubble"     // Speech bubble view
	TypeCursor    MessageType = "cursor"     // Cursor overlay frame
	TypeCharacter MessageType = "character"  // Character frame
	TypeAudioPlay MessageType = "audio.play" // Start playback
	TypeAudioStop MessageType = "audio.stop" // Stop and release playback

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Presenter → Engine
// =============================================================================

// PointerMoveData is a pointer sample in viewport coordinates
type PointerMoveData struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointerOverData describes the hovered element as a tag path from the
// target up to the document root, e.g. ["span", "a", "nav", "body"].
// A tag may carry a role: "div[role=button]".
type PointerOverData struct {
	Path []string `json:"path"`
}

// RegionData is the character viewport in page coordinates
type RegionData struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SpeakData is a narration request. Text is kept raw so that a
// non-string value can be clamped instead of failing the whole message.
type SpeakData struct {
	Text     json.RawMessage `json:"text"`
	AudioURL json.RawMessage `json:"audio_url,omitempty"`
}

// AudioEventData reports on a playback handle
type AudioEventData struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// =============================================================================
// Engine → Presenter
// =============================================================================

// AudioPlayData asks the presenter to play url under handle id
type AudioPlayData struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// AudioStopData asks the presenter to stop and release handle id
type AudioStopData struct {
	ID string `json:"id"`
}
