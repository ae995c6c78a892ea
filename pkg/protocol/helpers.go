package protocol

import "encoding/json"

// NewAudioPlayMessage creates an audio.play message
func NewAudioPlayMessage(id, url string) (*Message, error) {
	return NewMessage(TypeAudioPlay, AudioPlayData{ID: id, URL: url})
}

// NewAudioStopMessage creates an audio.stop message
func NewAudioStopMessage(id string) (*Message, error) {
	return NewMessage(TypeAudioStop, AudioStopData{ID: id})
}

// NewPongMessage creates a pong reply
func NewPongMessage() (*Message, error) {
	return NewMessage(TypePong, nil)
}

// StringOrEmpty decodes raw as a JSON string. Anything else, including
// null, numbers and objects, yields the empty string.
func StringOrEmpty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
