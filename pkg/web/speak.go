package web

import (
	"encoding/json"

	"github.com/studybuddy/presence/pkg/protocol"
)

// parseSpeak extracts text and audio URL from a request body. Anything
// that is not a JSON object with string fields clamps to empty values.
func parseSpeak(body []byte) (text, audioURL string) {
	var req protocol.SpeakData
	if err := json.Unmarshal(body, &req); err != nil {
		return "", ""
	}
	return protocol.StringOrEmpty(req.Text), protocol.StringOrEmpty(req.AudioURL)
}
