package audio

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrNoOutput is returned when no presenter is available to play audio.
	ErrNoOutput = errors.New("audio: no output attached")

	// ErrInvalidURL is returned for empty or non-http(s) audio URLs.
	ErrInvalidURL = errors.New("audio: invalid url")

	// ErrPlaybackFailed is returned by players that could not start playback.
	ErrPlaybackFailed = errors.New("audio: playback failed")
)
