package sheet

import "errors"

var (
	// ErrSourceUnreadable means the video container could not be opened.
	ErrSourceUnreadable = errors.New("video source cannot be opened")

	// ErrFrameRateUnavailable means the stream reports a zero frame rate,
	// so a sample interval cannot be derived.
	ErrFrameRateUnavailable = errors.New("video frame rate unavailable")

	// ErrDecode wraps a mid-stream decode failure. The pipeline treats it
	// as fatal: frames sampled before the failure are discarded.
	ErrDecode = errors.New("frame decode failed")

	// ErrNoFramesCaptured means zero frames survived sampling, e.g. the
	// sample interval exceeded the stream length.
	ErrNoFramesCaptured = errors.New("no frames captured")

	// ErrInvalidFrame means the decoder handed over a frame with
	// impossible dimensions or truncated pixel data.
	ErrInvalidFrame = errors.New("invalid source frame")
)
