package model

import (
	"errors"
	"fmt"
)

// APIError is the unified user-facing error format.
// It carries a cause category and a suggested action for the UI.
type APIError struct {
	Code     string // error code
	Message  string // error message
	Category string // category: input, channel, data, session, system
	Action   string // what the user can do about it
	Err      error  // underlying cause, never shown to the user
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Predefined error codes.
const (
	ErrCodeMissingCredential = "MISSING_CREDENTIAL"
	ErrCodeMissingChannelID  = "MISSING_CHANNEL_ID"
	ErrCodeChannelNotFound   = "CHANNEL_NOT_FOUND"
	ErrCodeInvalidDuration   = "INVALID_DURATION"
	ErrCodeInvalidTimestamp  = "INVALID_TIMESTAMP"
	ErrCodeInvalidCount      = "INVALID_COUNT"
	ErrCodeFetchFailed       = "FETCH_FAILED"
	ErrCodeProtocolError     = "PROTOCOL_ERROR"
	ErrCodeSessionNotFound   = "SESSION_NOT_FOUND"
	ErrCodeInvalidWindow     = "INVALID_WINDOW"
)

// Sentinel errors. The APIError constructors below wrap them so callers can
// branch with errors.Is regardless of the presentation wrapper.
var (
	ErrMissingCredential = errors.New("api credential is required")
	ErrMissingChannelID  = errors.New("channel id is required")
	ErrChannelNotFound   = errors.New("channel not found")
)

// NewMissingCredentialError is returned when no API key was supplied.
func NewMissingCredentialError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingCredential,
		Message:  "Please enter your YouTube API key.",
		Category: "input",
		Action:   "Create an API key in the Google Cloud console and enable the YouTube Data API v3.",
		Err:      ErrMissingCredential,
	}
}

// NewMissingChannelIDError is returned when no channel id was supplied.
func NewMissingChannelIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingChannelID,
		Message:  "Please enter your YouTube channel ID.",
		Category: "input",
		Action:   "The channel ID starts with UC and is shown in the channel's advanced settings.",
		Err:      ErrMissingChannelID,
	}
}

// NewChannelNotFoundError is returned when the channel lookup yields no rows.
func NewChannelNotFoundError(channelID string) *APIError {
	return &APIError{
		Code:     ErrCodeChannelNotFound,
		Message:  fmt.Sprintf("No channel found for id: %s", channelID),
		Category: "channel",
		Action:   "Check the channel ID and try again.",
		Err:      ErrChannelNotFound,
	}
}

// NewInvalidDataError is returned when a field in the API response cannot be derived.
// code is one of ErrCodeInvalidDuration, ErrCodeInvalidTimestamp or ErrCodeInvalidCount.
func NewInvalidDataError(code, videoID string, err error) *APIError {
	return &APIError{
		Code:     code,
		Message:  fmt.Sprintf("Malformed data for video %s: %v", videoID, err),
		Category: "data",
		Action:   "The analysis was aborted. Try again later or report the video ID.",
		Err:      err,
	}
}

// NewFetchFailedError is returned when a remote API call fails.
func NewFetchFailedError(operation string, status int, reason string, err error) *APIError {
	msg := fmt.Sprintf("YouTube API call %s failed", operation)
	if status != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, status)
	}
	if reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, reason)
	}
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  msg,
		Category: "system",
		Action:   "Check the API key and quota, then try again.",
		Err:      err,
	}
}

// NewProtocolError is returned when the remote API violates the paging protocol.
func NewProtocolError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeProtocolError,
		Message:  fmt.Sprintf("Unexpected response from the YouTube API: %v", err),
		Category: "system",
		Action:   "Try again later.",
		Err:      err,
	}
}

// NewSessionNotFoundError is returned for an unknown or expired dashboard session.
func NewSessionNotFoundError(sessionID string) *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  fmt.Sprintf("Session not found or expired: %s", sessionID),
		Category: "session",
		Action:   "Run the analysis again.",
	}
}

// NewInvalidWindowError is returned when the date-range selection is invalid.
func NewInvalidWindowError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWindow,
		Message:  fmt.Sprintf("Invalid video range: %s", reason),
		Category: "input",
		Action:   "Pick a start video that is not after the end video.",
	}
}
