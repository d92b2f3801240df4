package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxChannelNameLength = 64
	MaxStreamIDLength    = 128
	MaxSubjectIDLength   = 255
)

var (
	// ChannelNameRegex is the character set accepted by RTC channel names.
	ChannelNameRegex = regexp.MustCompile(`^[a-zA-Z0-9 !#$%&()+\-:;<=.>?@\[\]^_{|}~,]+$`)

	// StreamIDRegex validates stream ID format
	StreamIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateChannelName validates an RTC channel name
func ValidateChannelName(channel string) error {
	if channel == "" {
		return fmt.Errorf("channel name is required")
	}
	if len(channel) > MaxChannelNameLength {
		return fmt.Errorf("channel name is too long (max %d bytes)", MaxChannelNameLength)
	}
	if !ChannelNameRegex.MatchString(channel) {
		return fmt.Errorf("channel name contains invalid characters")
	}
	return nil
}

// ValidateStreamID validates stream ID
func ValidateStreamID(streamID string) error {
	if streamID == "" {
		return fmt.Errorf("stream ID is required")
	}
	if len(streamID) > MaxStreamIDLength {
		return fmt.Errorf("stream ID is too long (max %d characters)", MaxStreamIDLength)
	}
	if !StreamIDRegex.MatchString(streamID) {
		return fmt.Errorf("invalid stream ID format")
	}
	return nil
}

// ValidateSubjectID validates the identity a credential is issued for
func ValidateSubjectID(subject string) error {
	if subject == "" {
		return fmt.Errorf("uid is required")
	}
	if len(subject) > MaxSubjectIDLength {
		return fmt.Errorf("uid is too long (max %d characters)", MaxSubjectIDLength)
	}
	if !utf8.ValidString(subject) {
		return fmt.Errorf("uid contains invalid characters")
	}
	return nil
}

// ValidateStreamName validates stream name
func ValidateStreamName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("stream name is required")
	}
	if len(name) > 100 {
		return fmt.Errorf("stream name is too long (max 100 characters)")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("stream name contains invalid characters")
	}
	return nil
}
