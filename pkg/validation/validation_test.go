package validation

import (
	"strings"
	"testing"
)

func TestValidateChannelName(t *testing.T) {
	tests := []struct {
		name    string
		channel string
		wantErr bool
	}{
		{"simple", "test", false},
		{"with symbols", "live-room_1:main", false},
		{"with space", "my room", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"max length", strings.Repeat("a", 64), false},
		{"non ascii", "غرفة", true},
		{"quote", `room"1`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChannelName(tt.channel)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChannelName(%q) error = %v, wantErr %v", tt.channel, err, tt.wantErr)
			}
		})
	}
}

func TestValidateStreamID(t *testing.T) {
	tests := []struct {
		name     string
		streamID string
		wantErr  bool
	}{
		{"valid", "stream_123", false},
		{"valid dash", "stream-abc", false},
		{"empty", "", true},
		{"invalid chars", "stream@123", true},
		{"slash", "a/b", true},
		{"too long", strings.Repeat("a", 129), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStreamID(tt.streamID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStreamID(%q) error = %v, wantErr %v", tt.streamID, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSubjectID(t *testing.T) {
	if err := ValidateSubjectID("0"); err != nil {
		t.Errorf("expected uid 0 to be valid, got %v", err)
	}
	if err := ValidateSubjectID(""); err == nil {
		t.Error("expected error for empty uid")
	}
	if err := ValidateSubjectID(strings.Repeat("u", 256)); err == nil {
		t.Error("expected error for oversized uid")
	}
}

func TestValidateStreamName(t *testing.T) {
	if err := ValidateStreamName("  Evening reading  "); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStreamName("   "); err == nil {
		t.Error("expected error for blank name")
	}
}
