package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateRoomName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"simple", "lobby", nil},
		{"punctuation", "go-devs_2", nil},
		{"unicode", "café", nil},
		{"max length", strings.Repeat("r", MaxRoomNameLength), nil},
		{"empty", "", ErrRoomNameEmpty},
		{"blank", "   ", ErrRoomNameEmpty},
		{"too long", strings.Repeat("r", MaxRoomNameLength+1), ErrRoomNameTooLong},
		{"space", "two words", ErrRoomNameInvalidChars},
		{"tab", "a\tb", ErrRoomNameInvalidChars},
		{"bell", "a\ab", ErrRoomNameInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateRoomName(tt.input); err != tt.wantErr {
				t.Errorf("ValidateRoomName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSessionStateJSON(t *testing.T) {
	info := SessionInfo{Nickname: "alice", State: StateActive}
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"state":"active"`) {
		t.Errorf("expected state by name, got %s", data)
	}
	if got := SessionState(42).String(); got != "unknown" {
		t.Errorf("SessionState(42).String() = %q", got)
	}
}
