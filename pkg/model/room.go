package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const MaxRoomNameLength = 64

var ErrRoomNameEmpty = errors.New("room name must not be empty")
var ErrRoomNameTooLong = fmt.Errorf("room name must not exceed %d characters", MaxRoomNameLength)
var ErrRoomNameInvalidChars = errors.New("room name must not contain spaces or control characters")

// Room is the persistent description of a chat room. Membership is runtime
// state and lives in the server's room registry, not here.
type Room struct {
	Name      string    `json:"name" yaml:"name"`
	CreatedBy string    `json:"created_by,omitempty" yaml:"created_by,omitempty"` // empty for server-provisioned rooms
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// ValidateRoomName checks that name is a single non-empty token of at most
// MaxRoomNameLength runes.
func ValidateRoomName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrRoomNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return ErrRoomNameInvalidChars
		}
	}
	return nil
}
