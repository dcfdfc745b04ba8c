package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

// Fixed replies and prompts.
const (
	ReplyConnected   = "Connected to the server"
	ReplyBye         = "Server: Bye"
	ReplyBroadcasted = "Message broadcasted!"
	ReplyHidden      = "You are now invisible!"
	ReplyRevealed    = "You are now visible to other users!"
	ReplyNoRooms     = "No rooms available"
	ReplyNoMembers   = "No visible members"
	ReplyLineTooLong = "Server: line too long, closing connection"
	ReplyInternal    = "Server: internal error, closing connection"

	PromptBroadcast = "Enter your message: "
	PromptHide      = "Enter nickname to hide"
	PromptReveal    = "Enter nickname to show"
)

// envelopeTimeLayout matches the clock shown in front of every relayed message.
const envelopeTimeLayout = "15:04:05"

func OnlineNotice(nick string) string  { return fmt.Sprintf("Server: %s is online!", nick) }
func OfflineNotice(nick string) string { return fmt.Sprintf("Server: %s is offline", nick) }

func RoomCreated(name string) string   { return fmt.Sprintf("Room %s created successfully!", name) }
func RoomExists(name string) string    { return fmt.Sprintf("Room %s already exists", name) }
func RoomJoined(name string) string    { return fmt.Sprintf("Joined room %s successfully!", name) }
func RoomNotFound(name string) string  { return fmt.Sprintf("Room %s does not exist!", name) }
func RoomLeft(name string) string      { return fmt.Sprintf("Left room %s", name) }
func AlreadyMember(name string) string { return fmt.Sprintf("You are already a member of this room %s.", name) }
func NotMember(name string) string     { return fmt.Sprintf("You are not a member of room %s", name) }

func NotVisible(nick string) string     { return fmt.Sprintf("Nickname %s is not visible", nick) }
func AlreadyVisible(nick string) string { return fmt.Sprintf("Nickname %s is already visible", nick) }

// Malformed reports a command that is missing a required argument.
func Malformed(detail string) string { return "Malformed command: " + detail }

// MembersList renders the presence listing, one "i.nickname" line per entry.
func MembersList(members []model.Member) string {
	if len(members) == 0 {
		return ReplyNoMembers
	}
	var b strings.Builder
	b.WriteString("Active chat members are:")
	for _, m := range members {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(m.Index))
		b.WriteString(".")
		b.WriteString(m.Nickname)
	}
	return b.String()
}

// RoomList renders room names on one line, separated by two spaces.
func RoomList(names []string) string {
	if len(names) == 0 {
		return ReplyNoRooms
	}
	return "Rooms:\n" + strings.Join(names, "  ")
}

// Envelope formats a globally broadcast message.
func Envelope(t time.Time, nick, body string) string {
	return fmt.Sprintf("[%s] %s: %s", t.Format(envelopeTimeLayout), nick, body)
}

// RoomEnvelope formats a message delivered inside a room.
func RoomEnvelope(t time.Time, room, nick, body string) string {
	return fmt.Sprintf("[%s] [%s] %s: %s", t.Format(envelopeTimeLayout), room, nick, body)
}
