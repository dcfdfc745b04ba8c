package protocol

import "strings"

// Command verbs. Matching is exact and case-sensitive.
const (
	CmdMembers    = "/members"
	CmdBroadcast  = "/broadcast"
	CmdHide       = "/hide"
	CmdReveal     = "/reveal"
	CmdCreateRoom = "/create_room"
	CmdJoin       = "/join"
	CmdRoom       = "/room"
	CmdGetRooms   = "/get_rooms"
	CmdLeave      = "/leave"
	CmdQuit       = "/quit"
)

var knownVerbs = map[string]bool{
	CmdMembers:    true,
	CmdBroadcast:  true,
	CmdHide:       true,
	CmdReveal:     true,
	CmdCreateRoom: true,
	CmdJoin:       true,
	CmdRoom:       true,
	CmdGetRooms:   true,
	CmdLeave:      true,
	CmdQuit:       true,
}

// Command is one parsed input line: the verb and everything after it.
type Command struct {
	Verb string
	Rest string // text after the verb and its separating space, untrimmed
}

// Parse splits line at the first space into verb and rest.
// Trailing whitespace is ignored; an empty line yields an empty Verb.
func Parse(line string) Command {
	line = strings.TrimRight(line, " \t")
	verb, rest, _ := strings.Cut(line, " ")
	return Command{Verb: verb, Rest: rest}
}

// Known reports whether the verb is one the server handles.
func (c Command) Known() bool {
	return knownVerbs[c.Verb]
}

// Arg returns the first space-separated argument, or "" if there is none.
func (c Command) Arg() string {
	fields := strings.Fields(c.Rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Text returns everything after the first argument, keeping inner spacing.
// For "/room lobby hi  bob" it returns "hi  bob".
func (c Command) Text() string {
	rest := strings.TrimLeft(c.Rest, " ")
	_, text, ok := strings.Cut(rest, " ")
	if !ok {
		return ""
	}
	return text
}
