package server

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// Outcomes of room and presence operations. Callers branch on them with
// errors.Is and turn them into protocol replies.
var (
	ErrRoomExists     = errors.New("room already exists")
	ErrRoomNotFound   = errors.New("room does not exist")
	ErrAlreadyMember  = errors.New("already a member of room")
	ErrNotMember      = errors.New("not a member of room")
	ErrNotVisible     = errors.New("nickname is not visible")
	ErrAlreadyVisible = errors.New("nickname is already visible")
)

var (
	// ErrMalformedCommand matches every *MalformedCommandError.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrSessionClosed is returned by Session.Send after teardown.
	ErrSessionClosed = errors.New("session closed")

	// ErrListenerFault is wrapped by the error Serve returns when the
	// listening socket failed and could not be recreated.
	ErrListenerFault = errors.New("listener fault")

	// ErrNotListening is returned by Serve when Listen was not called.
	ErrNotListening = errors.New("server: not listening")
)

// MalformedCommandError reports a command missing a required argument.
type MalformedCommandError struct {
	Verb   string
	Detail string
}

func (e *MalformedCommandError) Error() string {
	return e.Verb + " " + e.Detail
}

func (e *MalformedCommandError) Unwrap() error {
	return ErrMalformedCommand
}

// HandlerFault is a panic recovered from a session goroutine.
type HandlerFault struct {
	Value any
	Stack []byte
}

func (f *HandlerFault) Error() string {
	return fmt.Sprintf("handler fault: %v", f.Value)
}

// exitReason records why a session's command loop ended.
type exitReason int

const (
	exitQuit       exitReason = iota // client sent /quit
	exitPeerClosed                   // clean EOF from the client
	exitPeerReset                    // transport error, connection dropped
	exitClosed                       // closed locally: shutdown or failed delivery
	exitProtocol                     // framing violation (oversized line)
	exitFault                        // recovered panic
)

func (r exitReason) String() string {
	switch r {
	case exitQuit:
		return "quit"
	case exitPeerClosed:
		return "peer_closed"
	case exitPeerReset:
		return "peer_reset"
	case exitClosed:
		return "closed"
	case exitProtocol:
		return "protocol_error"
	case exitFault:
		return "handler_fault"
	default:
		return "unknown"
	}
}

func classifyReadError(err error) exitReason {
	switch {
	case errors.Is(err, io.EOF):
		return exitPeerClosed
	case errors.Is(err, net.ErrClosed):
		return exitClosed
	default:
		return exitPeerReset
	}
}
