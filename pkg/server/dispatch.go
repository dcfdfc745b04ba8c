package server

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/NicolasHaas/gorelay/pkg/model"
	"github.com/NicolasHaas/gorelay/pkg/protocol"
)

// errQuit ends the command loop after /quit.
var errQuit = errors.New("quit")

// lineReader is the part of protocol.LineReader the dispatcher needs for
// commands that prompt for a second line.
type lineReader interface {
	ReadLine() (string, error)
}

// handleCommand dispatches one input line. It returns errQuit after /quit and
// a read error if a follow-up line could not be read; every other outcome is
// reported to the client and nil is returned.
func (s *Server) handleCommand(sess *Session, lr lineReader, line string) error {
	cmd := protocol.Parse(line)
	switch cmd.Verb {
	case protocol.CmdMembers:
		s.deliver(sess, protocol.MembersList(s.presence.ListMembers()))

	case protocol.CmdBroadcast:
		return s.handleBroadcast(sess, lr)

	case protocol.CmdHide:
		return s.handleHide(sess, lr)

	case protocol.CmdReveal:
		return s.handleReveal(sess, lr)

	case protocol.CmdCreateRoom:
		s.handleCreateRoom(sess, cmd)

	case protocol.CmdJoin:
		s.handleJoin(sess, cmd)

	case protocol.CmdRoom:
		s.handleRoomMessage(sess, cmd)

	case protocol.CmdGetRooms:
		s.deliver(sess, protocol.RoomList(s.rooms.ListRooms()))

	case protocol.CmdLeave:
		s.handleLeave(sess, cmd)

	case protocol.CmdQuit:
		s.deliver(sess, protocol.ReplyBye)
		return errQuit

	case "":
		// blank line

	default:
		slog.Debug("ignoring unknown command", "nick", sess.Nickname(), "verb", cmd.Verb)
	}
	return nil
}

func (s *Server) handleBroadcast(sess *Session, lr lineReader) error {
	s.deliver(sess, protocol.PromptBroadcast)
	line, err := lr.ReadLine()
	if err != nil {
		return err
	}
	body := protocol.Sanitize(line)
	if strings.TrimSpace(body) == "" {
		s.rejectMalformed(sess, &MalformedCommandError{Verb: protocol.CmdBroadcast, Detail: "requires a non-empty message"})
		return nil
	}

	n := s.Broadcast(protocol.Envelope(s.now(), sess.Nickname(), body), sess)
	s.metrics.BroadcastsSent.Add(1)
	slog.Debug("broadcast relayed", "nick", sess.Nickname(), "recipients", n)
	s.deliver(sess, protocol.ReplyBroadcasted)
	return nil
}

func (s *Server) handleHide(sess *Session, lr lineReader) error {
	s.deliver(sess, protocol.PromptHide)
	target, err := readNickname(lr)
	if err != nil {
		return err
	}
	if target == "" {
		s.rejectMalformed(sess, &MalformedCommandError{Verb: protocol.CmdHide, Detail: "requires a nickname"})
		return nil
	}

	if err := s.presence.Hide(target); err != nil {
		s.deliver(sess, protocol.NotVisible(target))
		return nil
	}
	s.sessions.SetVisible(target, false)
	slog.Info("nickname hidden", "target", target, "by", sess.Nickname())
	s.deliver(sess, protocol.ReplyHidden)
	return nil
}

func (s *Server) handleReveal(sess *Session, lr lineReader) error {
	s.deliver(sess, protocol.PromptReveal)
	target, err := readNickname(lr)
	if err != nil {
		return err
	}
	if target == "" {
		s.rejectMalformed(sess, &MalformedCommandError{Verb: protocol.CmdReveal, Detail: "requires a nickname"})
		return nil
	}

	if err := s.presence.Reveal(target); err != nil {
		s.deliver(sess, protocol.AlreadyVisible(target))
		return nil
	}
	s.sessions.SetVisible(target, true)
	slog.Info("nickname revealed", "target", target, "by", sess.Nickname())
	s.deliver(sess, protocol.ReplyRevealed)
	return nil
}

func (s *Server) handleCreateRoom(sess *Session, cmd protocol.Command) {
	name, err := roomArg(cmd)
	if err != nil {
		s.rejectMalformed(sess, err)
		return
	}
	switch err := s.CreateRoom(name, sess); {
	case err == nil:
		s.deliver(sess, protocol.RoomCreated(name))
	case errors.Is(err, ErrRoomExists):
		s.deliver(sess, protocol.RoomExists(name))
	default:
		slog.Error("create room failed", "room", name, "err", err)
	}
}

func (s *Server) handleJoin(sess *Session, cmd protocol.Command) {
	name, err := roomArg(cmd)
	if err != nil {
		s.rejectMalformed(sess, err)
		return
	}
	switch err := s.rooms.Join(name, sess); {
	case err == nil:
		slog.Debug("room joined", "room", name, "nick", sess.Nickname())
		s.deliver(sess, protocol.RoomJoined(name))
	case errors.Is(err, ErrAlreadyMember):
		s.deliver(sess, protocol.AlreadyMember(name))
	default:
		s.deliver(sess, protocol.RoomNotFound(name))
	}
}

func (s *Server) handleRoomMessage(sess *Session, cmd protocol.Command) {
	name, err := roomArg(cmd)
	if err != nil {
		s.rejectMalformed(sess, err)
		return
	}
	body := protocol.Sanitize(cmd.Text())
	if strings.TrimSpace(body) == "" {
		s.rejectMalformed(sess, &MalformedCommandError{Verb: protocol.CmdRoom, Detail: "requires a room name and a message"})
		return
	}
	if _, err := s.SendToRoom(name, sess, body); err != nil {
		s.deliver(sess, protocol.RoomNotFound(name))
	}
}

func (s *Server) handleLeave(sess *Session, cmd protocol.Command) {
	name, err := roomArg(cmd)
	if err != nil {
		s.rejectMalformed(sess, err)
		return
	}
	switch err := s.rooms.Leave(name, sess); {
	case err == nil:
		slog.Debug("room left", "room", name, "nick", sess.Nickname())
		s.deliver(sess, protocol.RoomLeft(name))
	case errors.Is(err, ErrNotMember):
		s.deliver(sess, protocol.NotMember(name))
	default:
		s.deliver(sess, protocol.RoomNotFound(name))
	}
}

func (s *Server) rejectMalformed(sess *Session, err error) {
	s.metrics.MalformedCommands.Add(1)
	slog.Debug("malformed command", "nick", sess.Nickname(), "err", err)
	s.deliver(sess, protocol.Malformed(err.Error()))
}

// roomArg extracts and validates the room name argument of cmd.
func roomArg(cmd protocol.Command) (string, error) {
	name := cmd.Arg()
	if name == "" {
		return "", &MalformedCommandError{Verb: cmd.Verb, Detail: "requires a room name"}
	}
	if err := model.ValidateRoomName(name); err != nil {
		return "", &MalformedCommandError{Verb: cmd.Verb, Detail: err.Error()}
	}
	return name, nil
}

func readNickname(lr lineReader) (string, error) {
	line, err := lr.ReadLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(protocol.Sanitize(line)), nil
}
