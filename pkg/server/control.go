package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"runtime/debug"
	"strings"
	"time"

	"github.com/NicolasHaas/gorelay/pkg/protocol"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second

	minRelistenBackoff = 50 * time.Millisecond
	maxRelistenBackoff = 2 * time.Second
)

// Listen provisions rooms from the catalog and rooms file, then binds the
// chat listener.
func (s *Server) Listen() error {
	s.provisionRooms()

	ln, err := s.listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = ln.Close()
		return fmt.Errorf("server: listen: %w", net.ErrClosed)
	}
	s.listener = ln
	s.mu.Unlock()

	slog.Info("chat relay listening", "addr", ln.Addr().String())
	return nil
}

// Serve runs the accept loop until Shutdown, then returns nil. It returns an
// error wrapping ErrListenerFault if the listener failed and could not be
// recreated within Config.ListenerRetries attempts.
func (s *Server) Serve() error {
	var backoff time.Duration
	for {
		ln := s.currentListener()
		if ln == nil {
			return ErrNotListening
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff, minAcceptBackoff, maxAcceptBackoff)
				slog.Warn("accept error, retrying", "err", err, "delay", backoff)
				if !s.sleep(backoff) {
					return nil
				}
				continue
			}

			slog.Error("listener fault, recreating listener", "err", err)
			s.metrics.ListenerRestarts.Add(1)
			if rerr := s.relisten(ln); rerr != nil {
				return fmt.Errorf("server: %w: %w", ErrListenerFault, rerr)
			}
			continue
		}
		backoff = 0

		if !s.trackConn(conn) {
			_ = conn.Close()
			continue
		}
		go s.handleConn(conn)
	}
}

// relisten replaces a failed listener, binding the address it had.
func (s *Server) relisten(failed net.Listener) error {
	addr := s.cfg.Address()
	if a := failed.Addr(); a != nil {
		addr = a.String()
	}
	_ = failed.Close()

	var err error
	delay := minRelistenBackoff
	for attempt := 1; attempt <= s.cfg.ListenerRetries; attempt++ {
		var ln net.Listener
		ln, err = s.listen("tcp", addr)
		if err == nil {
			s.mu.Lock()
			if s.closing {
				s.mu.Unlock()
				_ = ln.Close()
				return nil
			}
			s.listener = ln
			s.mu.Unlock()
			slog.Info("listener recreated", "addr", ln.Addr().String(), "attempt", attempt)
			return nil
		}
		slog.Warn("relisten failed", "addr", addr, "attempt", attempt, "err", err)
		if attempt == s.cfg.ListenerRetries {
			break
		}
		if !s.sleep(delay) {
			return nil
		}
		delay = min(delay*2, maxRelistenBackoff)
	}
	if err == nil {
		err = errors.New("no retries configured")
	}
	return err
}

func (s *Server) currentListener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// sleep waits for d and reports false if the server shut down first.
func (s *Server) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(cur, lo, hi time.Duration) time.Duration {
	if cur == 0 {
		return lo
	}
	return min(cur*2, hi)
}

// trackConn records an accepted connection so Shutdown can close it.
// It returns false once shutdown has begun.
func (s *Server) trackConn(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) releaseConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// handleConn runs one client connection from handshake to teardown. The
// connection must have been tracked with trackConn.
func (s *Server) handleConn(conn net.Conn) {
	defer s.releaseConn(conn)

	s.metrics.TotalConnections.Add(1)
	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)

	sess := newSession(conn, s.cfg.WriteTimeout)
	reader := protocol.NewLineReader(conn, s.cfg.MaxLineLength)
	slog.Debug("new connection", "remote", sess.remoteAddr, "session", sess.ID())

	nick, err := s.handshake(conn, reader)
	if err != nil {
		s.metrics.HandshakeFailures.Add(1)
		slog.Debug("handshake failed", "remote", sess.remoteAddr, "err", err)
		_ = sess.Close()
		return
	}
	sess.activate(nick)

	if !s.register(sess) {
		_ = sess.Close()
		return
	}

	reason := s.runSession(sess, reader)
	s.teardown(sess, reason)
}

// handshake reads the nickname line within Config.HandshakeTimeout.
func (s *Server) handshake(conn net.Conn, reader lineReader) (string, error) {
	if s.cfg.HandshakeTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	}
	line, err := reader.ReadLine()
	if err != nil {
		return "", err
	}
	_ = conn.SetReadDeadline(time.Time{}) // clear deadline

	return strings.TrimSpace(protocol.Sanitize(line)), nil
}

// register publishes a session that completed its handshake: it becomes
// visible to /members and broadcasts, gets its confirmation, and everyone
// else is told it came online.
func (s *Server) register(sess *Session) bool {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return false
	}
	s.sessions.Add(sess)
	s.mu.Unlock()

	s.presence.add(sess.Nickname())
	slog.Info("client connected", "nick", sess.Nickname(), "session", sess.ID(), "remote", sess.remoteAddr)

	s.deliver(sess, protocol.ReplyConnected)
	s.Broadcast(protocol.OnlineNotice(sess.Nickname()), sess)
	return true
}

// runSession reads and dispatches commands until the session ends.
func (s *Server) runSession(sess *Session, reader lineReader) (reason exitReason) {
	defer func() {
		if r := recover(); r != nil {
			fault := &HandlerFault{Value: r, Stack: debug.Stack()}
			s.metrics.HandlerFaults.Add(1)
			slog.Error("session handler fault",
				"nick", sess.Nickname(), "session", sess.ID(), "err", fault, "stack", string(fault.Stack))
			s.deliver(sess, protocol.ReplyInternal)
			reason = exitFault
		}
	}()

	for {
		line, err := reader.ReadLine()
		if err == nil {
			err = s.handleCommand(sess, reader, line)
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, errQuit):
			return exitQuit
		case errors.Is(err, protocol.ErrLineTooLong):
			slog.Warn("line too long, closing", "nick", sess.Nickname(), "session", sess.ID())
			s.deliver(sess, protocol.ReplyLineTooLong)
			return exitProtocol
		default:
			exit := classifyReadError(err)
			if exit == exitPeerReset {
				slog.Warn("read error", "nick", sess.Nickname(), "session", sess.ID(), "err", err)
			}
			return exit
		}
	}
}

// teardown removes a session from every registry, tells the others it went
// offline and closes it. Only the first call for a session has any effect.
func (s *Server) teardown(sess *Session, reason exitReason) {
	if !s.sessions.Remove(sess.ID()) {
		return
	}
	nick := sess.Nickname()

	left := s.rooms.LeaveAll(sess)
	if s.sessions.CountNickname(nick) == 0 {
		s.presence.remove(nick)
	}
	s.metrics.TotalDisconnects.Add(1)
	slog.Info("client disconnected", "nick", nick, "session", sess.ID(), "reason", reason.String(), "rooms", left)

	_ = sess.Close()
	s.Broadcast(protocol.OfflineNotice(nick), sess)
}
