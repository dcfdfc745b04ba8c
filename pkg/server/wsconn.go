package server

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/NicolasHaas/gorelay/pkg/protocol"
)

const wsCloseWait = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// handleWebSocket upgrades the request and runs it as an ordinary chat
// session: each text frame is one input line, each reply one frame.
func (s *Server) handleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "remote", c.Request.RemoteAddr, "err", err)
		return
	}
	ws.SetReadLimit(int64(s.cfg.MaxLineLength))

	conn := newWSConn(ws)
	if !s.trackConn(conn) {
		_ = conn.Close()
		return
	}
	s.handleConn(conn)
}

// wsConn adapts a WebSocket connection to net.Conn. Reads yield each frame
// followed by "\n"; each Write is sent as one text frame without its
// trailing newline.
type wsConn struct {
	ws  *websocket.Conn
	buf bytes.Reader
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for c.buf.Len() == 0 {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			if errors.Is(err, websocket.ErrReadLimit) {
				return 0, protocol.ErrLineTooLong
			}
			return 0, err
		}
		line := append(bytes.TrimRight(data, "\r\n"), '\n')
		c.buf.Reset(line)
	}
	return c.buf.Read(p)
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(p, []byte("\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close frame, best effort, and closes the socket.
func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsCloseWait))
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
