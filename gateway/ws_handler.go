package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"threadly/auth"
	"threadly/contract"
	"threadly/domain"
	"threadly/errors"
	"threadly/sink"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 70 * time.Second
	maxFrameSize = 1 << 20 // image payloads travel base64-encoded
	maxTextRunes = 4096
)

// liveConn serializes writes to one upgraded socket. The write loop and
// the read loop (error frames) both produce output; gorilla allows a
// single concurrent writer.
type liveConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *liveConn) writeJSON(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(payload)
}

func (c *liveConn) writeControl(messageType int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, nil)
}

// wsHandler owns the live half of the gateway: it upgrades the socket,
// runs the hello handshake, then pumps frames between the client and the
// connection's event sink.
type wsHandler struct {
	service          contract.IChatService
	secret           []byte
	handshakeTimeout time.Duration
	bufferSize       int
	upgrader         websocket.Upgrader
	log              *slog.Logger
}

func newWSHandler(service contract.IChatService, secret []byte, handshakeTimeout time.Duration, bufferSize int, log *slog.Logger) *wsHandler {
	return &wsHandler{
		service:          service,
		secret:           secret,
		handshakeTimeout: handshakeTimeout,
		bufferSize:       bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(maxFrameSize)
	lc := &liveConn{conn: conn}

	claims, err := h.handshake(conn)
	if err != nil {
		// The socket never entered the registry: close without ceremony.
		_ = lc.writeJSON(errorFrame{Type: FrameError, Error: err.Error()})
		_ = conn.Close()
		return
	}

	userID := claims.UserID
	liveSink := sink.NewLiveSink(h.log, h.bufferSize)
	h.service.Connect(userID, liveSink)
	h.log.Info("Live connection established", "user_id", userID, "conn_id", liveSink.ID())

	ctx, cancel := context.WithCancel(r.Context())
	go h.writeLoop(ctx, lc, liveSink)

	h.readLoop(lc, userID, liveSink)

	cancel()
	h.service.Disconnect(userID, liveSink.ID())
	liveSink.Close()
	_ = conn.Close()
	h.log.Info("Live connection closed", "user_id", userID, "conn_id", liveSink.ID(), "dropped", liveSink.Dropped())
}

// handshake waits for a single hello frame carrying a valid identity
// token. A client that stays silent past the deadline, or sends anything
// else first, is rejected before touching the presence registry.
func (h *wsHandler) handshake(conn *websocket.Conn) (*auth.IdentityClaims, error) {
	if err := conn.SetReadDeadline(time.Now().Add(h.handshakeTimeout)); err != nil {
		return nil, err
	}

	var frame InboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		return nil, errors.ErrHandshakeTimeout
	}
	if frame.Type != FrameHello || frame.Validate() != nil {
		return nil, errors.ErrInvalidToken
	}

	claims, err := auth.ValidateToken(h.secret, frame.Token)
	if err != nil {
		return nil, err
	}

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, err
	}
	return claims, nil
}

func (h *wsHandler) readLoop(lc *liveConn, userID string, liveSink *sink.LiveSink) {
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var frame InboundFrame
		if err := lc.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Read loop ended", "user_id", userID, "error", err)
			}
			return
		}
		_ = lc.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if err := h.handleFrame(userID, liveSink, frame); err != nil {
			// Integrity violations come back on the same channel; the
			// connection itself stays up.
			_ = lc.writeJSON(errorFrame{Type: FrameError, Error: err.Error()})
		}
	}
}

func (h *wsHandler) handleFrame(userID string, liveSink *sink.LiveSink, frame InboundFrame) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	switch frame.Type {
	case FrameSendMessage:
		text := frame.Text
		if len([]rune(text)) > maxTextRunes {
			text = string([]rune(text)[:maxTextRunes])
		}
		_, err := h.service.SendMessage(context.Background(), domain.SendMessageCommand{
			ConversationID: frame.ConversationID,
			To:             frame.To,
			SenderID:       userID,
			Body:           domain.Body{Text: text, Image: frame.Image},
			OriginConn:     liveSink.ID(),
		})
		return err

	case FrameMarkSeen:
		return h.service.MarkConversationSeen(domain.MarkSeenCommand{
			ConversationID: frame.ConversationID,
			ViewerID:       userID,
		})

	case FrameTyping:
		return h.service.Typing(domain.TypingCommand{
			ConversationID: frame.ConversationID,
			UserID:         userID,
			OriginConn:     liveSink.ID(),
		})

	case FrameHello:
		// A second hello is harmless noise.
		return nil
	}
	return nil
}

// writeLoop drains the sink toward the socket and keeps the connection
// alive with pings.
func (h *wsHandler) writeLoop(ctx context.Context, lc *liveConn, liveSink *sink.LiveSink) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := lc.writeControl(websocket.PingMessage); err != nil {
				return
			}
		default:
		}

		nextCtx, cancel := context.WithTimeout(ctx, pingInterval)
		e, err := liveSink.Next(nextCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil || err == errors.ErrSinkClosed {
				return
			}
			continue
		}

		frame := encodeEvent(e)
		if frame == nil {
			continue
		}
		if err := lc.writeJSON(frame); err != nil {
			h.log.Debug("Write failed", "error", err)
			return
		}
	}
}
