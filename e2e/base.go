package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"

	"threadly/auth"
	"threadly/domain"
	"threadly/gateway"
	"threadly/observability"
	"threadly/repositories"
	"threadly/runtime"
	"threadly/runtime/workers"
	"threadly/services"
)

// BaseEngineSuite boots a complete in-process engine (in-memory badger,
// supervised workers, gateway over httptest) and hands out live clients.
type BaseEngineSuite struct {
	suite.Suite
	Config Config

	db           *badger.DB
	orchestrator *runtime.Orchestrator
	server       *httptest.Server
	cancel       context.CancelFunc
}

func (s *BaseEngineSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseEngineSuite) SetupTest() {
	log := logs.GetLoggerFromLevel(slog.LevelWarn)

	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	sup := workers.NewSupervisor(log)
	registry := runtime.NewRegistry()
	metrics := observability.NewEngineMetrics()
	store := repositories.NewConversationRepository(db, log, nil)

	s.orchestrator = runtime.NewOrchestrator(log, sup, registry, metrics, s.Config.BufferSize, time.Minute)

	moderator, err := runtime.PrepareModeration(log, '*')
	s.Require().NoError(err)

	service := services.NewChatService(store, registry, s.orchestrator, &moderator, metrics, log)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.Require().NoError(s.orchestrator.Start(ctx))

	gw := gateway.NewServer(service, []byte(s.Config.TokenSecret), 2*time.Second, s.Config.BufferSize, log)
	s.server = httptest.NewServer(gw.Handler())
}

func (s *BaseEngineSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
	s.orchestrator.Stop()
	_ = s.db.Close()
}

// Step prints a colorized marker so scenario logs read as a script.
func (s *BaseEngineSuite) Step(t *testing.T, name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	t.Log(header)
}

// pushFrame is the union of everything the server pushes to a live client.
type pushFrame struct {
	Type           string               `json:"type"`
	Message        *domain.Message      `json:"message,omitempty"`
	Conversation   *domain.Conversation `json:"conversation,omitempty"`
	ConversationID string               `json:"conversation_id,omitempty"`
	ViewerID       string               `json:"viewer_id,omitempty"`
	UserID         string               `json:"user_id,omitempty"`
	Error          string               `json:"error,omitempty"`
}

type wsClient struct {
	s      *BaseEngineSuite
	conn   *websocket.Conn
	userID string
}

// Dial opens a live connection for a user, completing the hello handshake.
func (s *BaseEngineSuite) Dial(userID string) *wsClient {
	token, err := auth.GenerateToken([]byte(s.Config.TokenSecret), userID, time.Hour)
	s.Require().NoError(err)

	url := strings.Replace(s.server.URL, "http", "ws", 1) + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)

	s.Require().NoError(conn.WriteJSON(map[string]string{"type": "hello", "token": token}))
	return &wsClient{s: s, conn: conn, userID: userID}
}

// DialRaw opens a socket without completing the handshake.
func (s *BaseEngineSuite) DialRaw() *websocket.Conn {
	url := strings.Replace(s.server.URL, "http", "ws", 1) + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	return conn
}

func (c *wsClient) Send(frame map[string]any) {
	c.s.Require().NoError(c.conn.WriteJSON(frame))
}

// Expect reads pushes until one of the wanted kind arrives, skipping
// unrelated casual traffic (presence churn from other clients).
func (c *wsClient) Expect(kind string) pushFrame {
	deadline := time.Now().Add(c.s.Config.PushTimeout)
	for time.Now().Before(deadline) {
		c.s.Require().NoError(c.conn.SetReadDeadline(deadline))
		var frame pushFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			c.s.Require().FailNowf("push timeout", "user %s expected %q: %v", c.userID, kind, err)
		}
		if frame.Type == kind {
			return frame
		}
	}
	c.s.Require().FailNowf("push timeout", "user %s expected %q", c.userID, kind)
	return pushFrame{}
}

// ExpectNone asserts no push of the given kind arrives within a short
// observation window.
func (c *wsClient) ExpectNone(kind string) {
	window := time.Now().Add(500 * time.Millisecond)
	for {
		_ = c.conn.SetReadDeadline(window)
		var frame pushFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return // window elapsed without the unwanted push
		}
		c.s.Require().NotEqual(kind, frame.Type, "user %s received an unexpected %q push", c.userID, kind)
	}
}

func (c *wsClient) Close() {
	_ = c.conn.Close()
}

// ListConversations queries the REST surface as the given user.
func (s *BaseEngineSuite) ListConversations(userID string) []domain.Conversation {
	token, err := auth.GenerateToken([]byte(s.Config.TokenSecret), userID, time.Hour)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/v1/users/"+userID+"/conversations", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var payload struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Conversations
}

// IsOnline queries the presence endpoint as the given user.
func (s *BaseEngineSuite) IsOnline(asUser, target string) bool {
	token, err := auth.GenerateToken([]byte(s.Config.TokenSecret), asUser, time.Hour)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/v1/users/"+target+"/online", nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var payload struct {
		Online bool `json:"online"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	return payload.Online
}
