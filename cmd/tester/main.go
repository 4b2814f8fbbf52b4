package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"threadly/auth"
	"threadly/domain"
)

type Config struct {
	ServerAddr    string        `envconfig:"SERVER_ADDR" default:"localhost:8080"`
	TokenSecret   string        `envconfig:"TOKEN_SECRET" required:"true"`
	TokenDuration time.Duration `envconfig:"TOKEN_DURATION" default:"24h"`
	UserID        string        `envconfig:"TESTER_USER_ID" required:"true"`
}

type inboundFrame struct {
	Type           string          `json:"type"`
	UserID         string          `json:"user_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	ViewerID       string          `json:"viewer_id,omitempty"`
	Message        *domain.Message `json:"message,omitempty"`
	Error          string          `json:"error,omitempty"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	token, err := auth.GenerateToken([]byte(config.TokenSecret), config.UserID, config.TokenDuration)
	if err != nil {
		log.Fatalf("Token error: %v", err)
	}

	// 1. Dial the live endpoint and identify ourselves
	url := fmt.Sprintf("ws://%s/v1/ws", config.ServerAddr)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "hello", "token": token}); err != nil {
		log.Fatalf("Handshake error: %v", err)
	}

	color.Green.Printf("Connected as %s — commands: /list, /seen <conv>, /typing <conv>, /to <peer> <text>, /in <conv> <text>\n", config.UserID)

	// 2. Print everything the server pushes
	go func() {
		for {
			var frame inboundFrame
			if err := conn.ReadJSON(&frame); err != nil {
				color.Red.Printf("Connection lost: %v\n", err)
				os.Exit(1)
			}
			printFrame(frame)
		}
	}()

	// 3. Read commands from stdin
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := handleCommand(conn, config, token, line); err != nil {
			color.Red.Println(err)
		}
	}
}

func handleCommand(conn *websocket.Conn, config Config, token, line string) error {
	switch {
	case line == "/list":
		return renderConversations(config, token)

	case strings.HasPrefix(line, "/seen "):
		return conn.WriteJSON(map[string]string{
			"type":            "mark_seen",
			"conversation_id": strings.TrimSpace(strings.TrimPrefix(line, "/seen ")),
		})

	case strings.HasPrefix(line, "/typing "):
		return conn.WriteJSON(map[string]string{
			"type":            "typing",
			"conversation_id": strings.TrimSpace(strings.TrimPrefix(line, "/typing ")),
		})

	case strings.HasPrefix(line, "/to "):
		peer, text, ok := strings.Cut(strings.TrimPrefix(line, "/to "), " ")
		if !ok {
			return fmt.Errorf("usage: /to <peer> <text>")
		}
		return conn.WriteJSON(map[string]string{"type": "send_message", "to": peer, "text": text})

	case strings.HasPrefix(line, "/in "):
		conv, text, ok := strings.Cut(strings.TrimPrefix(line, "/in "), " ")
		if !ok {
			return fmt.Errorf("usage: /in <conv> <text>")
		}
		return conn.WriteJSON(map[string]string{"type": "send_message", "conversation_id": conv, "text": text})

	default:
		return fmt.Errorf("unknown command %q", line)
	}
}

func printFrame(frame inboundFrame) {
	switch frame.Type {
	case "new_message":
		color.Cyan.Printf("[%s] %s: %s\n", frame.Message.ConversationID, frame.Message.SenderID, frame.Message.Summary())
	case "messages_seen":
		color.Yellow.Printf("[%s] seen by %s\n", frame.ConversationID, frame.ViewerID)
	case "user_online":
		color.Green.Printf("%s is online\n", frame.UserID)
	case "user_offline":
		color.Gray.Printf("%s went offline\n", frame.UserID)
	case "typing":
		color.Magenta.Printf("[%s] %s is typing...\n", frame.ConversationID, frame.UserID)
	case "error":
		color.Red.Printf("server error: %s\n", frame.Error)
	default:
		color.White.Printf("%+v\n", frame)
	}
}

// renderConversations fetches the caller's conversation list over HTTP and
// renders it the way the inspect tooling does.
func renderConversations(config Config, token string) error {
	url := fmt.Sprintf("http://%s/v1/users/%s/conversations", config.ServerAddr, config.UserID)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var payload struct {
		Conversations []domain.Conversation `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Conversation", "Last Sender", "Last Message", "Seq", "Seen", "Updated"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	table.AppendBulk(lo.Map(payload.Conversations, func(conv domain.Conversation, _ int) []string {
		return []string{
			conv.ID,
			conv.LastMessage.SenderID,
			conv.LastMessage.Text,
			fmt.Sprintf("%d", conv.LastMessage.Seq),
			fmt.Sprintf("%t", conv.LastMessage.Seen),
			conv.UpdatedAt.Format(time.RFC822),
		}
	}))
	table.Render()
	return nil
}
