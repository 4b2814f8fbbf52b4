package internal

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key          string
	Type         string
	Conversation string
	Sender       string
	Seq          string
	Seen         string
	Detail       string
}

type RowMapper func(key string, val []byte) InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Prefix string
	Items  []InspectRow
	Stats  map[string]any
}

// StartDebugServer serves a read-only view over the badger store plus the
// live engine counters, for poking at a running instance.
func StartDebugServer(db *badger.DB, port int, mapper RowMapper, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	if mapper == nil {
		mapper = DefaultMapper
	}

	mux.HandleFunc("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "conv:"
		}

		data := PageData{
			Prefix: prefix,
			Stats:  make(map[string]any),
		}

		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		_ = db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()
			for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
				item := it.Item()
				_ = item.Value(func(val []byte) error {
					data.Items = append(data.Items, mapper(string(item.Key()), val))
					return nil
				})
			}
			return nil
		})

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}

// DefaultMapper understands the engine's two key families,
// conv:{pair} and msg:{pair}:{seq}.
func DefaultMapper(key string, val []byte) InspectRow {
	row := InspectRow{
		Key:    key,
		Type:   "RAW",
		Detail: "Size: " + strconv.Itoa(len(val)) + " bytes",
	}

	switch {
	case strings.HasPrefix(key, "conv:"):
		row.Type = "CONV"
		row.Conversation = strings.TrimPrefix(key, "conv:")
		var conv struct {
			LastMessage struct {
				Text     string `json:"text"`
				SenderID string `json:"sender_id"`
				Seq      uint64 `json:"seq"`
				Seen     bool   `json:"seen"`
			} `json:"last_message"`
		}
		if err := json.Unmarshal(val, &conv); err == nil {
			row.Sender = conv.LastMessage.SenderID
			row.Seq = strconv.FormatUint(conv.LastMessage.Seq, 10)
			row.Seen = strconv.FormatBool(conv.LastMessage.Seen)
			row.Detail = conv.LastMessage.Text
		}

	case strings.HasPrefix(key, "msg:"):
		row.Type = "MSG"
		parts := strings.Split(strings.TrimPrefix(key, "msg:"), ":")
		if len(parts) == 2 {
			row.Conversation = parts[0]
			row.Seq = strings.TrimLeft(parts[1], "0")
		}
		var msg struct {
			SenderID string `json:"sender_id"`
			Text     string `json:"text"`
			Seen     bool   `json:"seen"`
		}
		if err := json.Unmarshal(val, &msg); err == nil {
			row.Sender = msg.SenderID
			row.Seen = strconv.FormatBool(msg.Seen)
			row.Detail = msg.Text
		}
	}
	return row
}
