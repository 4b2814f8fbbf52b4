package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"

	"threadly/domain"
)

// Offline inspection of a threadly store: dumps conversations and message
// logs as a flat table without going through the engine.
func main() {
	dbPath := flag.String("db", "/tmp/threadly", "Path to badger DB")
	prefix := flag.String("prefix", "conv:", "Prefix to scan (conv: or msg:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Sender", "Seq", "Seen", "At", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				switch {
				case strings.HasPrefix(key, "conv:"):
					var conv domain.Conversation
					if err := json.Unmarshal(v, &conv); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
						return nil
					}
					table.Append([]string{
						key, "CONV",
						conv.LastMessage.SenderID,
						fmt.Sprintf("%d", conv.LastMessage.Seq),
						fmt.Sprintf("%t", conv.LastMessage.Seen),
						conv.UpdatedAt.Format(time.RFC822),
						conv.LastMessage.Text,
					})

				case strings.HasPrefix(key, "msg:"):
					var msg domain.Message
					if err := json.Unmarshal(v, &msg); err != nil {
						fmt.Printf("Error unmarshaling key %s: %v\n", key, err)
						return nil
					}
					table.Append([]string{
						key, "MSG",
						msg.SenderID,
						fmt.Sprintf("%d", msg.Seq),
						fmt.Sprintf("%t", msg.Seen),
						msg.CreatedAt.Format(time.RFC822),
						msg.Summary(),
					})
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
