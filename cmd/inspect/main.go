package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

// Dumps any keyspace prefix straight from the Badger directory:
//
//	inspect -db ./data -prefix notif:
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (conv:, part:, membership:, msg:, notif:, owner:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Namespace", "Timestamp", "Entity ID", "Detail"})
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
			err := item.Value(func(v []byte) error {
				table.Append(toRow(string(item.Key()), v))
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
	// BypassLockGuard allows opening while the engine holds the lock.
	options := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	return badger.Open(options)
}

// toRow decodes the JSON value generically; the detail column shows
// whichever human-readable field the row carries.
func toRow(key string, val []byte) []string {
	namespace, timestamp, entityID := parseKey(key)

	detail := "Size: " + strconv.Itoa(len(val)) + " bytes"
	var fields map[string]any
	if err := json.Unmarshal(val, &fields); err == nil {
		for _, candidate := range []string{"body", "title", "kind", "role", "member_id"} {
			if v, ok := fields[candidate].(string); ok && v != "" {
				detail = fmt.Sprintf("%s=%s", candidate, v)
				break
			}
		}
	}

	return []string{key, namespace, timestamp, entityID, detail}
}

func parseKey(key string) (namespace, timestamp, entityID string) {
	namespace, timestamp, entityID = "default", "--:--:--", "--------"

	parts := strings.Split(key, ":")
	if len(parts) >= 2 {
		namespace = parts[0]
	}
	if len(parts) >= 4 {
		if tsNano, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
			timestamp = time.Unix(0, tsNano).Format("15:04:05")
		}
		entityID = parts[3]
	} else if len(parts) >= 2 {
		entityID = parts[len(parts)-1]
	}
	if len(entityID) > 8 {
		entityID = entityID[:8]
	}
	return namespace, timestamp, entityID
}
