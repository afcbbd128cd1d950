package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/torymur/sqlitefmt-go/sqlitefmt"
)

// Usage: sqlitedump sample.db .dbinfo|.tables|.schema
func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "usage: sqlitedump <database file> <command>")
		os.Exit(1)
	}
	databaseFilePath := os.Args[1]
	command := os.Args[2]

	reader, err := sqlitefmt.Open(databaseFilePath)
	if err != nil {
		log.Fatal(err)
	}

	switch command {
	case ".dbinfo":
		h := reader.Header()
		fmt.Printf("database page size: %v\n", h.PageSize)
		fmt.Printf("text encoding: %v\n", h.TextEncoding)
		fmt.Printf("number of pages: %v\n", reader.PagesTotal())

	case ".tables":
		db, err := reader.MaterializeAll(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		for _, tree := range db.BTrees {
			if tree.Schema == nil || tree.Schema.Type != sqlitefmt.SchemaTable {
				continue
			}
			fmt.Println(tree.Schema.Name)
		}

	case ".schema":
		db, err := reader.MaterializeAll(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		for _, tree := range db.BTrees {
			if tree.Schema == nil {
				continue
			}
			fmt.Println(tree.Schema.SQL)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown command", command)
		os.Exit(1)
	}
}
