package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lending-desk/library"

	"go.uber.org/zap"
)

// Imports items from a CSV file with rows of title,author,genre[,id].
// A first row starting with "title" is treated as a header.
func main() {
	storeKind := flag.String("store", library.StoreSQLite, "persistence backend: sqlite or json")
	path := flag.String("path", "library.db", "SQLite file or JSON data directory")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: import_items [-store sqlite|json] [-path PATH] items.csv")
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}

	err = run(*storeKind, *path, flag.Arg(0), logger)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(storeKind, path, csvPath string, logger *zap.Logger) error {
	store, err := library.OpenStore(storeKind, path)
	if err != nil {
		logger.Error("open store", zap.Error(err))
		return err
	}
	engine, err := library.NewEngine(store, library.WithLogger(logger))
	if err != nil {
		store.Close()
		logger.Error("start engine", zap.Error(err))
		return err
	}
	defer engine.Close()

	f, err := os.Open(csvPath)
	if err != nil {
		logger.Error("open csv", zap.Error(err))
		return err
	}
	defer f.Close()

	successCount, errorCount := importItems(csv.NewReader(f), engine)

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d items\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalog:")
		fmt.Print(engine.ListItems())
	}
	return nil
}

func importItems(r *csv.Reader, engine *library.Engine) (successCount, errorCount int) {
	r.FieldsPerRecord = -1
	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		line++
		if err != nil {
			fmt.Printf("line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}
		if len(rec) < 3 {
			fmt.Printf("line %d: ERROR - want title,author,genre[,id], got %d fields\n", line, len(rec))
			errorCount++
			continue
		}

		var id *int
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			v, err := strconv.Atoi(strings.TrimSpace(rec[3]))
			if err != nil {
				fmt.Printf("line %d: ERROR - invalid id %q\n", line, rec[3])
				errorCount++
				continue
			}
			id = &v
		}

		fmt.Printf("Importing: %s by %s... ", strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1]))
		itemID, err := engine.AddItem(id, rec[0], rec[1], rec[2])
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", itemID)
		successCount++
	}
}
