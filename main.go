package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"lending-desk/library"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

const (
	dbFile  = "library.db"
	dataDir = "data"
)

type options struct {
	store      string
	db         string
	dataDir    string
	failFast   bool
	loanDays   int
	finePerDay int
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := options{}
	defaults := library.DefaultConfig()

	cmd := &cobra.Command{
		Use:          "lending-desk",
		Short:        "Interactive desk for lending catalog items to registered accounts",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.store, "store", library.StoreSQLite, "persistence backend: sqlite, json or memory")
	f.StringVar(&opts.db, "db", dbFile, "SQLite database file (sqlite store)")
	f.StringVar(&opts.dataDir, "data-dir", dataDir, "directory for items.json and accounts.json (json store)")
	f.BoolVar(&opts.failFast, "fail-fast", false, "report persistence failures as operation errors instead of logging them")
	f.IntVar(&opts.loanDays, "loan-days", defaults.LoanDays, "loan period in days")
	f.IntVar(&opts.finePerDay, "fine-per-day", defaults.FinePerDay, "fine charged per day late")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func run(opts options) error {
	if opts.loanDays <= 0 || opts.finePerDay <= 0 {
		return fmt.Errorf("--loan-days and --fine-per-day must be positive, got %d and %d", opts.loanDays, opts.finePerDay)
	}

	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	defer logger.Sync()
	logger = logger.With(zap.String("session", uuid.NewString()))

	path := opts.db
	if opts.store == library.StoreJSON {
		path = opts.dataDir
	}
	store, err := library.OpenStore(opts.store, path)
	if err != nil {
		logger.Error("open store", zap.String("store", opts.store), zap.Error(err))
		return err
	}

	cfg := library.DefaultConfig()
	cfg.LoanDays = opts.loanDays
	cfg.FinePerDay = opts.finePerDay
	if opts.failFast {
		cfg.Persist = library.PersistFailFast
	}

	engine, err := library.NewEngine(store, library.WithConfig(cfg), library.WithLogger(logger))
	if err != nil {
		store.Close()
		logger.Error("start engine", zap.Error(err))
		return err
	}
	defer engine.Close()

	repl(bufio.NewScanner(os.Stdin), engine)
	return nil
}

// readSecret masks input on a terminal and falls back to a plain line otherwise.
func readSecret(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println() // Add newline after password input
		if err != nil {
			fmt.Printf("Error reading secret: %v\n", err)
			return "", false
		}
		return strings.TrimSpace(string(b)), true
	}
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptID(sc *bufio.Scanner, label string) (int, bool) {
	s, ok := prompt(sc, label)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Invalid ID: %s\n", s)
		return 0, false
	}
	return id, true
}

func repl(sc *bufio.Scanner, eng *library.Engine) {
	fmt.Println("Welcome to the Lending Desk!")
	for {
		fmt.Println("\nCommands: login, register, exit")
		cmd, ok := prompt(sc, "> ")
		if !ok {
			return
		}
		switch cmd {
		case "login":
			if acct, ok := handleLogin(sc, eng); ok {
				if !session(sc, eng, acct) {
					return
				}
			}
		case "register":
			handleRegister(sc, eng)
		case "exit":
			fmt.Println("Goodbye!")
			return
		default:
			fmt.Println("Unknown command.")
		}
	}
}

func handleLogin(sc *bufio.Scanner, eng *library.Engine) (library.AccountView, bool) {
	username, ok := prompt(sc, "Username: ")
	if !ok {
		return library.AccountView{}, false
	}
	secret, ok := readSecret(sc, "Password: ")
	if !ok {
		return library.AccountView{}, false
	}
	acct, ok := eng.Authenticate(username, secret)
	if !ok {
		fmt.Println("Invalid credentials.")
		return library.AccountView{}, false
	}
	fmt.Printf("Welcome, %s (%s)\n", acct.Name, acct.Role)
	return acct, true
}

func handleRegister(sc *bufio.Scanner, eng *library.Engine) {
	name, ok := prompt(sc, "Name: ")
	if !ok {
		return
	}
	username, ok := prompt(sc, "Username: ")
	if !ok {
		return
	}
	secret, ok := readSecret(sc, fmt.Sprintf("Enter password for %s: ", username))
	if !ok {
		return
	}
	id, err := eng.RegisterAccount(name, username, secret)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Registered successfully. Your account ID: %d\n", id)
}

// session runs the dashboard for acct. It returns false when input is exhausted.
func session(sc *bufio.Scanner, eng *library.Engine, acct library.AccountView) bool {
	for {
		if acct.IsAdmin() {
			fmt.Println("\nCommands: add item, remove item, list items, list accounts, search, logout")
		} else {
			fmt.Println("\nCommands: list items, search, borrow, return, my loans, logout")
		}
		cmd, ok := prompt(sc, fmt.Sprintf("%s> ", acct.Username))
		if !ok {
			return false
		}

		switch {
		case cmd == "logout":
			return true
		case cmd == "list items":
			fmt.Println(eng.ListItems())
		case cmd == "search":
			handleSearch(sc, eng)
		case acct.IsAdmin() && cmd == "add item":
			handleAddItem(sc, eng)
		case acct.IsAdmin() && cmd == "remove item":
			handleRemoveItem(sc, eng)
		case acct.IsAdmin() && cmd == "list accounts":
			fmt.Println(eng.ListAccounts())
		case !acct.IsAdmin() && cmd == "borrow":
			handleBorrow(sc, eng, acct)
		case !acct.IsAdmin() && cmd == "return":
			handleReturn(sc, eng, acct)
		case !acct.IsAdmin() && cmd == "my loans":
			out, err := eng.ListLoansOf(acct.ID)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				continue
			}
			fmt.Println(out)
		default:
			fmt.Println("Unknown command.")
		}
	}
}

func handleSearch(sc *bufio.Scanner, eng *library.Engine) {
	kw, ok := prompt(sc, "Keyword: ")
	if !ok {
		return
	}
	fmt.Println(eng.SearchItems(kw))
}

func handleAddItem(sc *bufio.Scanner, eng *library.Engine) {
	idStr, ok := prompt(sc, "Item ID (optional): ")
	if !ok {
		return
	}
	var id *int
	if idStr != "" {
		v, err := strconv.Atoi(idStr)
		if err != nil {
			fmt.Printf("Invalid item ID: %s\n", idStr)
			return
		}
		id = &v
	}
	title, ok := prompt(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := prompt(sc, "Author: ")
	if !ok {
		return
	}
	genre, ok := prompt(sc, "Genre: ")
	if !ok {
		return
	}

	newID, err := eng.AddItem(id, title, author, genre)
	if err != nil {
		fmt.Printf("Error adding item: %v\n", err)
		return
	}
	fmt.Printf("Item added with ID: %d\n", newID)
}

func handleRemoveItem(sc *bufio.Scanner, eng *library.Engine) {
	id, ok := promptID(sc, "Item ID: ")
	if !ok {
		return
	}
	if err := eng.RemoveItem(id); err != nil {
		fmt.Printf("Error removing item: %v\n", err)
		return
	}
	fmt.Println("Item removed.")
}

func handleBorrow(sc *bufio.Scanner, eng *library.Engine, acct library.AccountView) {
	id, ok := promptID(sc, "Item ID: ")
	if !ok {
		return
	}
	receipt, err := eng.BorrowItem(acct.ID, id)
	if err != nil {
		fmt.Printf("Error borrowing item: %v\n", err)
		return
	}
	fmt.Println(receipt)
}

func handleReturn(sc *bufio.Scanner, eng *library.Engine, acct library.AccountView) {
	id, ok := promptID(sc, "Item ID: ")
	if !ok {
		return
	}
	receipt, err := eng.ReturnItem(acct.ID, id)
	if err != nil {
		fmt.Printf("Error returning item: %v\n", err)
		return
	}
	fmt.Println(receipt)
}
