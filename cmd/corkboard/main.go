package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/internal/db"
	"github.com/ldi/corkboard/internal/dnd"
	"github.com/ldi/corkboard/internal/mcp"
	"github.com/ldi/corkboard/internal/server"
	"github.com/ldi/corkboard/internal/ui"
	"github.com/ldi/corkboard/pkg/models"
	"github.com/spf13/pflag"
)

var (
	dbPath       string
	snapshotPath string
	configPath   string
	logLevel     string
	verbose      bool

	out io.Writer = os.Stdout

	runMenu  = ui.RunMenu
	runBoard = ui.RunBoard
)

func main() {
	if err := execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func globalFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("corkboard", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.StringVar(&dbPath, "db-path", defaultDBPath, "Path to database file")
	fs.StringVar(&snapshotPath, "snapshot-path", defaultSnapshotPath, "Path to snapshot file")
	fs.StringVar(&configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return fs
}

func execute(args []string) error {
	fs := globalFlags()
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath, fs)
	if err != nil {
		return err
	}

	var command string
	var rest []string
	if fs.NArg() == 0 {
		selected, err := runMenu(menuSummary(cfg))
		if err != nil {
			return fmt.Errorf("failed to run menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		command = selected
	} else {
		command = fs.Arg(0)
		rest = fs.Args()[1:]
	}

	switch command {
	case "init":
		return runInit(cfg, rest)
	case "board", "tui":
		return runBoardCommand(cfg, rest)
	case "web":
		return runWeb(cfg, rest)
	case "mcp":
		return runMCP(cfg, rest)
	case "list-boards":
		return runListBoards(cfg, rest)
	case "list-tasks":
		return runListTasks(cfg, rest)
	case "status":
		return runStatus(cfg, rest)
	case "export":
		return runExport(cfg, rest)
	case "import":
		return runImport(cfg, rest)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// openStore opens the database and builds a store mirrored into it.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (*db.DB, *board.Store, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store := board.New(ctx,
		board.WithPersister(database),
		board.WithLogger(logger),
		board.WithDefaults(cfg.Defaults()),
	)
	if cfg.AutoSnapshot && cfg.SnapshotPath != "" {
		database.EnableAutoSnapshot(store, cfg.SnapshotPath, logger)
	}
	return database, store, nil
}

func runInit(cfg *Config, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	boardDir := filepath.Join(targetDir, defaultDir)
	if err := os.MkdirAll(boardDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", defaultDir, err)
	}
	fmt.Fprintf(out, "✓ Created %s/ directory\n", defaultDir)

	gitignorePath := filepath.Join(boardDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("corkboard.db*\ncorkboard.log\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintf(out, "✓ Created %s/.gitignore\n", defaultDir)

	written, err := writeDefaultConfig(filepath.Join(boardDir, "config.json"))
	if err != nil {
		return err
	}
	if written {
		fmt.Fprintf(out, "✓ Wrote %s/config.json\n", defaultDir)
	}

	// Paths left at their defaults are relative to the target directory.
	finalDBPath := cfg.DBPath
	if finalDBPath == defaultDBPath {
		finalDBPath = filepath.Join(boardDir, "corkboard.db")
	}
	finalSnapshotPath := cfg.SnapshotPath
	if finalSnapshotPath == defaultSnapshotPath {
		finalSnapshotPath = filepath.Join(boardDir, "snapshot.jsonl")
	}

	database, err := db.Open(finalDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(out, "✓ Initialized database at %s\n", finalDBPath)

	if _, err := os.Stat(finalSnapshotPath); err == nil {
		st, err := database.ImportSnapshot(ctx, finalSnapshotPath)
		if err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Fprintf(out, "✓ Imported %d board(s) from %s\n", len(st.Boards), finalSnapshotPath)
	} else {
		existing, err := database.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to check for existing state: %w", err)
		}
		if existing == nil {
			st := board.NewState(cfg.Defaults(), time.Now().UTC())
			if err := database.Save(ctx, st); err != nil {
				return fmt.Errorf("failed to seed default board: %w", err)
			}
			fmt.Fprintf(out, "✓ Seeded board %q\n", st.Boards[0].Name)
		}
	}

	fmt.Fprintln(out, "✓ Corkboard initialized successfully")
	return nil
}

func runBoardCommand(cfg *Config, args []string) error {
	logPath := filepath.Join(filepath.Dir(cfg.DBPath), "corkboard.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	// The terminal belongs to the TUI, so logs go to a file.
	logger := newLogger(logFile, cfg.LogLevel, verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	return runBoard(ctx, store, dnd.NewReconciler(store, logger))
}

func runWeb(cfg *Config, args []string) error {
	webFlags := pflag.NewFlagSet("web", pflag.ContinueOnError)
	port := webFlags.String("port", cfg.Port, "Port to listen on")
	if err := webFlags.Parse(args); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.LogLevel, verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := server.NewServer(store, logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%s", *port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down web server: %w", err)
	}
	return <-errCh
}

func runMCP(cfg *Config, args []string) error {
	// stdout carries the protocol.
	logger := newLogger(os.Stderr, cfg.LogLevel, verbose)

	ctx := context.Background()
	database, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	s := mcp.NewServer(store, board.NewStaging())
	return mcp.Serve(s)
}

func runListBoards(cfg *Config, args []string) error {
	logger := newLogger(os.Stderr, cfg.LogLevel, verbose)
	ctx := context.Background()
	database, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	current := store.CurrentBoardID()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tCOLUMNS\tTASKS")
	for _, b := range store.Boards() {
		marker := ""
		if b.ID == current {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", marker, b.ID, b.Name, len(b.Columns), b.TaskCount())
	}
	return tw.Flush()
}

func runListTasks(cfg *Config, args []string) error {
	taskFlags := pflag.NewFlagSet("list-tasks", pflag.ContinueOnError)
	boardID := taskFlags.String("board", "", "Board id (defaults to the current board)")
	query := taskFlags.StringP("query", "q", "", "Search title, description and assignee")
	priority := taskFlags.String("priority", "", "Filter by priority (low, medium, high)")
	assignee := taskFlags.String("assignee", "", "Filter by assignee")
	due := taskFlags.String("due", "", "Filter by due date (today, tomorrow, week, overdue)")
	status := taskFlags.String("status", "", "Filter by column name")
	if err := taskFlags.Parse(args); err != nil {
		return err
	}

	filter := models.Filter{
		Priority: models.Priority(strings.ToLower(*priority)),
		Assignee: *assignee,
		DueDate:  models.DueBucket(strings.ToLower(*due)),
		Status:   strings.TrimSpace(*status),
		Query:    *query,
	}
	if err := models.ValidateFilterPriority(filter.Priority); err != nil {
		return err
	}
	if err := models.ValidateDueBucket(filter.DueDate); err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.LogLevel, verbose)
	ctx := context.Background()
	database, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	st := store.Snapshot()
	id := *boardID
	if id == "" {
		id = st.CurrentBoardID
	}
	if _, ok := st.Board(id); !ok {
		return fmt.Errorf("board %s not found", id)
	}

	tasks := board.ByOwner(st, id)
	tasks = board.BySearch(tasks, filter.Query)
	tasks = board.ByCriteria(tasks, filter, time.Now())

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tSTATUS\tPRIORITY\tASSIGNEE\tDUE\tSUBTASKS\tID")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			t.Title, t.Status, t.Priority, t.Assignee, t.DueDate,
			t.CompletedSubtasks(), len(t.Subtasks), t.ID)
	}
	return tw.Flush()
}

func runStatus(cfg *Config, args []string) error {
	logger := newLogger(os.Stderr, cfg.LogLevel, verbose)
	ctx := context.Background()
	database, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	b, ok := store.CurrentBoard()
	if !ok {
		return errors.New("no current board")
	}
	stats := store.Stats()

	fmt.Fprintln(out, "Corkboard Status")
	fmt.Fprintln(out, "================")
	fmt.Fprintf(out, "Boards:        %d\n", len(store.Boards()))
	fmt.Fprintf(out, "Current Board: %s\n", b.Name)
	fmt.Fprintf(out, "Total Tasks:   %d\n", stats.Total)
	fmt.Fprintf(out, "Overdue:       %d\n", stats.Overdue)
	fmt.Fprintf(out, "Due Today:     %d\n", stats.DueToday)
	fmt.Fprintf(out, "Subtasks:      %d/%d done\n", stats.SubtasksDone, stats.SubtasksTotal)

	fmt.Fprintln(out, "\nColumns:")
	for _, c := range stats.PerColumn {
		fmt.Fprintf(out, "  %-14s %d\n", c.Name+":", c.Count)
	}

	fmt.Fprintln(out, "\nPriorities:")
	for _, p := range []models.Priority{models.PriorityHigh, models.PriorityMedium, models.PriorityLow} {
		fmt.Fprintf(out, "  %-14s %d\n", string(p)+":", stats.ByPriority[p])
	}
	return nil
}

func runExport(cfg *Config, args []string) error {
	path := cfg.SnapshotPath
	if len(args) > 0 {
		path = args[0]
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.ExportSnapshot(ctx, path); err != nil {
		return fmt.Errorf("failed to export snapshot: %w", err)
	}
	fmt.Fprintf(out, "✓ Exported snapshot to %s\n", path)
	return nil
}

func runImport(cfg *Config, args []string) error {
	path := cfg.SnapshotPath
	if len(args) > 0 {
		path = args[0]
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	st, err := database.ImportSnapshot(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to import snapshot: %w", err)
	}

	tasks := 0
	for _, b := range st.Boards {
		tasks += b.TaskCount()
	}
	fmt.Fprintf(out, "✓ Imported %d board(s) and %d task(s) from %s\n", len(st.Boards), tasks, path)
	return nil
}

// menuSummary describes the stored board for the start menu. It never
// creates a database.
func menuSummary(cfg *Config) string {
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return "No board yet. Choose init to create one."
	}
	logger := newLogger(io.Discard, cfg.LogLevel, false)
	ctx := context.Background()
	database, store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return ""
	}
	defer database.Close()

	b, ok := store.CurrentBoard()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s: %d task(s) in %d column(s)", b.Name, b.TaskCount(), len(b.Columns))
}
