// Command photovault backs up photo folders to a Telegram chat.
//
// Subcommands:
//
//	run      scan watch folders and upload everything pending
//	scan     scan watch folders without uploading
//	verify   check the bot credential and destination chat
//	retry    move FAILED records back to PENDING
//	purge    empty the local holding area
//	folder   manage watch folders (add, list, rm, enable, disable)
//	status   show record counts and sync state
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/commons-systems/photovault/internal/config"
	"github.com/commons-systems/photovault/internal/logging"
	"github.com/commons-systems/photovault/internal/retention"
	"github.com/commons-systems/photovault/internal/store"
	vsync "github.com/commons-systems/photovault/internal/sync"
	"github.com/commons-systems/photovault/internal/telegram"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "photovault:", err)
		os.Exit(1)
	}
}

// app holds the wired collaborators shared by all subcommands.
type app struct {
	cfg      *config.Config
	records  *store.RecordStore
	folders  *store.FolderStore
	settings *store.SettingsStore
	client   *telegram.Client
	retainer *retention.Manager
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a subcommand is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := store.Init(db); err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	a := &app{
		cfg:      cfg,
		records:  store.NewRecordStore(db),
		folders:  store.NewFolderStore(db),
		settings: store.NewSettingsStore(db),
		client:   telegram.NewClient(cfg.BotToken, cfg.ChatID),
		retainer: retention.NewManager(cfg.TrashDir),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd, rest := args[0], args[1:]; cmd {
	case "run":
		return a.cmdRun(ctx, rest)
	case "scan":
		return a.cmdScan(ctx)
	case "verify":
		return a.cmdVerify(ctx)
	case "retry":
		return a.cmdRetry(ctx)
	case "purge":
		return a.cmdPurge()
	case "folder":
		return a.cmdFolder(ctx, rest)
	case "status":
		return a.cmdStatus(ctx)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand %q", cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: photovault <command> [args]

commands:
  run                 scan watch folders and upload everything pending
  scan                scan watch folders without uploading
  verify              check the bot credential and destination chat
  retry               move failed records back to the upload queue
  purge               empty the local holding area
  folder add <path>   add a watch folder
  folder list         list watch folders
  folder rm <id>      remove a watch folder
  folder enable <id>  enable a watch folder
  folder disable <id> disable a watch folder
  folder recurse <id> <on|off>
                      toggle scanning of subfolders
  status              show record counts and sync state`)
}

func (a *app) newOrchestrator() (*vsync.Orchestrator, error) {
	scanner := vsync.NewScanner()
	ingestor := vsync.NewIngestor(a.records, a.folders, scanner)

	opts := vsync.DefaultOptions()
	opts.BatchSize = a.cfg.BatchSize
	opts.RetryLimit = a.cfg.RetryLimit
	opts.UploadDelay = a.cfg.UploadDelay
	opts.MaxIterations = a.cfg.MaxIterations
	opts.AsDocument = a.cfg.SendAsDocument
	opts.DeleteAfterUpload = a.cfg.DeleteAfterUpload

	return vsync.NewOrchestrator(
		a.records, a.folders, a.settings, a.client, ingestor,
		vsync.WithOptions(opts),
		vsync.WithRetainer(a.retainer),
	)
}

func (a *app) cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	quiet := fs.Bool("quiet", false, "suppress per-file progress output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !a.cfg.IsConfigured() {
		return vsync.ErrNotConfigured
	}

	orch, err := a.newOrchestrator()
	if err != nil {
		return err
	}

	run, err := orch.Start(ctx)
	if err != nil {
		return err
	}

	for p := range run.Progress() {
		if *quiet {
			continue
		}
		switch p.Type {
		case vsync.ProgressTypeError:
			fmt.Fprintln(os.Stderr, "  !", p.Message)
		default:
			fmt.Println("  -", p.Message)
		}
	}

	res := <-run.Result()
	printResult(res)
	if res.Err != nil {
		return res.Err
	}
	return nil
}

func (a *app) cmdScan(ctx context.Context) error {
	scanner := vsync.NewScanner()
	ingestor := vsync.NewIngestor(a.records, a.folders, scanner)

	added, err := ingestor.ScanAll(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("discovered %d new files\n", added)
	return nil
}

func (a *app) cmdVerify(ctx context.Context) error {
	if !a.client.Configured() {
		return vsync.ErrNotConfigured
	}
	if err := a.client.Verify(ctx); err != nil {
		return fmt.Errorf("destination unreachable: %w", err)
	}
	fmt.Println("destination chat reachable")
	return nil
}

func (a *app) cmdRetry(ctx context.Context) error {
	n, err := a.records.ResetFailed(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("requeued %d failed records\n", n)
	return nil
}

func (a *app) cmdPurge() error {
	n, err := a.retainer.Purge()
	if err != nil {
		return err
	}
	fmt.Printf("purged %d files from %s\n", n, a.retainer.Dir())
	return nil
}

func (a *app) cmdFolder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("folder: a subcommand is required (add, list, rm, enable, disable)")
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "add":
		if len(rest) != 1 {
			return fmt.Errorf("folder add: exactly one path is required")
		}
		return a.folderAdd(ctx, rest[0])
	case "list":
		return a.folderList(ctx)
	case "rm":
		id, err := folderID(rest)
		if err != nil {
			return err
		}
		return a.folders.Delete(ctx, id)
	case "enable":
		id, err := folderID(rest)
		if err != nil {
			return err
		}
		return a.folders.SetEnabled(ctx, id, true)
	case "disable":
		id, err := folderID(rest)
		if err != nil {
			return err
		}
		return a.folders.SetEnabled(ctx, id, false)
	case "recurse":
		if len(rest) != 2 {
			return fmt.Errorf("folder recurse: an id and on|off are required")
		}
		id, err := folderID(rest[:1])
		if err != nil {
			return err
		}
		var include bool
		switch rest[1] {
		case "on":
			include = true
		case "off":
			include = false
		default:
			return fmt.Errorf("folder recurse: want on or off, got %q", rest[1])
		}
		return a.folders.SetIncludeSubfolders(ctx, id, include)
	default:
		return fmt.Errorf("folder: unknown subcommand %q", cmd)
	}
}

func (a *app) folderAdd(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("folder add: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("folder add: %s is not a directory", abs)
	}

	folder := &vsync.WatchFolder{
		Path:              abs,
		DisplayName:       filepath.Base(abs),
		Enabled:           true,
		IncludeSubfolders: true,
		AddedAt:           time.Now(),
	}
	if err := a.folders.Add(ctx, folder); err != nil {
		return err
	}

	fmt.Printf("watching %s (id %d)\n", abs, folder.ID)
	return nil
}

func (a *app) folderList(ctx context.Context) error {
	folders, err := a.folders.List(ctx)
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		fmt.Println("no watch folders configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPATH\tENABLED\tRECURSIVE\tLAST SCAN")
	for _, f := range folders {
		lastScan := "never"
		if f.LastScanAt != nil {
			lastScan = f.LastScanAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%t\t%t\t%s\n",
			f.ID, f.Path, f.Enabled, f.IncludeSubfolders, lastScan)
	}
	return w.Flush()
}

func (a *app) cmdStatus(ctx context.Context) error {
	counts, err := a.records.CountByStatus(ctx)
	if err != nil {
		return err
	}
	totalBytes, err := a.records.TotalUploadedBytes(ctx)
	if err != nil {
		return err
	}
	lastSync, err := a.settings.LastSyncAt(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, status := range []vsync.UploadStatus{
		vsync.StatusPending, vsync.StatusUploading,
		vsync.StatusCompleted, vsync.StatusFailed,
	} {
		fmt.Fprintf(w, "%s\t%d\n", status, counts[status])
	}
	fmt.Fprintf(w, "uploaded\t%s\n", humanize.Bytes(uint64(totalBytes)))
	if lastSync.IsZero() {
		fmt.Fprintf(w, "last sync\tnever\n")
	} else {
		fmt.Fprintf(w, "last sync\t%s\n", lastSync.Format(time.RFC3339))
	}

	if held, err := a.retainer.Count(); err == nil && held > 0 {
		size, _ := a.retainer.Size()
		fmt.Fprintf(w, "holding area\t%d files (%s)\n", held, humanize.Bytes(uint64(size)))
	}

	return w.Flush()
}

func printResult(res *vsync.RunResult) {
	fmt.Printf("%s in %s: %d discovered, %d uploaded, %d failed, %d skipped\n",
		res.State, res.Duration.Round(time.Millisecond),
		res.Stats.Discovered, res.Stats.Uploaded, res.Stats.Failed, res.Stats.Skipped)
}

func folderID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("folder: exactly one id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("folder: invalid id %q", args[0])
	}
	return id, nil
}
