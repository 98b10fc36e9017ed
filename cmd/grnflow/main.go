package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"grnflow/internal/config"
	"grnflow/internal/connectors"
	driveconnector "grnflow/internal/connectors/drive"
	gmailconnector "grnflow/internal/connectors/gmail"
	imapconnector "grnflow/internal/connectors/imap"
	sheetsconnector "grnflow/internal/connectors/sheets"
	"grnflow/internal/coordinator"
	"grnflow/internal/extractor"
	"grnflow/internal/notify"
	"grnflow/internal/pipeline"
	"grnflow/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	ctx := context.Background()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	cmd := os.Args[1]
	switch cmd {
	case "harvest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailProvider, "gmail|imap")
		days := fs.Int("days", cfg.MailDaysBack, "mail search window in days")
		_ = fs.Parse(os.Args[2:])
		cfg.MailDaysBack = *days

		mail, err := makeMailbox(ctx, cfg, *provider)
		must(err)
		drive, err := driveconnector.NewConnector(ctx, cfg)
		must(err)

		stats, err := pipeline.NewHarvester(cfg, logger, mail, drive).Run(ctx)
		must(err)
		fmt.Printf("harvest done emails=%d found=%d uploaded=%d skipped=%d failed=%d\n",
			stats.EmailsChecked, stats.Found, stats.Uploaded, stats.Skipped, stats.Failed)
	case "ingest":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		days := fs.Int("days", cfg.SheetDaysBack, "drive listing window in days")
		max := fs.Int("max", cfg.MaxFiles, "max files per run")
		extractorName := fs.String("extractor", "remote", "remote|local")
		_ = fs.Parse(os.Args[2:])
		cfg.SheetDaysBack = *days
		cfg.MaxFiles = *max

		drive, err := driveconnector.NewConnector(ctx, cfg)
		must(err)
		sheets, err := sheetsconnector.NewConnector(ctx, cfg)
		must(err)
		ex, err := makeExtractor(cfg, *extractorName)
		must(err)

		stats, err := pipeline.NewIngestor(cfg, logger, drive, sheets, ex, db).Run(ctx)
		must(err)
		fmt.Printf("ingest done found=%d processed=%d skipped=%d failed=%d rows=%d\n",
			stats.Found, stats.Processed, stats.Skipped, stats.Failed, stats.RowsAdded)
	case "run", "schedule":
		coord, err := makeCoordinator(ctx, cfg, logger, db)
		must(err)
		if cmd == "run" {
			summary := coord.RunOnce(ctx)
			fmt.Printf("run done status=%q uploaded=%d processed=%d rows=%d\n",
				summary.Status, summary.Harvest.Uploaded, summary.Ingest.Processed, summary.Ingest.RowsAdded)
			return
		}
		must(coord.Schedule(ctx))
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, "grn.xlsx"), "output xlsx path")
		_ = fs.Parse(os.Args[2:])

		must(cfg.Require("SPREADSHEET_ID", cfg.SpreadsheetID))
		sheets, err := sheetsconnector.NewConnector(ctx, cfg)
		must(err)
		rows, err := sheets.Values(ctx, cfg.SpreadsheetID, cfg.SheetRange)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("sheet %s is empty", cfg.SheetName()))
		}
		must(pipeline.ExportRowsToXLSX(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 20, "max runs to list")
		_ = fs.Parse(os.Args[2:])

		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("#%d %s %s -> %s status=%s stats=%s\n",
				r.ID, r.Workflow, r.StartedAt, r.FinishedAt, r.Status, r.StatsJSON)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func makeCoordinator(ctx context.Context, cfg config.Config, logger *log.Logger, db *storage.DB) (*coordinator.Coordinator, error) {
	mail, err := makeMailbox(ctx, cfg, cfg.MailProvider)
	if err != nil {
		return nil, err
	}
	drive, err := driveconnector.NewConnector(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sheets, err := sheetsconnector.NewConnector(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Only the Gmail connector can send mail; with IMAP the summary
	// email is skipped.
	var sender connectors.Sender
	if g, ok := mail.(*gmailconnector.Connector); ok {
		sender = g
	}

	harvester := pipeline.NewHarvester(cfg, logger, mail, drive)
	ingestor := pipeline.NewIngestor(cfg, logger, drive, sheets, extractor.NewClient(cfg), db)
	notifier := notify.New(cfg, logger, sender)
	return coordinator.New(cfg, logger, harvester, ingestor, sheets, notifier, db), nil
}

func makeMailbox(ctx context.Context, cfg config.Config, provider string) (connectors.Mailbox, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func makeExtractor(cfg config.Config, name string) (extractor.Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "remote":
		return extractor.NewClient(cfg), nil
	case "local":
		return extractor.LocalPDF{}, nil
	default:
		return nil, fmt.Errorf("unsupported extractor: %s", name)
	}
}

func usage() {
	fmt.Println("usage: grnflow <command>")
	fmt.Println("commands:")
	fmt.Println("  harvest --provider=gmail|imap --days=3")
	fmt.Println("  ingest --days=3 --max=1000 --extractor=remote|local")
	fmt.Println("  run")
	fmt.Println("  schedule")
	fmt.Println("  export:xlsx --out=./out/grn.xlsx")
	fmt.Println("  runs --limit=20")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
