// Package coordinator sequences the two workflows: mail-to-drive
// harvest followed by drive-to-sheet ingestion, with a workflow log
// row and a summary email per run.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
	"grnflow/internal/notify"
	"grnflow/internal/pipeline"
	"grnflow/internal/storage"
)

var logHeader = []string{
	"Start Time", "End Time", "Duration", "Workflow",
	"Processed", "Total Items", "Failed", "Skipped", "Status",
}

const timeLayout = "2006-01-02 15:04:05"

// RunSummary is what one coordinated run produced. Workflow failures
// are folded into the stats and status; they never abort the run.
type RunSummary struct {
	Start   time.Time
	End     time.Time
	Status  string
	Harvest internal.HarvestStats
	Ingest  internal.IngestStats

	HarvestErr error
	IngestErr  error
}

type Coordinator struct {
	cfg       config.Config
	logger    *log.Logger
	harvester *pipeline.Harvester
	ingestor  *pipeline.Ingestor
	sheets    connectors.SheetStore
	notifier  *notify.Notifier
	ledger    *storage.DB // optional

	// pause separates the workflows so the Drive listing sees the
	// harvest's uploads.
	pause time.Duration
	sleep func(time.Duration)
	now   func() time.Time
}

func New(cfg config.Config, logger *log.Logger, harvester *pipeline.Harvester, ingestor *pipeline.Ingestor, sheets connectors.SheetStore, notifier *notify.Notifier, ledger *storage.DB) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		logger:    logger,
		harvester: harvester,
		ingestor:  ingestor,
		sheets:    sheets,
		notifier:  notifier,
		ledger:    ledger,
		pause:     5 * time.Second,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// RunOnce runs harvest then ingestion and reports on both. It always
// returns a summary; per-workflow errors are recorded, logged and
// carried into the status line.
func (c *Coordinator) RunOnce(ctx context.Context) RunSummary {
	summary := RunSummary{Start: c.now().UTC()}
	c.logger.Info("workflow run starting")

	harvestStart := c.now().UTC()
	harvestStats, err := c.harvester.Run(ctx)
	harvestEnd := c.now().UTC()
	summary.Harvest = harvestStats
	summary.HarvestErr = err
	if err != nil {
		c.logger.Error("harvest workflow failed", "error", err)
	}
	c.logWorkflow(ctx, "Mail to Drive", harvestStart, harvestEnd,
		harvestStats.Uploaded, harvestStats.Found, harvestStats.Failed, harvestStats.Skipped,
		err == nil)

	c.sleep(c.pause)

	ingestStart := c.now().UTC()
	ingestStats, err := c.ingestor.Run(ctx)
	ingestEnd := c.now().UTC()
	summary.Ingest = ingestStats
	summary.IngestErr = err
	if err != nil {
		c.logger.Error("ingest workflow failed", "error", err)
	}
	c.logWorkflow(ctx, "Drive to Sheet", ingestStart, ingestEnd,
		ingestStats.Processed, ingestStats.RowsAdded, ingestStats.Failed, ingestStats.Skipped,
		err == nil)

	summary.End = c.now().UTC()
	summary.Status = runStatus(summary)

	c.recordRun(summary)

	if c.notifier != nil {
		notice := notify.Summary{
			Start:    summary.Start,
			End:      summary.End,
			Status:   summary.Status,
			DaysBack: c.cfg.MailDaysBack,
			Harvest:  summary.Harvest,
			Ingest:   summary.Ingest,
		}
		if err := c.notifier.Send(ctx, notice); err != nil {
			c.logger.Error("notification failed", "error", err)
		}
	}

	c.logger.Info("workflow run completed",
		"status", summary.Status,
		"emails_checked", summary.Harvest.EmailsChecked,
		"uploaded", summary.Harvest.Uploaded,
		"processed", summary.Ingest.Processed,
		"rows_added", summary.Ingest.RowsAdded)

	return summary
}

// Schedule runs once immediately, then per the cron spec until ctx is
// cancelled.
func (c *Coordinator) Schedule(ctx context.Context) error {
	c.RunOnce(ctx)

	sched := cron.New()
	_, err := sched.AddFunc(c.cfg.ScheduleSpec, func() {
		c.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("bad schedule spec %q: %w", c.cfg.ScheduleSpec, err)
	}

	sched.Start()
	c.logger.Info("scheduler started", "spec", c.cfg.ScheduleSpec)

	<-ctx.Done()
	<-sched.Stop().Done()
	return ctx.Err()
}

// logWorkflow appends one row to the workflow log sheet, writing the
// header first on an empty tab. Log failures are not worth failing the
// run over.
func (c *Coordinator) logWorkflow(ctx context.Context, workflow string, start, end time.Time, processed, totalItems, failed, skipped int, ok bool) {
	if c.sheets == nil || c.cfg.SpreadsheetID == "" || c.cfg.LogSheetRange == "" {
		return
	}

	header, err := c.sheets.Header(ctx, c.cfg.SpreadsheetID, c.cfg.LogSheetName())
	if err != nil {
		c.logger.Warn("workflow log header read failed", "error", err)
		return
	}
	if len(header) == 0 {
		if err := c.sheets.Append(ctx, c.cfg.SpreadsheetID, c.cfg.LogSheetRange, [][]string{logHeader}); err != nil {
			c.logger.Warn("workflow log header write failed", "error", err)
			return
		}
	}

	status := "Failed"
	if ok {
		status = "Success"
	}
	row := []string{
		start.Format(timeLayout),
		end.Format(timeLayout),
		formatDuration(end.Sub(start)),
		workflow,
		fmt.Sprint(processed),
		fmt.Sprint(totalItems),
		fmt.Sprint(failed),
		fmt.Sprint(skipped),
		status,
	}
	if err := c.sheets.Append(ctx, c.cfg.SpreadsheetID, c.cfg.LogSheetRange, [][]string{row}); err != nil {
		c.logger.Warn("workflow log append failed", "workflow", workflow, "error", err)
	}
}

func (c *Coordinator) recordRun(summary RunSummary) {
	if c.ledger == nil {
		return
	}
	stats := map[string]int{
		"emails_checked":       summary.Harvest.EmailsChecked,
		"attachments_found":    summary.Harvest.Found,
		"attachments_uploaded": summary.Harvest.Uploaded,
		"attachments_skipped":  summary.Harvest.Skipped,
		"attachments_failed":   summary.Harvest.Failed,
		"files_found":          summary.Ingest.Found,
		"files_processed":      summary.Ingest.Processed,
		"files_skipped":        summary.Ingest.Skipped,
		"files_failed":         summary.Ingest.Failed,
		"rows_added":           summary.Ingest.RowsAdded,
	}
	err := c.ledger.InsertRun("coordinator",
		summary.Start.Format(time.RFC3339),
		summary.End.Format(time.RFC3339),
		summary.Status, stats)
	if err != nil {
		c.logger.Warn("run ledger insert failed", "error", err)
	}
}

func runStatus(s RunSummary) string {
	switch {
	case s.HarvestErr == nil && s.IngestErr == nil && s.Harvest.Failed == 0 && s.Ingest.Failed == 0:
		return "Completed Successfully"
	case s.HarvestErr != nil && s.IngestErr != nil:
		return "Failed"
	default:
		return "Partially Completed"
	}
}

// formatDuration renders short durations in seconds and longer ones in
// minutes and seconds, matching the workflow log's existing rows.
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 60 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%dm %ds", int(secs)/60, int(secs)%60)
}
