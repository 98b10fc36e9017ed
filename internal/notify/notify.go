// Package notify builds and sends the end-of-run summary email.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
)

const timeLayout = "2006-01-02 15:04:05"

// Summary carries everything the report mentions about one coordinator
// run.
type Summary struct {
	Start    time.Time
	End      time.Time
	Status   string
	DaysBack int

	Harvest internal.HarvestStats
	Ingest  internal.IngestStats
}

func (s Summary) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Subject returns the notification subject line for the run.
func (s Summary) Subject() string {
	return fmt.Sprintf("GRN Automation Workflow Summary - %s", s.End.Format(timeLayout))
}

// Body renders the plain-text report. The layout is stable so recipients
// can filter on it.
func (s Summary) Body() string {
	minutes := s.Duration().Minutes()

	lines := []string{
		"GRN Automation Workflow Summary",
		fmt.Sprintf("Workflow Time: %s to %s", s.Start.Format(timeLayout), s.End.Format(timeLayout)),
		"",
		fmt.Sprintf("Duration: %.2f minutes", minutes),
		"",
		fmt.Sprintf("Status: %s", s.Status),
		"",
		"Mail to Drive Workflow",
		fmt.Sprintf("Days Back Parameter: %d days", s.DaysBack),
		fmt.Sprintf("Number of Mails Checked: %d", s.Harvest.EmailsChecked),
		fmt.Sprintf("Number of Attachments Found: %d", s.Harvest.Found),
		fmt.Sprintf("Number of Attachments Uploaded: %d", s.Harvest.Uploaded),
		fmt.Sprintf("Number of Attachments Skipped: %d", s.Harvest.Skipped),
		fmt.Sprintf("Failed to Upload: %d", s.Harvest.Failed),
		"",
		"Drive to Sheet Workflow",
		fmt.Sprintf("Number of Files Found: %d", s.Ingest.Found),
		fmt.Sprintf("Number of Files Processed: %d", s.Ingest.Processed),
		fmt.Sprintf("Number of Files Skipped: %d", s.Ingest.Skipped),
		fmt.Sprintf("Number of Files Failed to Process: %d", s.Ingest.Failed),
		fmt.Sprintf("Number of Rows Added: %d", s.Ingest.RowsAdded),
		"",
		strings.Repeat("=", 50),
		"This is an automated report from the GRN scheduler.",
		"",
	}
	return strings.Join(lines, "\n")
}

// Notifier sends the summary to the configured recipients. A run with
// no recipients configured is not an error; the report is just skipped.
type Notifier struct {
	cfg    config.Config
	logger *log.Logger
	sender connectors.Sender
}

func New(cfg config.Config, logger *log.Logger, sender connectors.Sender) *Notifier {
	return &Notifier{cfg: cfg, logger: logger, sender: sender}
}

func (n *Notifier) Send(ctx context.Context, summary Summary) error {
	if n.sender == nil || len(n.cfg.NotifyRecipients) == 0 {
		n.logger.Debug("notification skipped", "recipients", len(n.cfg.NotifyRecipients))
		return nil
	}

	err := n.sender.SendPlainText(ctx, n.cfg.NotifySender, n.cfg.NotifyRecipients, summary.Subject(), summary.Body())
	if err != nil {
		return fmt.Errorf("send summary: %w", err)
	}
	n.logger.Info("summary sent", "recipients", strings.Join(n.cfg.NotifyRecipients, ", "))
	return nil
}
