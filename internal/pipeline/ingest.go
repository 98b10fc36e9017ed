package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
	"grnflow/internal/extractor"
	"grnflow/internal/retry"
	"grnflow/internal/storage"
)

// Ingestor runs the drive-to-sheet workflow: list candidate PDFs,
// filter out already-ingested identities, extract, normalize, append.
// Each document is its own unit of failure and its own append batch.
type Ingestor struct {
	cfg       config.Config
	logger    *log.Logger
	drive     connectors.DriveStore
	sheets    connectors.SheetStore
	extractor extractor.Extractor
	ledger    *storage.DB // optional

	extractRetry retry.Policy
	appendRetry  retry.Policy
	now          func() time.Time
}

func NewIngestor(cfg config.Config, logger *log.Logger, drive connectors.DriveStore, sheets connectors.SheetStore, ex extractor.Extractor, ledger *storage.DB) *Ingestor {
	return &Ingestor{
		cfg:       cfg,
		logger:    logger,
		drive:     drive,
		sheets:    sheets,
		extractor: ex,
		ledger:    ledger,
		extractRetry: retry.Policy{
			MaxAttempts: cfg.ExtractMaxAttempts,
			Backoff:     time.Duration(cfg.ExtractBackoffSec) * time.Second,
		},
		appendRetry: retry.Policy{
			MaxAttempts: cfg.AppendMaxAttempts,
			Backoff:     time.Duration(cfg.AppendBackoffSec) * time.Second,
		},
		now: time.Now,
	}
}

func (s *Ingestor) Run(ctx context.Context) (internal.IngestStats, error) {
	stats := internal.IngestStats{}

	if err := s.cfg.Require("SPREADSHEET_ID", s.cfg.SpreadsheetID); err != nil {
		return stats, err
	}
	if err := s.cfg.Require("DRIVE_FOLDER_ID", s.cfg.DriveFolderID); err != nil {
		return stats, err
	}

	header, err := s.reconcileHeader(ctx)
	if err != nil {
		return stats, fmt.Errorf("reconcile header: %w", err)
	}

	index := s.loadDedupIndex(ctx)
	s.logger.Info("dedup index loaded", "known", len(index))

	files, err := s.drive.ListFiles(ctx, s.cfg.DriveFolderID, s.cfg.SheetDaysBack)
	if err != nil {
		return stats, fmt.Errorf("list drive files: %w", err)
	}
	stats.Found = len(files)

	candidates := FilterCandidates(files, index)
	stats.Skipped = stats.Found - len(candidates)
	if s.cfg.MaxFiles > 0 && len(candidates) > s.cfg.MaxFiles {
		candidates = candidates[:s.cfg.MaxFiles]
	}
	s.logger.Info("candidates resolved", "found", stats.Found, "skipped", stats.Skipped, "to_process", len(candidates))

	for _, file := range candidates {
		rows, err := s.processFile(ctx, file, header)
		if err != nil {
			stats.Failed++
			s.logger.Error("file failed", "name", file.Name, "error", err)
			s.recordFile(file, 0, "failed")
			continue
		}
		stats.Processed++
		stats.RowsAdded += rows
		s.logger.Info("file processed", "name", file.Name, "rows", rows)
		s.recordFile(file, rows, "processed")
	}

	return stats, nil
}

// processFile walks one candidate through download, extraction,
// normalization and append. Any error fails this document only.
func (s *Ingestor) processFile(ctx context.Context, file internal.DriveFile, header []string) (int, error) {
	data, err := s.drive.Download(ctx, file.ID)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("download yielded no bytes")
	}

	var payload any
	err = s.extractRetry.Do(func() error {
		extracted, extractErr := s.extractor.Extract(ctx, data)
		if extractErr != nil {
			s.logger.Warn("extraction attempt failed", "name", file.Name, "error", extractErr)
			return extractErr
		}
		payload = extracted
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}

	rows := []CanonicalRow{}
	for _, doc := range ResolveShape(payload) {
		rows = append(rows, NormalizeDocument(doc, file, s.now())...)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no rows normalized")
	}

	sheetRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		sheetRows = append(sheetRows, row.ToSheetRow(header))
	}

	err = s.appendRetry.Do(func() error {
		return s.sheets.Append(ctx, s.cfg.SpreadsheetID, s.cfg.SheetRange, sheetRows)
	})
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}

	return len(sheetRows), nil
}

// reconcileHeader brings the sheet header up to the canonical column
// set: written whole when absent, widened in place when columns are
// missing, untouched otherwise. Existing columns never move.
func (s *Ingestor) reconcileHeader(ctx context.Context) ([]string, error) {
	header, err := s.sheets.Header(ctx, s.cfg.SpreadsheetID, s.cfg.SheetName())
	if err != nil {
		return nil, err
	}

	if len(header) == 0 {
		header = HeaderColumns()
		if err := s.sheets.WriteHeader(ctx, s.cfg.SpreadsheetID, s.cfg.SheetName(), header); err != nil {
			return nil, err
		}
		return header, nil
	}

	present := map[string]struct{}{}
	for _, col := range header {
		present[col] = struct{}{}
	}
	missing := []string{}
	for _, col := range HeaderColumns() {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return header, nil
	}

	header = append(header, missing...)
	if err := s.sheets.WriteHeader(ctx, s.cfg.SpreadsheetID, s.cfg.SheetName(), header); err != nil {
		return nil, err
	}
	return header, nil
}

// loadDedupIndex reads the sheet's current rows. A read failure means
// we cannot prove prior ingestion, so nothing is skipped; re-appending
// is preferred over silently dropping documents.
func (s *Ingestor) loadDedupIndex(ctx context.Context) map[string]struct{} {
	values, err := s.sheets.Values(ctx, s.cfg.SpreadsheetID, s.cfg.SheetRange)
	if err != nil {
		s.logger.Warn("could not read existing rows", "error", err)
		return map[string]struct{}{}
	}
	return BuildDedupIndex(values, identityColumn)
}

func (s *Ingestor) recordFile(file internal.DriveFile, rows int, status string) {
	if s.ledger == nil {
		return
	}
	processedAt := s.now().UTC().Format(time.RFC3339)
	if err := s.ledger.RecordFile(file.Name, file.ID, rows, status, processedAt); err != nil {
		s.logger.Warn("ledger record failed", "name", file.Name, "error", err)
	}
}
