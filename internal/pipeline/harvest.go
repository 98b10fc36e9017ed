package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
	"grnflow/internal/util"
)

// Harvester runs the mail-to-drive workflow: search the mailbox, walk
// each eligible message's attachment tree and land matching PDFs in the
// target Drive folder. A file already present under the same name
// counts as uploaded.
type Harvester struct {
	cfg    config.Config
	logger *log.Logger
	mail   connectors.Mailbox
	drive  connectors.DriveStore

	// SubjectFilter decides message eligibility. The GRN-not-GDN rule
	// is a convention of one sender, so it is injected rather than
	// baked into the walk.
	SubjectFilter func(subject string) bool
}

func NewHarvester(cfg config.Config, logger *log.Logger, mail connectors.Mailbox, drive connectors.DriveStore) *Harvester {
	return &Harvester{
		cfg:           cfg,
		logger:        logger,
		mail:          mail,
		drive:         drive,
		SubjectFilter: DefaultSubjectFilter,
	}
}

// DefaultSubjectFilter accepts subjects mentioning GRN unless they also
// mention GDN (goods dispatch notes travel on the same thread prefix).
func DefaultSubjectFilter(subject string) bool {
	s := strings.ToUpper(subject)
	return strings.Contains(s, "GRN") && !strings.Contains(s, "GDN")
}

func (h *Harvester) Run(ctx context.Context) (internal.HarvestStats, error) {
	stats := internal.HarvestStats{}

	if err := h.cfg.Require("DRIVE_FOLDER_ID", h.cfg.DriveFolderID); err != nil {
		return stats, err
	}

	query := connectors.MailQuery{
		Sender:     h.cfg.MailSender,
		Keywords:   splitKeywords(h.cfg.MailSearchTerm),
		DaysBack:   h.cfg.MailDaysBack,
		MaxResults: h.cfg.MailMaxResults,
	}
	messages, err := h.mail.Search(ctx, query)
	if err != nil {
		return stats, fmt.Errorf("mail search: %w", err)
	}
	stats.EmailsChecked = len(messages)
	h.logger.Info("mailbox searched", "messages", len(messages))

	for _, msg := range messages {
		if h.SubjectFilter != nil && !h.SubjectFilter(msg.Subject) {
			h.logger.Debug("message not eligible", "subject", msg.Subject)
			continue
		}

		tree, err := h.mail.AttachmentTree(ctx, msg.ID)
		if err != nil {
			stats.Failed++
			h.logger.Error("attachment tree failed", "message", msg.ID, "error", err)
			continue
		}

		msgStats := h.walk(ctx, msg.ID, tree)
		stats.Add(msgStats)
		h.logger.Info("message harvested",
			"subject", truncate(msg.Subject, 50),
			"uploaded", msgStats.Uploaded, "skipped", msgStats.Skipped, "failed", msgStats.Failed)
	}

	return stats, nil
}

// walk descends one attachment tree. Parent totals are the sum of
// child totals.
func (h *Harvester) walk(ctx context.Context, messageID string, node *internal.AttachmentNode) internal.HarvestStats {
	stats := internal.HarvestStats{}

	if len(node.Parts) > 0 {
		for _, part := range node.Parts {
			stats.Add(h.walk(ctx, messageID, part))
		}
		return stats
	}

	// Body parts have no filename and no attachment payload.
	if node.Filename == "" || (node.Ref == "" && node.Data == nil) {
		return stats
	}
	stats.Found = 1

	filter := h.cfg.AttachmentFilter
	if filter != "" && !strings.Contains(strings.ToLower(node.Filename), strings.ToLower(filter)) {
		h.logger.Debug("attachment filtered", "filename", node.Filename, "filter", filter)
		stats.Skipped = 1
		return stats
	}

	data := node.Data
	if data == nil {
		fetched, err := h.mail.FetchAttachment(ctx, messageID, node.Ref)
		if err != nil {
			h.logger.Error("attachment fetch failed", "filename", node.Filename, "error", err)
			stats.Failed = 1
			return stats
		}
		data = fetched
	}
	if len(data) == 0 {
		stats.Failed = 1
		return stats
	}

	name := util.SanitizeFilename(node.Filename)

	exists, err := h.drive.Exists(ctx, name, h.cfg.DriveFolderID)
	if err != nil {
		h.logger.Error("existence check failed", "filename", name, "error", err)
		stats.Failed = 1
		return stats
	}
	if exists {
		// Already landed by an earlier run.
		stats.Uploaded = 1
		return stats
	}

	if err := h.drive.Upload(ctx, data, name, h.cfg.DriveFolderID); err != nil {
		h.logger.Error("upload failed", "filename", name, "error", err)
		stats.Failed = 1
		return stats
	}
	stats.Uploaded = 1
	return stats
}

func splitKeywords(term string) []string {
	if strings.TrimSpace(term) == "" {
		return nil
	}
	parts := strings.Split(term, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
