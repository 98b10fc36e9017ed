package connectors

import (
	"context"
	"time"

	"grnflow/internal"
)

// MailQuery narrows a mailbox search to GRN-bearing messages.
type MailQuery struct {
	Sender     string
	Keywords   []string
	DaysBack   int
	MaxResults int
}

// Since is the start of the query's age window.
func (q MailQuery) Since(now time.Time) time.Time {
	return now.AddDate(0, 0, -q.DaysBack)
}

type Mailbox interface {
	Search(ctx context.Context, query MailQuery) ([]internal.MessageSummary, error)
	AttachmentTree(ctx context.Context, messageID string) (*internal.AttachmentNode, error)
	FetchAttachment(ctx context.Context, messageID, ref string) ([]byte, error)
}

// Sender delivers the run summary notification.
type Sender interface {
	SendPlainText(ctx context.Context, from string, to []string, subject, body string) error
}

type DriveStore interface {
	EnsureFolder(ctx context.Context, name, parentID string) (string, error)
	Exists(ctx context.Context, name, folderID string) (bool, error)
	Upload(ctx context.Context, data []byte, name, folderID string) error
	ListFiles(ctx context.Context, folderID string, daysBack int) ([]internal.DriveFile, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type SheetStore interface {
	Header(ctx context.Context, spreadsheetID, sheetName string) ([]string, error)
	WriteHeader(ctx context.Context, spreadsheetID, sheetName string, columns []string) error
	Values(ctx context.Context, spreadsheetID, valueRange string) ([][]string, error)
	Append(ctx context.Context, spreadsheetID, valueRange string, rows [][]string) error
}
