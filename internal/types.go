package internal

// DriveFile is one listing entry from the Drive source folder.
type DriveFile struct {
	ID          string
	Name        string
	CreatedTime string
}

// MessageSummary carries the headers needed to decide whether a message
// is eligible for harvesting.
type MessageSummary struct {
	ID         string
	Subject    string
	From       string
	ReceivedAt string
}

// AttachmentNode is one node of a message's MIME part tree. Containers
// carry Parts; leaves carry a filename plus either a provider attachment
// reference (Gmail) or the decoded bytes inline (IMAP).
type AttachmentNode struct {
	Filename string
	Ref      string
	Data     []byte
	Parts    []*AttachmentNode
}

// HarvestStats accumulates one mail-to-drive run.
type HarvestStats struct {
	EmailsChecked int
	Found         int
	Uploaded      int
	Skipped       int
	Failed        int
}

func (s *HarvestStats) Add(other HarvestStats) {
	s.Found += other.Found
	s.Uploaded += other.Uploaded
	s.Skipped += other.Skipped
	s.Failed += other.Failed
}

// IngestStats accumulates one drive-to-sheet run.
type IngestStats struct {
	Found     int
	Processed int
	Skipped   int
	Failed    int
	RowsAdded int
}

// RunRecord is one ledger row of run history.
type RunRecord struct {
	ID         int
	Workflow   string
	StartedAt  string
	FinishedAt string
	Status     string
	StatsJSON  string
}

// FileRecord is the ledger's view of one processed source document.
type FileRecord struct {
	ID          int
	Name        string
	DriveFileID string
	Rows        int
	Status      string
	ProcessedAt string
}
