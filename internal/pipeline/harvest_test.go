package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
)

type fakeMailbox struct {
	messages    []internal.MessageSummary
	trees       map[string]*internal.AttachmentNode
	attachments map[string][]byte // keyed by ref
	fetchErr    error
	fetchCalls  int
}

func (f *fakeMailbox) Search(ctx context.Context, q connectors.MailQuery) ([]internal.MessageSummary, error) {
	return f.messages, nil
}

func (f *fakeMailbox) AttachmentTree(ctx context.Context, messageID string) (*internal.AttachmentNode, error) {
	tree, ok := f.trees[messageID]
	if !ok {
		return nil, errors.New("no such message")
	}
	return tree, nil
}

func (f *fakeMailbox) FetchAttachment(ctx context.Context, messageID, ref string) ([]byte, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.attachments[ref], nil
}

type fakeUploadDrive struct {
	existing map[string]bool
	uploads  map[string][]byte
}

func newFakeUploadDrive() *fakeUploadDrive {
	return &fakeUploadDrive{existing: map[string]bool{}, uploads: map[string][]byte{}}
}

func (f *fakeUploadDrive) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	return "folder", nil
}

func (f *fakeUploadDrive) Exists(ctx context.Context, name, folderID string) (bool, error) {
	return f.existing[name], nil
}

func (f *fakeUploadDrive) Upload(ctx context.Context, data []byte, name, folderID string) error {
	f.uploads[name] = data
	return nil
}

func (f *fakeUploadDrive) ListFiles(ctx context.Context, folderID string, daysBack int) ([]internal.DriveFile, error) {
	return nil, nil
}

func (f *fakeUploadDrive) Download(ctx context.Context, fileID string) ([]byte, error) {
	return nil, nil
}

func testHarvestConfig() config.Config {
	return config.Config{
		DriveFolderID:  "folder-1",
		MailDaysBack:   3,
		MailMaxResults: 1000,
	}
}

func leaf(filename, ref string) *internal.AttachmentNode {
	return &internal.AttachmentNode{Filename: filename, Ref: ref}
}

func newTestHarvester(mail *fakeMailbox, drive *fakeUploadDrive, cfg config.Config) *Harvester {
	return NewHarvester(cfg, log.New(io.Discard), mail, drive)
}

func TestHarvestUploadsAttachments(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{{ID: "m1", Subject: "GRN for PO 42"}},
		trees: map[string]*internal.AttachmentNode{
			"m1": {Parts: []*internal.AttachmentNode{
				leaf("", ""), // body part
				leaf("GRN#2024/01.pdf", "att-1"),
			}},
		},
		attachments: map[string][]byte{"att-1": []byte("pdf")},
	}
	drive := newFakeUploadDrive()

	stats, err := newTestHarvester(mail, drive, testHarvestConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.EmailsChecked != 1 || stats.Found != 1 || stats.Uploaded != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if _, ok := drive.uploads["GRN_2024_01.pdf"]; !ok {
		t.Fatalf("sanitized name missing from uploads: %v", drive.uploads)
	}
}

func TestHarvestSubjectFilter(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{
			{ID: "m1", Subject: "GRN for store 7"},
			{ID: "m2", Subject: "GDN dispatch note"},
			{ID: "m3", Subject: "weekly newsletter"},
		},
		trees: map[string]*internal.AttachmentNode{
			"m1": leaf("a.pdf", "r1"),
		},
		attachments: map[string][]byte{"r1": []byte("pdf")},
	}
	drive := newFakeUploadDrive()

	stats, err := newTestHarvester(mail, drive, testHarvestConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// Only m1 passed the filter, but every message was checked.
	if stats.EmailsChecked != 3 || stats.Found != 1 || stats.Uploaded != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestHarvestCustomSubjectFilter(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{{ID: "m1", Subject: "anything"}},
		trees: map[string]*internal.AttachmentNode{
			"m1": leaf("a.pdf", "r1"),
		},
		attachments: map[string][]byte{"r1": []byte("pdf")},
	}
	drive := newFakeUploadDrive()

	h := newTestHarvester(mail, drive, testHarvestConfig())
	h.SubjectFilter = func(string) bool { return true }

	stats, err := h.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Uploaded != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestHarvestAttachmentFilter(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{{ID: "m1", Subject: "GRN batch"}},
		trees: map[string]*internal.AttachmentNode{
			"m1": {Parts: []*internal.AttachmentNode{
				leaf("GRN_march.pdf", "r1"),
				leaf("terms.pdf", "r2"),
			}},
		},
		attachments: map[string][]byte{"r1": []byte("pdf"), "r2": []byte("pdf")},
	}
	drive := newFakeUploadDrive()

	cfg := testHarvestConfig()
	cfg.AttachmentFilter = "grn"

	stats, err := newTestHarvester(mail, drive, cfg).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Found != 2 || stats.Uploaded != 1 || stats.Skipped != 1 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestHarvestExistingFileCountsAsUploaded(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{{ID: "m1", Subject: "GRN batch"}},
		trees: map[string]*internal.AttachmentNode{
			"m1": leaf("a.pdf", "r1"),
		},
		attachments: map[string][]byte{"r1": []byte("pdf")},
	}
	drive := newFakeUploadDrive()
	drive.existing["a.pdf"] = true

	stats, err := newTestHarvester(mail, drive, testHarvestConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Uploaded != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if len(drive.uploads) != 0 {
		t.Fatalf("upload issued for existing file: %v", drive.uploads)
	}
}

func TestHarvestInlineDataSkipsFetch(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{{ID: "m1", Subject: "GRN batch"}},
		trees: map[string]*internal.AttachmentNode{
			"m1": {Filename: "a.pdf", Data: []byte("pdf")},
		},
	}
	drive := newFakeUploadDrive()

	stats, err := newTestHarvester(mail, drive, testHarvestConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Uploaded != 1 {
		t.Fatalf("stats=%+v", stats)
	}
	if mail.fetchCalls != 0 {
		t.Fatalf("fetchCalls=%d", mail.fetchCalls)
	}
}

func TestHarvestFetchFailureCountsFailed(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{{ID: "m1", Subject: "GRN batch"}},
		trees: map[string]*internal.AttachmentNode{
			"m1": leaf("a.pdf", "r1"),
		},
		fetchErr: errors.New("attachment gone"),
	}
	drive := newFakeUploadDrive()

	stats, err := newTestHarvester(mail, drive, testHarvestConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 1 || stats.Uploaded != 0 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestHarvestNestedTreesSum(t *testing.T) {
	mail := &fakeMailbox{
		messages: []internal.MessageSummary{{ID: "m1", Subject: "GRN batch"}},
		trees: map[string]*internal.AttachmentNode{
			"m1": {Parts: []*internal.AttachmentNode{
				{Parts: []*internal.AttachmentNode{
					leaf("inner1.pdf", "r1"),
					leaf("inner2.pdf", "r2"),
				}},
				leaf("outer.pdf", "r3"),
			}},
		},
		attachments: map[string][]byte{
			"r1": []byte("pdf"), "r2": []byte("pdf"), "r3": []byte("pdf"),
		},
	}
	drive := newFakeUploadDrive()

	stats, err := newTestHarvester(mail, drive, testHarvestConfig()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.Found != 3 || stats.Uploaded != 3 {
		t.Fatalf("stats=%+v", stats)
	}
}

func TestHarvestMissingFolderAborts(t *testing.T) {
	cfg := testHarvestConfig()
	cfg.DriveFolderID = ""
	h := newTestHarvester(&fakeMailbox{}, newFakeUploadDrive(), cfg)

	if _, err := h.Run(context.Background()); err == nil {
		t.Fatal("expected configuration error")
	}
}
