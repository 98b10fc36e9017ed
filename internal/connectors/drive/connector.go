package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"grnflow/internal"
	"grnflow/internal/config"
)

const folderMimeType = "application/vnd.google-apps.folder"

type Connector struct {
	service *drive.Service
}

func NewConnector(ctx context.Context, cfg config.Config) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{drive.DriveScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

func (c *Connector) EnsureFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", name, folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", parentID)
	}

	existing, err := c.service.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(existing.Files) > 0 {
		return existing.Files[0].Id, nil
	}

	meta := &drive.File{Name: name, MimeType: folderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	folder, err := c.service.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return folder.Id, nil
}

func (c *Connector) Exists(ctx context.Context, name, folderID string) (bool, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", name, folderID)
	existing, err := c.service.Files.List().Q(query).Fields("files(id, name)").Context(ctx).Do()
	if err != nil {
		return false, err
	}
	return len(existing.Files) > 0, nil
}

func (c *Connector) Upload(ctx context.Context, data []byte, name, folderID string) error {
	meta := &drive.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	_, err := c.service.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id").
		Context(ctx).Do()
	return err
}

// ListFiles returns the folder's PDFs created within the window, newest
// first, walking all result pages.
func (c *Connector) ListFiles(ctx context.Context, folderID string, daysBack int) ([]internal.DriveFile, error) {
	start := time.Now().UTC().AddDate(0, 0, -(daysBack - 1))
	query := fmt.Sprintf(
		"'%s' in parents and mimeType='application/pdf' and trashed=false and createdTime >= '%s'",
		folderID, start.Format("2006-01-02T00:00:00Z"),
	)

	out := []internal.DriveFile{}
	pageToken := ""
	for {
		call := c.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, createdTime)").
			OrderBy("createdTime desc").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, err
		}
		for _, f := range resp.Files {
			out = append(out, internal.DriveFile{ID: f.Id, Name: f.Name, CreatedTime: f.CreatedTime})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return out, nil
}

func (c *Connector) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}
