package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
)

type Connector struct {
	service *gmail.Service
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
		Scopes:       []string{gmail.GmailReadonlyScope, gmail.GmailSendScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc}, nil
}

func (c *Connector) Search(ctx context.Context, query connectors.MailQuery) ([]internal.MessageSummary, error) {
	q := buildQuery(query, time.Now())

	listResp, err := c.service.Users.Messages.List("me").Q(q).MaxResults(int64(query.MaxResults)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail search: %w", err)
	}

	out := make([]internal.MessageSummary, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		meta, err := c.service.Users.Messages.Get("me", ref.Id).
			Format("metadata").MetadataHeaders("Subject", "From", "Date").
			Context(ctx).Do()
		if err != nil {
			return nil, err
		}

		headers := map[string]string{}
		if meta.Payload != nil {
			for _, h := range meta.Payload.Headers {
				headers[strings.ToLower(h.Name)] = h.Value
			}
		}

		out = append(out, internal.MessageSummary{
			ID:         ref.Id,
			Subject:    headers["subject"],
			From:       headers["from"],
			ReceivedAt: headers["date"],
		})
	}

	return out, nil
}

func (c *Connector) AttachmentTree(ctx context.Context, messageID string) (*internal.AttachmentNode, error) {
	msg, err := c.service.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if msg.Payload == nil {
		return &internal.AttachmentNode{}, nil
	}
	return partToNode(msg.Payload), nil
}

func (c *Connector) FetchAttachment(ctx context.Context, messageID, ref string) ([]byte, error) {
	att, err := c.service.Users.Messages.Attachments.Get("me", messageID, ref).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if att.Data == "" {
		return nil, fmt.Errorf("attachment %s has no data", ref)
	}
	return decodeBase64URL(att.Data)
}

func (c *Connector) SendPlainText(ctx context.Context, from string, to []string, subject, body string) error {
	lines := []string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"Content-Type: text/plain; charset=utf-8",
		"MIME-Version: 1.0",
		"",
		body,
	}
	raw := base64.RawURLEncoding.EncodeToString([]byte(strings.Join(lines, "\r\n")))

	_, err := c.service.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	return err
}

// ProfileEmail returns the authenticated account's address, used as the
// notification sender when none is configured.
func (c *Connector) ProfileEmail(ctx context.Context) (string, error) {
	profile, err := c.service.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return profile.EmailAddress, nil
}

func buildQuery(query connectors.MailQuery, now time.Time) string {
	parts := []string{"has:attachment"}

	if query.Sender != "" {
		parts = append(parts, fmt.Sprintf("from:%q", query.Sender))
	}
	if len(query.Keywords) == 1 {
		parts = append(parts, fmt.Sprintf("%q", query.Keywords[0]))
	} else if len(query.Keywords) > 1 {
		quoted := make([]string, 0, len(query.Keywords))
		for _, kw := range query.Keywords {
			if strings.TrimSpace(kw) != "" {
				quoted = append(quoted, fmt.Sprintf("%q", kw))
			}
		}
		if len(quoted) > 0 {
			parts = append(parts, "("+strings.Join(quoted, " OR ")+")")
		}
	}

	parts = append(parts, "after:"+query.Since(now).Format("2006/01/02"))
	return strings.Join(parts, " ")
}

func partToNode(part *gmail.MessagePart) *internal.AttachmentNode {
	node := &internal.AttachmentNode{Filename: part.Filename}
	if part.Body != nil {
		node.Ref = part.Body.AttachmentId
	}
	for _, child := range part.Parts {
		node.Parts = append(node.Parts, partToNode(child))
	}
	return node
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail attachment payload: %w", err)
}
