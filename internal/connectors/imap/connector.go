package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"

	"grnflow/internal"
	"grnflow/internal/config"
	"grnflow/internal/connectors"
)

// Connector implements the Mailbox contract over plain IMAP. Raw
// messages are held for the lifetime of the connector so the attachment
// tree can be built without a second round trip; leaf nodes carry their
// decoded bytes inline.
type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	mailbox  string

	raw map[string][]byte
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		mailbox:  "INBOX",
		raw:      map[string][]byte{},
	}, nil
}

func (c *Connector) Search(ctx context.Context, query connectors.MailQuery) ([]internal.MessageSummary, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, err
	}
	if _, err := client.Select(c.mailbox, true); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = query.Since(time.Now())
	if query.Sender != "" {
		criteria.Header.Add("From", query.Sender)
	}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if query.MaxResults > 0 && len(ids) > query.MaxResults {
		ids = ids[len(ids)-query.MaxResults:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.MessageSummary, 0, len(ids))
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}

		messageID := ""
		subject := ""
		from := ""
		if msg.Envelope != nil {
			messageID = msg.Envelope.MessageId
			subject = msg.Envelope.Subject
			from = formatAddresses(msg.Envelope.From)
		}
		if messageID == "" {
			messageID = fmt.Sprintf("imap-%d", msg.Uid)
		}

		received := time.Now().UTC().Format(time.RFC3339)
		if !msg.InternalDate.IsZero() {
			received = msg.InternalDate.UTC().Format(time.RFC3339)
		}

		c.raw[messageID] = raw
		out = append(out, internal.MessageSummary{
			ID:         messageID,
			Subject:    subject,
			From:       from,
			ReceivedAt: received,
		})
	}

	if err := <-fetchDone; err != nil {
		return nil, err
	}
	_ = ctx

	return out, nil
}

func (c *Connector) AttachmentTree(ctx context.Context, messageID string) (*internal.AttachmentNode, error) {
	raw, ok := c.raw[messageID]
	if !ok {
		return nil, fmt.Errorf("message not fetched: %s", messageID)
	}
	_ = ctx
	return TreeFromRaw(raw)
}

func (c *Connector) FetchAttachment(ctx context.Context, messageID, ref string) ([]byte, error) {
	// Attachments are delivered inline on the tree leaves.
	return nil, fmt.Errorf("imap attachments carry inline data: message=%s ref=%s", messageID, ref)
}

// TreeFromRaw parses an RFC822 message into an attachment tree with
// decoded bytes on each leaf.
func TreeFromRaw(raw []byte) (*internal.AttachmentNode, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	root := &internal.AttachmentNode{}
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		root.Parts = append(root.Parts, &internal.AttachmentNode{
			Filename: filename,
			Data:     att.Content,
		})
	}
	return root, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if c.secure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	}
	return imapclient.Dial(addr)
}

func formatAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(strings.Join([]string{a.MailboxName, a.HostName}, "@"), "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
