package gmail

import (
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"

	"grnflow/internal/connectors"
)

func TestBuildQuery(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		query connectors.MailQuery
		want  string
	}{
		{
			name:  "sender and single keyword",
			query: connectors.MailQuery{Sender: "docs@example.in", Keywords: []string{"grn"}, DaysBack: 3},
			want:  `has:attachment from:"docs@example.in" "grn" after:2026/03/07`,
		},
		{
			name:  "keyword group",
			query: connectors.MailQuery{Keywords: []string{"grn", "receipt"}, DaysBack: 7},
			want:  `has:attachment ("grn" OR "receipt") after:2026/03/03`,
		},
		{
			name:  "no filters",
			query: connectors.MailQuery{DaysBack: 1},
			want:  `has:attachment after:2026/03/09`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := buildQuery(tc.query, now); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestPartToNode(t *testing.T) {
	payload := &gmail.MessagePart{
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain"},
			{
				MimeType: "multipart/mixed",
				Parts: []*gmail.MessagePart{
					{Filename: "grn.pdf", Body: &gmail.MessagePartBody{AttachmentId: "att-1"}},
				},
			},
		},
	}

	node := partToNode(payload)
	if len(node.Parts) != 2 {
		t.Fatalf("parts=%d", len(node.Parts))
	}
	leaf := node.Parts[1].Parts[0]
	if leaf.Filename != "grn.pdf" || leaf.Ref != "att-1" {
		t.Fatalf("leaf=%+v", leaf)
	}
}
