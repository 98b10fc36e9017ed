package pipeline

import (
	"time"

	"grnflow/internal"
)

// CanonicalRow maps every canonical column name to its cell text. No
// column is ever omitted; unresolved fields hold the empty string.
type CanonicalRow map[string]string

const processedDateLayout = "2006-01-02 15:04:05"

// NormalizeDocument emits one CanonicalRow per item of a resolved
// document. Document-level columns are resolved once and repeated on
// every row. A document with no usable items still yields exactly one
// row, with item columns resolved against the document map itself.
func NormalizeDocument(doc ResolvedDocument, file internal.DriveFile, now time.Time) []CanonicalRow {
	items := doc.Items
	if len(items) == 0 {
		items = []map[string]any{doc.Fields}
	}

	docValues := map[string]string{}
	for _, col := range Columns {
		if col.Scope == ScopeDocument {
			docValues[col.Name] = ResolveAlias(doc.Fields, col.Name, col.Aliases)
		}
	}
	processedDate := now.Format(processedDateLayout)

	rows := make([]CanonicalRow, 0, len(items))
	for _, item := range items {
		row := make(CanonicalRow, len(Columns))
		for _, col := range Columns {
			switch {
			case col.MirrorOf != "":
				row[col.Name] = row[col.MirrorOf]
			case col.Scope == ScopeDocument:
				row[col.Name] = docValues[col.Name]
			case col.Scope == ScopeItem:
				row[col.Name] = ResolveAlias(item, col.Name, col.Aliases)
			case col.Name == "source_file":
				row[col.Name] = file.Name
			case col.Name == "drive_file_id":
				row[col.Name] = file.ID
			case col.Name == "processed_date":
				row[col.Name] = processedDate
			}
		}
		rows = append(rows, row)
	}

	return rows
}

// ToSheetRow projects a canonical row onto the store's current header
// order. Header columns the row does not know become empty cells, so
// widened sheets stay rectangular.
func (r CanonicalRow) ToSheetRow(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = r[col]
	}
	return out
}
