package pipeline

import "grnflow/internal"

// identityColumn is the sheet column holding the dedup key: the source
// document's filename.
const identityColumn = "source_file"

// BuildDedupIndex collects the identities already persisted in the
// sheet. The first row is the header; a sheet without the identity
// column (e.g. on first run) yields an empty index, skipping no one.
func BuildDedupIndex(rows [][]string, column string) map[string]struct{} {
	index := map[string]struct{}{}
	if len(rows) == 0 {
		return index
	}

	position := -1
	for i, name := range rows[0] {
		if name == column {
			position = i
			break
		}
	}
	if position < 0 {
		return index
	}

	for _, row := range rows[1:] {
		if position < len(row) && row[position] != "" {
			index[row[position]] = struct{}{}
		}
	}
	return index
}

// FilterCandidates drops candidates whose identity is already indexed,
// preserving input order.
func FilterCandidates(files []internal.DriveFile, index map[string]struct{}) []internal.DriveFile {
	out := make([]internal.DriveFile, 0, len(files))
	for _, f := range files {
		if _, seen := index[f.Name]; seen {
			continue
		}
		out = append(out, f)
	}
	return out
}
