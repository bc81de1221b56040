// Package export renders read-only projections of the meaning index. These
// are pure views over a document snapshot, not tools: nothing here mutates
// state.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"time"

	"intentd/internal/domain"
)

// MeaningsJSON serializes every meaning entry as a JSON array in entity
// store insertion order.
func MeaningsJSON(doc *domain.Document) ([]byte, error) {
	entries := doc.SearchMeanings("")
	return json.MarshalIndent(entries, "", "  ")
}

// MeaningsCSV serializes every meaning entry as CSV with a header row, in
// entity store insertion order. Source lists are joined with "; ".
func MeaningsCSV(doc *domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"term", "definition", "sources", "context", "createdAt", "updatedAt"}); err != nil {
		return nil, err
	}
	for _, entry := range doc.SearchMeanings("") {
		record := []string{
			entry.Term,
			entry.Definition,
			strings.Join(entry.Sources, "; "),
			entry.Context,
			entry.CreatedAt.UTC().Format(time.RFC3339),
			entry.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
