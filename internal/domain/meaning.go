package domain

import (
	"strings"
	"time"
)

// MeaningEntry is a clarified term with its confirmed definition and the
// citations that back it.
type MeaningEntry struct {
	Term       string    `json:"term"`
	Definition string    `json:"definition"`
	Sources    []string  `json:"sources"`
	Context    string    `json:"context,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// MeaningKey derives the entity-store key for a term. Keys are
// case-insensitive and ignore surrounding whitespace.
func MeaningKey(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// UpsertMeaning creates or refreshes the entry for term. An existing entry
// (matched by derived key) keeps its CreatedAt; everything else is replaced.
func (d *Document) UpsertMeaning(term, definition string, sources []string, context string) (MeaningEntry, error) {
	key := MeaningKey(term)
	if key == "" {
		return MeaningEntry{}, &ValidationError{Field: "term", Message: "must not be empty"}
	}

	now := time.Now().UTC()
	entry := MeaningEntry{
		Term:       strings.TrimSpace(term),
		Definition: definition,
		Sources:    append([]string(nil), sources...),
		Context:    context,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if entry.Sources == nil {
		entry.Sources = make([]string, 0)
	}

	if prior, exists := d.Entities[key]; exists {
		entry.CreatedAt = prior.CreatedAt
	} else {
		d.EntityOrder = append(d.EntityOrder, key)
	}
	d.Entities[key] = entry
	return entry, nil
}

// UpdateMeaning merges the non-nil fields onto an existing entry and
// refreshes UpdatedAt. The entry must already exist.
func (d *Document) UpdateMeaning(term string, definition, context *string, sources []string) (MeaningEntry, error) {
	key := MeaningKey(term)
	entry, exists := d.Entities[key]
	if !exists {
		return MeaningEntry{}, &ValidationError{Field: "term", Message: "meaning entry " + term + " not found"}
	}
	if definition != nil {
		entry.Definition = *definition
	}
	if context != nil {
		entry.Context = *context
	}
	if sources != nil {
		entry.Sources = append([]string(nil), sources...)
	}
	entry.UpdatedAt = time.Now().UTC()
	d.Entities[key] = entry
	return entry, nil
}

// RemoveMeaning deletes the entry for term. Removing an absent key is a
// no-op success.
func (d *Document) RemoveMeaning(term string) {
	key := MeaningKey(term)
	if _, exists := d.Entities[key]; !exists {
		return
	}
	delete(d.Entities, key)
	for i, k := range d.EntityOrder {
		if k == key {
			d.EntityOrder = append(d.EntityOrder[:i], d.EntityOrder[i+1:]...)
			break
		}
	}
}

// GetMeaning looks up an entry by term.
func (d *Document) GetMeaning(term string) (MeaningEntry, bool) {
	entry, ok := d.Entities[MeaningKey(term)]
	return entry, ok
}

// SearchMeanings returns entries whose term, definition, or any source
// contains query (case-insensitive, whitespace significant), in entity-store
// insertion order. An empty query matches everything.
func (d *Document) SearchMeanings(query string) []MeaningEntry {
	needle := strings.ToLower(query)
	matches := make([]MeaningEntry, 0)
	for _, key := range d.EntityOrder {
		entry, ok := d.Entities[key]
		if !ok {
			continue
		}
		if needle == "" || meaningMatches(entry, needle) {
			matches = append(matches, entry)
		}
	}
	return matches
}

func meaningMatches(entry MeaningEntry, needle string) bool {
	if strings.Contains(strings.ToLower(entry.Term), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(entry.Definition), needle) {
		return true
	}
	for _, source := range entry.Sources {
		if strings.Contains(strings.ToLower(source), needle) {
			return true
		}
	}
	return false
}
