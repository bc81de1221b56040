package tools

import (
	"bytes"
	"encoding/json"

	"intentd/internal/domain"
)

// Args is a validated tool argument map. Accessors assume validateArgs has
// already enforced presence and shape.
type Args map[string]any

func (a Args) Has(name string) bool {
	value, ok := a[name]
	return ok && value != nil
}

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// StringPtr distinguishes "absent" from "present and empty" for partial
// updates.
func (a Args) StringPtr(name string) *string {
	if !a.Has(name) {
		return nil
	}
	s := a.String(name)
	return &s
}

func (a Args) StringList(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Decode strictly unmarshals a structured argument into target. Unknown
// fields are rejected so malformed sub-records fail as ValidationErrors
// rather than silently dropping data.
func (a Args) Decode(name string, target any) error {
	raw, err := json.Marshal(a[name])
	if err != nil {
		return &domain.ValidationError{Field: name, Message: err.Error()}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return &domain.ValidationError{Field: name, Message: err.Error()}
	}
	return nil
}
