package notification

import (
	"encoding/json"
	"sort"
	"strings"
)

// ChangedField holds the prior and current value of one whitelisted field.
// Nil means the value was absent or empty before normalization.
type ChangedField struct {
	Old *string `json:"old"`
	New *string `json:"new"`
}

// ChangedFields maps field names to their old/new values for an update
// event. It travels JSON-encoded in the stream's changed_fields field.
type ChangedFields map[string]ChangedField

// Diff computes the changed fields between two normalized field sets.
// Values are compared as strings with empty and absent unified to nil;
// unchanged fields are omitted.
func Diff(prior, current map[string]string) ChangedFields {
	changed := ChangedFields{}
	for field, newVal := range current {
		oldVal := prior[field]
		if oldVal == newVal {
			continue
		}
		changed[field] = ChangedField{
			Old: normalize(oldVal),
			New: normalize(newVal),
		}
	}
	return changed
}

func normalize(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Encode serializes the changed fields for the stream.
func (c ChangedFields) Encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DecodeChangedFields parses the stream's changed_fields value.
func DecodeChangedFields(raw string) (ChangedFields, error) {
	var c ChangedFields
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Describe renders the changes for the notification body as
// "Field Name: old → new | ...". Nil and empty values render as "empty";
// field names are converted from underscore form to title case. Fields are
// listed in name order so the rendering is stable.
func (c ChangedFields) Describe() string {
	if len(c) == 0 {
		return ""
	}

	fields := make([]string, 0, len(c))
	for field := range c {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		values := c[field]
		parts = append(parts, displayName(field)+": "+displayValue(values.Old)+" → "+displayValue(values.New))
	}
	return strings.Join(parts, " | ")
}

func displayValue(v *string) string {
	if v == nil || *v == "" {
		return "empty"
	}
	return *v
}

func displayName(field string) string {
	words := strings.Split(field, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
