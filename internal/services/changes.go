package services

import (
	"nestnotify/internal/core/domain/community"
)

// chapterFieldValues extracts the whitelisted chapter fields observed for
// change notifications. Fields outside this set never appear in
// changed_fields.
func chapterFieldValues(chapter *community.Chapter) map[string]string {
	if chapter == nil {
		return nil
	}
	return map[string]string{
		"name":               chapter.Name,
		"country":            chapter.Country,
		"region":             chapter.Region,
		"suggested_location": chapter.SuggestedLocation,
		"description":        chapter.Description,
	}
}

// eventFieldValues extracts the whitelisted event fields. Dates render as
// YYYY-MM-DD; nil dates as the empty string.
func eventFieldValues(event *community.Event) map[string]string {
	if event == nil {
		return nil
	}
	return map[string]string{
		"name":               event.Name,
		"start_date":         community.FormatDate(event.StartDate),
		"end_date":           community.FormatDate(event.EndDate),
		"suggested_location": event.SuggestedLocation,
		"url":                event.URL,
		"description":        event.Description,
	}
}
