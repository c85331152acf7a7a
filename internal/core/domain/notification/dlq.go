package notification

import (
	"strconv"
)

// DLQ entry type tags.
const (
	DLQTypeFailedNotification = "failed_notification"
	DLQTypeRecoveryFailed     = "recovery_failed"
)

// DLQEntry is a quarantined notification in the dead-letter stream. Entries
// are immutable once appended; a retry deletes the original and appends a
// copy with Retries incremented.
type DLQEntry struct {
	ID               string // broker-assigned, empty until appended
	Type             string
	NotificationType string
	UserID           string
	UserEmail        string
	EntityType       string
	EntityID         string
	EntityName       string
	Title            string
	Message          string
	RelatedLink      string
	Timestamp        string
	Retries          int

	// Recovery-failure context, present on recovery_failed entries.
	MessageID string
	Error     string
}

// Values flattens the entry into stream record fields.
func (e *DLQEntry) Values() map[string]interface{} {
	values := map[string]interface{}{
		"type":              e.Type,
		"notification_type": e.NotificationType,
		"user_id":           e.UserID,
		"user_email":        e.UserEmail,
		"entity_type":       e.EntityType,
		"entity_id":         e.EntityID,
		"entity_name":       e.EntityName,
		"title":             e.Title,
		"message":           e.Message,
		"related_link":      e.RelatedLink,
		"timestamp":         e.Timestamp,
		"dlq_retries":       strconv.Itoa(e.Retries),
	}
	if e.MessageID != "" {
		values["message_id"] = e.MessageID
	}
	if e.Error != "" {
		values["error"] = e.Error
	}
	return values
}

// DLQEntryFromValues parses a stream record into a DLQ entry.
func DLQEntryFromValues(id string, values map[string]string) *DLQEntry {
	retries, _ := strconv.Atoi(values["dlq_retries"])
	return &DLQEntry{
		ID:               id,
		Type:             values["type"],
		NotificationType: values["notification_type"],
		UserID:           values["user_id"],
		UserEmail:        values["user_email"],
		EntityType:       values["entity_type"],
		EntityID:         values["entity_id"],
		EntityName:       values["entity_name"],
		Title:            values["title"],
		Message:          values["message"],
		RelatedLink:      values["related_link"],
		Timestamp:        values["timestamp"],
		Retries:          retries,
		MessageID:        values["message_id"],
		Error:            values["error"],
	}
}
