package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDLQEntry_ValuesRoundTrip(t *testing.T) {
	entry := &DLQEntry{
		Type:             DLQTypeFailedNotification,
		NotificationType: TypeEventUpdated,
		UserID:           "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		UserEmail:        "member@example.org",
		EntityType:       "event",
		EntityID:         "10",
		EntityName:       "AppSec Lisbon",
		Title:            "Event Updated: AppSec Lisbon",
		Message:          "The OWASP event 'AppSec Lisbon' has been updated.",
		RelatedLink:      "https://nest.owasp.org/events/10",
		Timestamp:        "1722600000.000000",
		Retries:          0,
	}

	values := entry.Values()
	assert.Equal(t, "failed_notification", values["type"])
	assert.Equal(t, "0", values["dlq_retries"])
	assert.NotContains(t, values, "message_id")
	assert.NotContains(t, values, "error")

	decoded := DLQEntryFromValues("1-0", stringValues(values))
	assert.Equal(t, "1-0", decoded.ID)
	entry.ID = "1-0"
	assert.Equal(t, entry, decoded)
}

func TestDLQEntry_RecoveryFailedCarriesContext(t *testing.T) {
	entry := &DLQEntry{
		Type:      DLQTypeRecoveryFailed,
		MessageID: "5-1",
		Error:     "boom",
		Timestamp: "1722600000.000000",
	}

	values := entry.Values()
	assert.Equal(t, "recovery_failed", values["type"])
	assert.Equal(t, "5-1", values["message_id"])
	assert.Equal(t, "boom", values["error"])
}

func TestDLQEntryFromValues_BadRetriesDefaultsToZero(t *testing.T) {
	entry := DLQEntryFromValues("2-0", map[string]string{"dlq_retries": "bogus"})
	assert.Equal(t, 0, entry.Retries)
}

func stringValues(values map[string]interface{}) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v.(string)
	}
	return out
}
