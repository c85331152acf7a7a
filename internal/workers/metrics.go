package workers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nestnotify",
		Subsystem: "worker",
		Name:      "messages_processed_total",
		Help:      "Stream entries handled by the notification worker.",
	}, []string{"type"})

	dispatchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nestnotify",
		Subsystem: "worker",
		Name:      "dispatch_errors_total",
		Help:      "Dispatch failures that left the entry pending.",
	})

	dlqEntries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nestnotify",
		Subsystem: "worker",
		Name:      "dlq_entries_total",
		Help:      "Entries written to the dead-letter stream.",
	})
)
