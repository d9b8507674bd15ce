// Package outbox defines the wire-level shapes shared by the transactional
// outbox writer, the poller, and the dead-letter manager. The actual
// persistence and publish logic live in internal/store/outbox and
// internal/service/dlt respectively; this package only carries the data.
package outbox

import "time"

// Event is a row of outbox_events: rows exist only in "unpublished" state,
// a successful publish implies deletion.
type Event struct {
	ID          string
	AggregateID string // routing key, e.g. a userId for per-user log partitioning
	EventType   string
	Topic       string
	Payload     []byte
	CreatedAt   time.Time
}

// DltRecord is a quarantined event: either a poison pill that failed to
// deserialize, or a message that exhausted its processing retry budget.
type DltRecord struct {
	ID               string
	OriginalTopic    string
	OriginalPartition int32
	OriginalOffset    int64
	Key              string
	FailureTitle     string
	StackTrace       string
	OriginalPayload  []byte
	FailedAt         time.Time
}
