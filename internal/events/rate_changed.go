package events

import "time"

const RateChangedTopic = "hr.rate.changed.v1"

const (
	RateCreated = "rate_created"
	RateUpdated = "rate_updated"
)

// RateChangedEvent is emitted after every committed create or update so the
// roster view can refresh its current-rate projection.
type RateChangedEvent struct {
	EventType     string    `json:"event_type"`
	RequestID     string    `json:"request_id,omitempty"`
	UserID        string    `json:"user_id"`
	EffectiveFrom string    `json:"effective_from"`
	HourlyRate    string    `json:"hourly_rate"`
	OccurredAt    time.Time `json:"occurred_at"`
}
