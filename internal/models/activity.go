package models

// ActivityEnvelope is one client activity event as published to the broker.
type ActivityEnvelope struct {
	SchemaVersion int            `json:"schema_version"`
	EventID       string         `json:"event_id"`
	EventType     string         `json:"event_type"`
	EventName     string         `json:"event_name"`
	OccurredAt    string         `json:"occurred_at"`
	Client        string         `json:"client"`
	RequestID     string         `json:"request_id,omitempty"`
	UserID        *int           `json:"user_id,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}
