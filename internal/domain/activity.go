package domain

import "time"

// ActivityResult classifies the outcome of a logged operation.
type ActivityResult string

const (
	ActivitySuccess ActivityResult = "success"
	ActivityWarning ActivityResult = "warning"
	ActivityError   ActivityResult = "error"
)

// ActivityEntry is one line in the append-only operation log.
type ActivityEntry struct {
	ID        string         `json:"id"`
	Operator  string         `json:"operator"`
	Role      string         `json:"role"`
	Module    string         `json:"module"`
	Action    string         `json:"action"`
	Result    ActivityResult `json:"result"`
	IP        string         `json:"ip"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}
