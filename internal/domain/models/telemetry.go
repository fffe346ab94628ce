package models

import "time"

// EventType names a telemetry event.
type EventType string

const (
	EventScanComplete         EventType = "scan-complete"
	EventManipulationDetected EventType = "manipulation-detected"
	EventDivergenceAlert      EventType = "divergence-alert"
	EventSessionChange        EventType = "session-change"
	EventRiskWarning          EventType = "risk-warning"
)

// TelemetryEvent is a structured event for the telemetry collaborator.
type TelemetryEvent struct {
	Type      EventType      `json:"type"`
	Symbol    string         `json:"symbol,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
