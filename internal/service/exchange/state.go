package exchange

import (
	"time"

	"FlowHunter/internal/domain/models"
)

// ConnState is the lifecycle state of one venue connection.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDegraded
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateDegraded:
		return "DEGRADED"
	case StateReconnecting:
		return "RECONNECTING"
	default:
		return "UNKNOWN"
	}
}

func (s ConnState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status maps the connection state to what the aggregator needs to know.
func (s ConnState) Status() models.ConnStatus {
	switch s {
	case StateConnected:
		return models.StatusConnected
	case StateDisconnected:
		return models.StatusDisconnected
	default:
		return models.StatusDegraded
	}
}

// Health is a point-in-time view of a connection.
type Health struct {
	Venue             models.Venue   `json:"venue"`
	Product           models.Product `json:"product"`
	State             ConnState      `json:"state"`
	LatencyMs         float64        `json:"latency_ms"`
	MsgsPerSec        float64        `json:"msgs_per_sec"`
	ReconnectAttempts int            `json:"reconnect_attempts"`
	TotalReconnects   int            `json:"total_reconnects"`
	UptimeSec         float64        `json:"uptime_sec"`
	LastMessage       time.Time      `json:"last_message"`
	Stale             bool           `json:"stale"`
	Dropped           uint64         `json:"dropped"`
}

// HealthEvent reports a state transition. Terminal is set once the client
// has given up reconnecting.
type HealthEvent struct {
	Venue     models.Venue   `json:"venue"`
	Product   models.Product `json:"product"`
	From      ConnState      `json:"from"`
	To        ConnState      `json:"to"`
	Terminal  bool           `json:"terminal"`
	Reason    string         `json:"reason,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
