package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"FlowHunter/internal/service/halt"
	pkgkafka "FlowHunter/pkg/kafka"
	applogger "FlowHunter/pkg/logger"
)

// HaltCommand is the payload on the halt command topic.
type HaltCommand struct {
	Halted *bool  `json:"halted"`
	Reason string `json:"reason"`
}

// HaltHandler applies operator halt commands from Kafka.
type HaltHandler struct {
	topic string
	sw    *halt.Switch
	l     *applogger.Logger
}

func NewHaltHandler(topic string, sw *halt.Switch, l *applogger.Logger) *HaltHandler {
	return &HaltHandler{topic: topic, sw: sw, l: l}
}

func (h *HaltHandler) Topic() string { return h.topic }

// Handle rejects malformed commands so the consumer can route them to the DLQ.
func (h *HaltHandler) Handle(_ context.Context, b []byte) error {
	var cmd HaltCommand
	if err := json.Unmarshal(b, &cmd); err != nil {
		return fmt.Errorf("decode halt command: %w", err)
	}
	if cmd.Halted == nil {
		return fmt.Errorf("halt command missing 'halted'")
	}
	reason := cmd.Reason
	if reason == "" {
		reason = "kafka command"
	}
	if h.sw.Set(*cmd.Halted, reason) {
		h.l.Info("halt command applied", applogger.Bool("halted", *cmd.Halted), applogger.String("reason", reason))
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*HaltHandler)(nil)
