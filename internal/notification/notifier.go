// Package notification delivers trading-event alerts to external
// channels (Telegram, webhooks) and the log.
package notification

import (
	"context"
	"fmt"
	"log"

	"mexcbot/internal/decision"
	"mexcbot/internal/execution"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier is a simple notifier that logs alerts (useful for development).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to several backends. Delivery failures are
// logged, not propagated, so one dead channel never blocks the rest.
type Multi struct {
	backends []Notifier
}

// NewMulti creates a fan-out notifier.
func NewMulti(backends ...Notifier) *Multi {
	return &Multi{backends: backends}
}

func (m *Multi) Send(ctx context.Context, alert Alert) error {
	for _, n := range m.backends {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("[notify] backend delivery failed: %v", err)
		}
	}
	return nil
}

// DecisionAlert builds an alert for an actionable trade decision.
func DecisionAlert(symbol string, d decision.Decision) Alert {
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s signal on %s", d.Action, symbol),
		Message: fmt.Sprintf("%s at %.4f, confidence %.1f%% (%d bull / %d bear)",
			d.Action, d.Price, d.Confidence, d.BullishVotes, d.BearishVotes),
	}
}

// FillAlert builds an alert for an executed (or failed) order.
func FillAlert(res execution.OrderResult) Alert {
	level := AlertInfo
	if res.Status == "ERROR" || res.Status == "REJECTED" {
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("Order %s: %s %s", res.Status, res.Signal.Side, res.Signal.Symbol),
		Message: fmt.Sprintf("qty %s at ref price %.4f: %s",
			res.Signal.Qty, res.Signal.Price, res.Message),
	}
}

// FallbackAlert builds an alert for a stream-to-polling transition.
func FallbackAlert(symbol, reason string) Alert {
	return Alert{
		Level:   AlertWarning,
		Title:   "Market data degraded to polling",
		Message: fmt.Sprintf("%s stream lost (%s); REST polling is active", symbol, reason),
	}
}
