// Package events carries status-change notifications for settlement records
// to whatever dispatches them (Kafka topic, log).
package events

import (
    "context"
    "encoding/json"
    "time"
)

const (
    KindCashTransaction = "cash_transaction"
    KindRideBooking     = "ride_booking"
)

// StatusChange is emitted once per committed status transition.
type StatusChange struct {
    Kind       string    `json:"kind"`
    RecordID   string    `json:"record_id"`
    CustomerID string    `json:"customer_id"`
    ProviderID string    `json:"provider_id"`
    OldStatus  string    `json:"old_status"`
    NewStatus  string    `json:"new_status"`
    Actor      string    `json:"actor"`
    Reason     string    `json:"reason,omitempty"`
    At         time.Time `json:"at"`
}

type Logger interface {
    Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// LogNotifier writes each change as a JSON line.
type LogNotifier struct {
    logger Logger
}

func NewLogNotifier(logger Logger) *LogNotifier {
    if logger == nil {
        logger = nopLogger{}
    }
    return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev StatusChange) error {
    data, err := json.Marshal(struct {
        Event string `json:"event"`
        StatusChange
    }{Event: "status_changed", StatusChange: ev})
    if err != nil {
        return err
    }
    n.logger.Printf("%s", data)
    return nil
}
