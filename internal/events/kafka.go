package events

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/segmentio/kafka-go"
)

type messageWriter interface {
    WriteMessages(ctx context.Context, msgs ...kafka.Message) error
    Close() error
}

// KafkaPublisher sends status changes keyed by record id, so all changes of
// one record land on the same partition in order.
type KafkaPublisher struct {
    writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
    return &KafkaPublisher{
        writer: &kafka.Writer{
            Addr:         kafka.TCP(brokers...),
            Topic:        topic,
            Balancer:     &kafka.Hash{},
            RequiredAcks: kafka.RequireAll,
            Async:        false,
            BatchTimeout: 10 * time.Millisecond,
        },
    }
}

func (p *KafkaPublisher) Notify(ctx context.Context, ev StatusChange) error {
    value, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("encode status change %s: %w", ev.RecordID, err)
    }
    err = p.writer.WriteMessages(ctx, kafka.Message{
        Key:   []byte(ev.RecordID),
        Value: value,
        Headers: []kafka.Header{
            {Key: "kind", Value: []byte(ev.Kind)},
            {Key: "new_status", Value: []byte(ev.NewStatus)},
        },
    })
    if err != nil {
        return fmt.Errorf("publish status change %s: %w", ev.RecordID, err)
    }
    return nil
}

func (p *KafkaPublisher) Close() error {
    return p.writer.Close()
}
