// Package settlement runs the two-party request lifecycle: cash exchanges that
// settle only after both sides confirm, and rides the driver advances.
package settlement

import (
    "context"
    "time"

    "github.com/google/uuid"

    "marketplace.engine/internal/events"
)

type Logger interface {
    Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, events.StatusChange) error { return nil }

type Service struct {
    store    Store
    dir      ProviderDirectory
    notifier Notifier
    logger   Logger
    now      func() time.Time
    newID    func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
    return func(s *Service) {
        s.now = now
    }
}

func WithIDGenerator(newID func() string) Option {
    return func(s *Service) {
        s.newID = newID
    }
}

func NewService(st Store, dir ProviderDirectory, notifier Notifier, logger Logger, opts ...Option) *Service {
    if notifier == nil {
        notifier = nopNotifier{}
    }
    if logger == nil {
        logger = nopLogger{}
    }
    s := &Service{
        store:    st,
        dir:      dir,
        notifier: notifier,
        logger:   logger,
        now:      func() time.Time { return time.Now().UTC() },
        newID:    uuid.NewString,
    }
    for _, opt := range opts {
        opt(s)
    }
    return s
}

const notifyTimeout = 10 * time.Second

// notify runs after the store committed the transition, so it ignores the
// caller's cancellation. A failed delivery is logged; the record is already
// settled and is not rolled back.
func (s *Service) notify(ctx context.Context, ev events.StatusChange) {
    ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
    defer cancel()

    ev.At = s.now()
    if err := s.notifier.Notify(ctx, ev); err != nil {
        s.logger.Printf("notify %s %s %s->%s: %v", ev.Kind, ev.RecordID, ev.OldStatus, ev.NewStatus, err)
    }
}
