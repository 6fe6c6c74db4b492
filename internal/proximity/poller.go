package proximity

import (
    "context"
    "time"
)

// DefaultInterval is the refresh cadence dashboards use for "live" tracking.
const DefaultInterval = 25 * time.Second

type Logger interface {
    Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Poller re-runs one query on a fixed cadence for a consumer session. The
// consumer owns the context; cancelling it stops the ticker and Run returns.
type Poller struct {
    matcher  *Matcher
    query    Query
    interval time.Duration
    onResult func([]Match)
    logger   Logger
}

func NewPoller(matcher *Matcher, query Query, interval time.Duration, onResult func([]Match), logger Logger) *Poller {
    if interval <= 0 {
        interval = DefaultInterval
    }
    if logger == nil {
        logger = nopLogger{}
    }
    return &Poller{
        matcher:  matcher,
        query:    query,
        interval: interval,
        onResult: onResult,
        logger:   logger,
    }
}

// Run polls immediately, then once per interval, until ctx is done. It
// returns the query validation error without polling if the query is bad.
func (p *Poller) Run(ctx context.Context) error {
    if err := p.query.Validate(); err != nil {
        return err
    }

    ticker := time.NewTicker(p.interval)
    defer ticker.Stop()

    p.poll(ctx)
    for {
        select {
        case <-ctx.Done():
            return nil
        case <-ticker.C:
            p.poll(ctx)
        }
    }
}

func (p *Poller) poll(ctx context.Context) {
    matches, err := p.matcher.Find(ctx, p.query)
    if err != nil {
        if ctx.Err() == nil {
            p.logger.Printf("nearby %s poll failed: %v", p.query.Kind, err)
        }
        return
    }
    if ctx.Err() != nil {
        return
    }
    p.onResult(matches)
}
