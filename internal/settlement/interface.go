package settlement

import (
    "context"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/events"
)

// ProviderDirectory supplies read-only provider context: rate tables, limits,
// kind. The engine never writes to it.
//
//go:generate mockgen -destination=mocks/mock_interface.go -source=interface.go
type ProviderDirectory interface {
    GetProvider(ctx context.Context, id string) (directory.Provider, error)
}

// Notifier receives one StatusChange per committed transition.
type Notifier interface {
    Notify(ctx context.Context, ev events.StatusChange) error
}
