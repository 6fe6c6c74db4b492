// Package directory adapts provider profiles (rate tables, limits, current
// location) into typed, validated values for the settlement engine.
package directory

import (
    "errors"
    "fmt"
    "time"

    "marketplace.engine/internal/rates"
)

type Kind string

const (
    KindAgent  Kind = "agent"
    KindDriver Kind = "driver"
)

func ParseKind(s string) (Kind, error) {
    switch Kind(s) {
    case KindAgent, KindDriver:
        return Kind(s), nil
    }
    return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

var (
    ErrProviderNotFound = errors.New("provider not found")
    ErrInvalidKind      = errors.New("invalid provider kind")
    ErrInvalidProvider  = errors.New("invalid provider config")
)

type Provider struct {
    ID                string
    Kind              Kind
    Name              string
    Currency          string
    Fees              rates.FeeConfig
    Limits            rates.AmountLimits
    Fare              rates.FareConfig
    SupportedNetworks []string
    Location          ProviderLocation
    IsOnline          bool
}

// ProviderLocation is the last position a provider's client reported.
type ProviderLocation struct {
    ProviderID string
    Kind       Kind
    Lat        float64
    Lng        float64
    IsOnline   bool
    UpdatedAt  time.Time
}

func (p Provider) Validate() error {
    if p.ID == "" {
        return fmt.Errorf("%w: missing id", ErrInvalidProvider)
    }
    if _, err := ParseKind(string(p.Kind)); err != nil {
        return fmt.Errorf("%w: %v", ErrInvalidProvider, err)
    }
    if err := p.Fees.Validate(); err != nil {
        return fmt.Errorf("%w: provider %s fees: %w", ErrInvalidProvider, p.ID, err)
    }
    if err := p.Limits.Validate(); err != nil {
        return fmt.Errorf("%w: provider %s limits: %w", ErrInvalidProvider, p.ID, err)
    }
    if err := p.Fare.Validate(); err != nil {
        return fmt.Errorf("%w: provider %s fare: %w", ErrInvalidProvider, p.ID, err)
    }
    return nil
}
