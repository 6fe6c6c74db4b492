package rates

import (
    "errors"
    "fmt"
    "strings"

    "github.com/shopspring/decimal"
)

var (
    ErrNegativeRate      = errors.New("negative rate")
    ErrPercentageTooHigh = errors.New("percentage above 100")
    ErrInvalidLimits     = errors.New("invalid amount limits")
    ErrDuplicateNetwork  = errors.New("duplicate network")
)

// DefaultFeePercentage applies when a provider has no rate for the requested
// service type.
var DefaultFeePercentage = decimal.NewFromInt(2)

var (
    DefaultBaseRate = decimal.NewFromInt(5)
    DefaultPerKm    = decimal.NewFromInt(2)
)

var hundred = decimal.NewFromInt(100)

// NetworkFee overrides the service-type percentage for one channel and may
// carry a floor.
type NetworkFee struct {
    Percentage decimal.Decimal `json:"percentage"`
    MinFee     decimal.Decimal `json:"min_fee"`
}

// FeeConfig is an agent's fee table. ServiceRates and NetworkFees are keyed by
// service type and network identifier respectively.
type FeeConfig struct {
    ServiceRates map[string]decimal.Decimal `json:"service_rates"`
    NetworkFees  map[string]NetworkFee      `json:"network_fees"`
}

func (c FeeConfig) Validate() error {
    for service, pct := range c.ServiceRates {
        if err := checkPercentage(pct); err != nil {
            return fmt.Errorf("service %s: %w", service, err)
        }
    }
    // Lookup ignores case and spacing, so keys equal after normalizing
    // would make the resolved fee depend on map order.
    seen := make(map[string]string, len(c.NetworkFees))
    for network, nf := range c.NetworkFees {
        key := normalizeKey(network)
        if other, ok := seen[key]; ok {
            return fmt.Errorf("networks %q and %q: %w", other, network, ErrDuplicateNetwork)
        }
        seen[key] = network
        if err := checkPercentage(nf.Percentage); err != nil {
            return fmt.Errorf("network %s: %w", network, err)
        }
        if nf.MinFee.IsNegative() {
            return fmt.Errorf("network %s min fee: %w", network, ErrNegativeRate)
        }
    }
    return nil
}

func (c FeeConfig) networkFee(network string) (NetworkFee, bool) {
    key := normalizeKey(network)
    if key == "" {
        return NetworkFee{}, false
    }
    for name, nf := range c.NetworkFees {
        if normalizeKey(name) == key {
            return nf, true
        }
    }
    return NetworkFee{}, false
}

// FareConfig is a driver's fare table. A zero AirportFlat means airport
// transfers are priced by distance like any other ride.
type FareConfig struct {
    BaseRate    decimal.Decimal `json:"base_rate"`
    PerKm       decimal.Decimal `json:"per_km"`
    AirportFlat decimal.Decimal `json:"airport_flat"`
}

func (c FareConfig) Validate() error {
    if c.BaseRate.IsNegative() || c.PerKm.IsNegative() || c.AirportFlat.IsNegative() {
        return ErrNegativeRate
    }
    return nil
}

// WithDefaults fills an empty table with the built-in base and per-km rates.
func (c FareConfig) WithDefaults() FareConfig {
    if c.BaseRate.IsZero() && c.PerKm.IsZero() {
        c.BaseRate = DefaultBaseRate
        c.PerKm = DefaultPerKm
    }
    return c
}

// AmountLimits bounds the amount a provider accepts per request. A zero Max
// means no upper bound.
type AmountLimits struct {
    Min decimal.Decimal `json:"min"`
    Max decimal.Decimal `json:"max"`
}

func (l AmountLimits) Validate() error {
    if l.Min.IsNegative() || l.Max.IsNegative() {
        return ErrInvalidLimits
    }
    if !l.Max.IsZero() && l.Min.GreaterThan(l.Max) {
        return ErrInvalidLimits
    }
    return nil
}

func (l AmountLimits) Contains(amount decimal.Decimal) bool {
    if amount.LessThan(l.Min) {
        return false
    }
    if !l.Max.IsZero() && amount.GreaterThan(l.Max) {
        return false
    }
    return true
}

func checkPercentage(p decimal.Decimal) error {
    if p.IsNegative() {
        return ErrNegativeRate
    }
    if p.GreaterThan(hundred) {
        return ErrPercentageTooHigh
    }
    return nil
}

func normalizeKey(s string) string {
    return strings.ToLower(strings.TrimSpace(s))
}
