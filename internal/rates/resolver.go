// Package rates computes fees for cash exchanges and fares for rides from a
// provider's rate tables.
package rates

import (
    "github.com/shopspring/decimal"
)

const ServiceAirportTransfer = "airport_transfer"

type Fee struct {
    Amount     decimal.Decimal
    Percentage decimal.Decimal
}

// ResolveFee picks the network entry when one matches, else the service-type
// percentage, else DefaultFeePercentage. Only a network entry can impose a
// minimum fee. The result is rounded half-up to 2 places.
func ResolveFee(cfg FeeConfig, serviceType, network string, amount decimal.Decimal) Fee {
    pct := DefaultFeePercentage
    minFee := decimal.Zero

    if nf, ok := cfg.networkFee(network); ok {
        pct = nf.Percentage
        minFee = nf.MinFee
    } else if p, ok := cfg.ServiceRates[serviceType]; ok {
        pct = p
    }

    fee := amount.Mul(pct).Div(hundred)
    if minFee.IsPositive() && fee.LessThan(minFee) {
        fee = minFee
    }

    return Fee{
        Amount:     fee.Round(2),
        Percentage: pct,
    }
}

// ResolveFare prices a ride as base + perKm*distance, or the flat airport
// rate when the service is an airport transfer and a flat rate is set.
func ResolveFare(cfg FareConfig, serviceType string, distanceKm float64) decimal.Decimal {
    cfg = cfg.WithDefaults()
    if serviceType == ServiceAirportTransfer && cfg.AirportFlat.IsPositive() {
        return cfg.AirportFlat.Round(2)
    }
    fare := cfg.BaseRate.Add(cfg.PerKm.Mul(decimal.NewFromFloat(distanceKm)))
    return fare.Round(2)
}
