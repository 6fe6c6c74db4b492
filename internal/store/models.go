package store

import (
    "time"

    "github.com/shopspring/decimal"
)

const (
    StatusPending    = "pending"
    StatusAccepted   = "accepted"
    StatusInProgress = "in_progress"
    StatusCompleted  = "completed"
    StatusCancelled  = "cancelled"
    StatusRejected   = "rejected"
)

const (
    ServiceCashToMobile          = "cash_to_mobile"
    ServiceMobileToCash          = "mobile_to_cash"
    ServiceInternationalTransfer = "international_transfer"
)

const (
    ServiceAirportTransfer = "airport_transfer"
    ServiceCityRide        = "city_ride"
    ServiceLongDistance    = "long_distance"
    ServiceParcelDelivery  = "parcel_delivery"
)

func IsCashService(s string) bool {
    switch s {
    case ServiceCashToMobile, ServiceMobileToCash, ServiceInternationalTransfer:
        return true
    }
    return false
}

func IsRideService(s string) bool {
    switch s {
    case ServiceAirportTransfer, ServiceCityRide, ServiceLongDistance, ServiceParcelDelivery:
        return true
    }
    return false
}

type Location struct {
    Address string  `json:"address,omitempty"`
    Lat     float64 `json:"lat"`
    Lng     float64 `json:"lng"`
}

func (l Location) HasCoordinates() bool {
    return l.Lat != 0 || l.Lng != 0
}

type CashTransaction struct {
    ID                string
    CustomerID        string
    ProviderID        string
    ServiceType       string
    Network           string
    Amount            decimal.Decimal
    FeeAmount         decimal.Decimal
    FeePercentage     decimal.Decimal
    Currency          string
    Status            string
    CustomerConfirmed bool
    AgentConfirmed    bool
    Notes             string
    Location          Location
    RejectReason      string
    Version           int64
    CreatedAt         time.Time
    UpdatedAt         time.Time
    CompletedAt       *time.Time
}

type RideBooking struct {
    ID           string
    CustomerID   string
    DriverID     string
    ServiceType  string
    Pickup       Location
    Dropoff      Location
    DistanceKm   float64
    Fare         decimal.Decimal
    Currency     string
    Status       string
    RejectReason string
    Notes        string
    Version      int64
    CreatedAt    time.Time
    UpdatedAt    time.Time
    AcceptedAt   *time.Time
    StartedAt    *time.Time
    CompletedAt  *time.Time
}

// CashUpdateFunc mutates the locked current record. Returning changed=false
// leaves the stored row untouched; a non-nil error aborts the update.
type CashUpdateFunc func(tx *CashTransaction) (changed bool, err error)

type RideUpdateFunc func(b *RideBooking) (changed bool, err error)

// CashFilter selects records; zero fields match everything. Since is
// inclusive, Until exclusive.
type CashFilter struct {
    ProviderID string
    CustomerID string
    Status     string
    Since      time.Time
    Until      time.Time
}

type RideFilter struct {
    DriverID   string
    CustomerID string
    Status     string
    Since      time.Time
    Until      time.Time
}

func (f CashFilter) match(tx CashTransaction) bool {
    if f.ProviderID != "" && tx.ProviderID != f.ProviderID {
        return false
    }
    if f.CustomerID != "" && tx.CustomerID != f.CustomerID {
        return false
    }
    if f.Status != "" && tx.Status != f.Status {
        return false
    }
    return inWindow(tx.CreatedAt, f.Since, f.Until)
}

func (f RideFilter) match(b RideBooking) bool {
    if f.DriverID != "" && b.DriverID != f.DriverID {
        return false
    }
    if f.CustomerID != "" && b.CustomerID != f.CustomerID {
        return false
    }
    if f.Status != "" && b.Status != f.Status {
        return false
    }
    return inWindow(b.CreatedAt, f.Since, f.Until)
}

func inWindow(t, since, until time.Time) bool {
    if !since.IsZero() && t.Before(since) {
        return false
    }
    if !until.IsZero() && !t.Before(until) {
        return false
    }
    return true
}
