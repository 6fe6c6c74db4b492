package settlement

import (
    "context"
    "fmt"
    "math"
    "strings"

    "github.com/shopspring/decimal"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/events"
    "marketplace.engine/internal/proximity"
    "marketplace.engine/internal/rates"
    "marketplace.engine/internal/store"
)

type CreateRideInput struct {
    CustomerID  string
    DriverID    string
    ServiceType string
    Pickup      store.Location
    Dropoff     store.Location
    DistanceKm  float64
    Notes       string
}

type role uint8

const (
    roleCustomer role = 1 << iota
    roleDriver
)

type rideEdge struct {
    from  string
    to    string
    roles role
}

// Rides advance only along these edges. The driver alone drives progress;
// either side may cancel before acceptance.
var rideEdges = []rideEdge{
    {from: store.StatusPending, to: store.StatusAccepted, roles: roleDriver},
    {from: store.StatusPending, to: store.StatusRejected, roles: roleDriver},
    {from: store.StatusPending, to: store.StatusCancelled, roles: roleCustomer | roleDriver},
    {from: store.StatusAccepted, to: store.StatusInProgress, roles: roleDriver},
    {from: store.StatusInProgress, to: store.StatusCompleted, roles: roleDriver},
}

func findRideEdge(from, to string) (rideEdge, bool) {
    for _, e := range rideEdges {
        if e.from == from && e.to == to {
            return e, true
        }
    }
    return rideEdge{}, false
}

func (s *Service) CreateRideBooking(ctx context.Context, in CreateRideInput) (store.RideBooking, error) {
    in.CustomerID = strings.TrimSpace(in.CustomerID)
    in.DriverID = strings.TrimSpace(in.DriverID)

    if in.CustomerID == "" || in.DriverID == "" {
        return store.RideBooking{}, fmt.Errorf("%w: customer and driver are required", ErrInvalidInput)
    }
    if in.CustomerID == in.DriverID {
        return store.RideBooking{}, fmt.Errorf("%w: customer and driver must differ", ErrInvalidInput)
    }
    if !store.IsRideService(in.ServiceType) {
        return store.RideBooking{}, fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, in.ServiceType)
    }
    if strings.TrimSpace(in.Pickup.Address) == "" && !in.Pickup.HasCoordinates() {
        return store.RideBooking{}, fmt.Errorf("%w: pickup location is required", ErrInvalidInput)
    }
    if strings.TrimSpace(in.Dropoff.Address) == "" && !in.Dropoff.HasCoordinates() {
        return store.RideBooking{}, fmt.Errorf("%w: dropoff location is required", ErrInvalidInput)
    }

    distance, err := rideDistance(in)
    if err != nil {
        return store.RideBooking{}, err
    }

    driver, err := s.dir.GetProvider(ctx, in.DriverID)
    if err != nil {
        return store.RideBooking{}, directoryErr(in.DriverID, err)
    }
    if driver.Kind != directory.KindDriver {
        return store.RideBooking{}, fmt.Errorf("%w: provider %s is not a driver", ErrInvalidInput, driver.ID)
    }

    record := store.RideBooking{
        ID:          s.newID(),
        CustomerID:  in.CustomerID,
        DriverID:    in.DriverID,
        ServiceType: in.ServiceType,
        Pickup:      in.Pickup,
        Dropoff:     in.Dropoff,
        DistanceKm:  distance,
        Fare:        rates.ResolveFare(driver.Fare, in.ServiceType, distance),
        Currency:    driver.Currency,
        Status:      store.StatusPending,
        Notes:       strings.TrimSpace(in.Notes),
        CreatedAt:   s.now(),
    }
    created, err := s.store.CreateRideBooking(ctx, record)
    if err != nil {
        return store.RideBooking{}, storageErr(err)
    }
    return created, nil
}

// QuoteFare prices a ride for a driver without creating a booking.
func (s *Service) QuoteFare(ctx context.Context, driverID, serviceType string, distanceKm float64) (decimal.Decimal, error) {
    if !store.IsRideService(serviceType) {
        return decimal.Zero, fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, serviceType)
    }
    if distanceKm < 0 || math.IsNaN(distanceKm) || math.IsInf(distanceKm, 0) {
        return decimal.Zero, fmt.Errorf("%w: distance must be a non-negative number", ErrInvalidInput)
    }
    driver, err := s.dir.GetProvider(ctx, driverID)
    if err != nil {
        return decimal.Zero, directoryErr(driverID, err)
    }
    if driver.Kind != directory.KindDriver {
        return decimal.Zero, fmt.Errorf("%w: provider %s is not a driver", ErrInvalidInput, driver.ID)
    }
    return rates.ResolveFare(driver.Fare, serviceType, distanceKm), nil
}

func rideDistance(in CreateRideInput) (float64, error) {
    d := in.DistanceKm
    if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
        return 0, fmt.Errorf("%w: distance must be a non-negative number", ErrInvalidInput)
    }
    if d == 0 && in.Pickup.HasCoordinates() && in.Dropoff.HasCoordinates() {
        d = proximity.HaversineKm(in.Pickup.Lat, in.Pickup.Lng, in.Dropoff.Lat, in.Dropoff.Lng)
        d = math.Round(d*100) / 100
    }
    return d, nil
}

func (s *Service) GetRideBooking(ctx context.Context, actor, id string) (store.RideBooking, error) {
    b, err := s.store.GetRideBooking(ctx, id)
    if err != nil {
        return store.RideBooking{}, storageErr(err)
    }
    if actor != b.CustomerID && actor != b.DriverID {
        return store.RideBooking{}, ErrUnauthorized
    }
    return b, nil
}

func (s *Service) AcceptRide(ctx context.Context, actor, id string) (store.RideBooking, error) {
    return s.TransitionRide(ctx, actor, id, store.StatusAccepted, "")
}

func (s *Service) RejectRide(ctx context.Context, actor, id, reason string) (store.RideBooking, error) {
    return s.TransitionRide(ctx, actor, id, store.StatusRejected, reason)
}

func (s *Service) CancelRide(ctx context.Context, actor, id string) (store.RideBooking, error) {
    return s.TransitionRide(ctx, actor, id, store.StatusCancelled, "")
}

func (s *Service) StartRide(ctx context.Context, actor, id string) (store.RideBooking, error) {
    return s.TransitionRide(ctx, actor, id, store.StatusInProgress, "")
}

func (s *Service) CompleteRide(ctx context.Context, actor, id string) (store.RideBooking, error) {
    return s.TransitionRide(ctx, actor, id, store.StatusCompleted, "")
}

// TransitionRide moves a booking to target if an edge from its current status
// exists and actor holds a role allowed on that edge.
func (s *Service) TransitionRide(ctx context.Context, actor, id, target, reason string) (store.RideBooking, error) {
    reason = strings.TrimSpace(reason)

    var oldStatus string
    rec, _, err := s.store.UpdateRideBooking(ctx, id, func(b *store.RideBooking) (bool, error) {
        oldStatus = b.Status

        var r role
        if actor == b.CustomerID {
            r |= roleCustomer
        }
        if actor == b.DriverID {
            r |= roleDriver
        }
        if r == 0 {
            return false, ErrUnauthorized
        }

        edge, ok := findRideEdge(b.Status, target)
        if !ok {
            return false, fmt.Errorf("%w: ride %s -> %s", ErrInvalidTransition, b.Status, target)
        }
        if edge.roles&r == 0 {
            return false, fmt.Errorf("%w: %s -> %s not allowed for this party", ErrUnauthorized, b.Status, target)
        }

        now := s.now()
        b.Status = target
        b.UpdatedAt = now
        switch target {
        case store.StatusAccepted:
            b.AcceptedAt = &now
        case store.StatusInProgress:
            b.StartedAt = &now
        case store.StatusCompleted:
            b.CompletedAt = &now
        case store.StatusRejected:
            b.RejectReason = reason
        }
        return true, nil
    })
    if err != nil {
        return store.RideBooking{}, storageErr(err)
    }

    s.notify(ctx, events.StatusChange{
        Kind:       events.KindRideBooking,
        RecordID:   rec.ID,
        CustomerID: rec.CustomerID,
        ProviderID: rec.DriverID,
        OldStatus:  oldStatus,
        NewStatus:  rec.Status,
        Actor:      actor,
        Reason:     reason,
    })
    return rec, nil
}
