package settlement

import (
    "context"

    "marketplace.engine/internal/store"
)

// Store is the settlement record store. Update* must run fn against the
// current record atomically: either the whole mutation is written or none of
// it is. Both store.Store and store.Memory satisfy it.
type Store interface {
    CreateCashTransaction(ctx context.Context, tx store.CashTransaction) (store.CashTransaction, error)
    GetCashTransaction(ctx context.Context, id string) (store.CashTransaction, error)
    UpdateCashTransaction(ctx context.Context, id string, fn store.CashUpdateFunc) (store.CashTransaction, bool, error)
    ListCashTransactions(ctx context.Context, f store.CashFilter) ([]store.CashTransaction, error)

    CreateRideBooking(ctx context.Context, b store.RideBooking) (store.RideBooking, error)
    GetRideBooking(ctx context.Context, id string) (store.RideBooking, error)
    UpdateRideBooking(ctx context.Context, id string, fn store.RideUpdateFunc) (store.RideBooking, bool, error)
    ListRideBookings(ctx context.Context, f store.RideFilter) ([]store.RideBooking, error)
}

var (
    _ Store = (*store.Store)(nil)
    _ Store = (*store.Memory)(nil)
)
