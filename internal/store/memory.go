package store

import (
    "context"
    "sort"
    "sync"
)

// Memory is an in-process record store with the same update semantics as
// Store: the update function runs under the store lock, so read-check-write
// on a record is atomic.
type Memory struct {
    mu    sync.Mutex
    cash  map[string]CashTransaction
    rides map[string]RideBooking
}

func NewMemory() *Memory {
    return &Memory{
        cash:  make(map[string]CashTransaction),
        rides: make(map[string]RideBooking),
    }
}

func (m *Memory) CreateCashTransaction(ctx context.Context, in CashTransaction) (CashTransaction, error) {
    if err := ctx.Err(); err != nil {
        return CashTransaction{}, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    if _, ok := m.cash[in.ID]; ok {
        return CashTransaction{}, ErrDuplicate
    }
    in.Version = 1
    in.UpdatedAt = in.CreatedAt
    in.CompletedAt = copyTime(in.CompletedAt)
    m.cash[in.ID] = in
    return in, nil
}

func (m *Memory) GetCashTransaction(ctx context.Context, id string) (CashTransaction, error) {
    if err := ctx.Err(); err != nil {
        return CashTransaction{}, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    tx, ok := m.cash[id]
    if !ok {
        return CashTransaction{}, ErrNotFound
    }
    return cloneCash(tx), nil
}

func (m *Memory) UpdateCashTransaction(ctx context.Context, id string, fn CashUpdateFunc) (CashTransaction, bool, error) {
    if err := ctx.Err(); err != nil {
        return CashTransaction{}, false, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    current, ok := m.cash[id]
    if !ok {
        return CashTransaction{}, false, ErrNotFound
    }

    next := cloneCash(current)
    changed, err := fn(&next)
    if err != nil {
        return CashTransaction{}, false, err
    }
    if !changed {
        return cloneCash(current), false, nil
    }

    next = mergeCash(current, next)
    m.cash[id] = next
    return cloneCash(next), true, nil
}

func (m *Memory) ListCashTransactions(ctx context.Context, f CashFilter) ([]CashTransaction, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    var out []CashTransaction
    for _, tx := range m.cash {
        if f.match(tx) {
            out = append(out, cloneCash(tx))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (m *Memory) CreateRideBooking(ctx context.Context, in RideBooking) (RideBooking, error) {
    if err := ctx.Err(); err != nil {
        return RideBooking{}, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    if _, ok := m.rides[in.ID]; ok {
        return RideBooking{}, ErrDuplicate
    }
    in.Version = 1
    in.UpdatedAt = in.CreatedAt
    in = cloneRide(in)
    m.rides[in.ID] = in
    return cloneRide(in), nil
}

func (m *Memory) GetRideBooking(ctx context.Context, id string) (RideBooking, error) {
    if err := ctx.Err(); err != nil {
        return RideBooking{}, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    b, ok := m.rides[id]
    if !ok {
        return RideBooking{}, ErrNotFound
    }
    return cloneRide(b), nil
}

func (m *Memory) UpdateRideBooking(ctx context.Context, id string, fn RideUpdateFunc) (RideBooking, bool, error) {
    if err := ctx.Err(); err != nil {
        return RideBooking{}, false, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    current, ok := m.rides[id]
    if !ok {
        return RideBooking{}, false, ErrNotFound
    }

    next := cloneRide(current)
    changed, err := fn(&next)
    if err != nil {
        return RideBooking{}, false, err
    }
    if !changed {
        return cloneRide(current), false, nil
    }

    next = mergeRide(current, next)
    m.rides[id] = next
    return cloneRide(next), true, nil
}

func (m *Memory) ListRideBookings(ctx context.Context, f RideFilter) ([]RideBooking, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    var out []RideBooking
    for _, b := range m.rides {
        if f.match(b) {
            out = append(out, cloneRide(b))
        }
    }
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}
