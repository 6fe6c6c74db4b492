package store

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newCash(id, provider string, created time.Time) CashTransaction {
    return CashTransaction{
        ID:            id,
        CustomerID:    "cust-1",
        ProviderID:    provider,
        ServiceType:   ServiceCashToMobile,
        Amount:        decimal.NewFromInt(500),
        FeeAmount:     decimal.NewFromInt(10),
        FeePercentage: decimal.NewFromInt(2),
        Currency:      "KES",
        Status:        StatusPending,
        CreatedAt:     created,
    }
}

func TestMemoryCashLifecycle(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()

    created, err := m.CreateCashTransaction(ctx, newCash("tx-1", "agent-1", baseTime))
    require.NoError(t, err)
    assert.Equal(t, int64(1), created.Version)
    assert.Equal(t, baseTime, created.UpdatedAt)

    _, err = m.CreateCashTransaction(ctx, newCash("tx-1", "agent-1", baseTime))
    assert.ErrorIs(t, err, ErrDuplicate)

    _, err = m.GetCashTransaction(ctx, "missing")
    assert.ErrorIs(t, err, ErrNotFound)

    updated, changed, err := m.UpdateCashTransaction(ctx, "tx-1", func(tx *CashTransaction) (bool, error) {
        tx.CustomerConfirmed = true
        tx.FeeAmount = decimal.NewFromInt(999)
        return true, nil
    })
    require.NoError(t, err)
    assert.True(t, changed)
    assert.True(t, updated.CustomerConfirmed)
    assert.Equal(t, int64(2), updated.Version)
    assert.True(t, decimal.NewFromInt(10).Equal(updated.FeeAmount), "fee snapshot must not change")

    got, err := m.GetCashTransaction(ctx, "tx-1")
    require.NoError(t, err)
    assert.Equal(t, updated, got)
}

func TestMemoryUpdateNoChangeAndError(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    _, err := m.CreateCashTransaction(ctx, newCash("tx-1", "agent-1", baseTime))
    require.NoError(t, err)

    got, changed, err := m.UpdateCashTransaction(ctx, "tx-1", func(tx *CashTransaction) (bool, error) {
        tx.Status = StatusCancelled
        return false, nil
    })
    require.NoError(t, err)
    assert.False(t, changed)
    assert.Equal(t, StatusPending, got.Status)

    boom := errors.New("boom")
    _, _, err = m.UpdateCashTransaction(ctx, "tx-1", func(tx *CashTransaction) (bool, error) {
        tx.Status = StatusCancelled
        return true, boom
    })
    assert.ErrorIs(t, err, boom)

    stored, err := m.GetCashTransaction(ctx, "tx-1")
    require.NoError(t, err)
    assert.Equal(t, StatusPending, stored.Status)
    assert.Equal(t, int64(1), stored.Version)

    _, _, err = m.UpdateCashTransaction(ctx, "missing", func(*CashTransaction) (bool, error) { return true, nil })
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryConcurrentUpdatesAreSerialized(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    _, err := m.CreateRideBooking(ctx, RideBooking{ID: "r-1", DriverID: "d-1", Status: StatusPending, CreatedAt: baseTime})
    require.NoError(t, err)

    const workers = 50
    var wg sync.WaitGroup
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, _, err := m.UpdateRideBooking(ctx, "r-1", func(b *RideBooking) (bool, error) {
                b.Notes = "ignored"
                return true, nil
            })
            assert.NoError(t, err)
        }()
    }
    wg.Wait()

    got, err := m.GetRideBooking(ctx, "r-1")
    require.NoError(t, err)
    assert.Equal(t, int64(workers+1), got.Version)
    assert.Empty(t, got.Notes)
}

func TestMemoryListFilters(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()

    for _, tx := range []CashTransaction{
        newCash("a", "agent-1", baseTime),
        newCash("b", "agent-1", baseTime.Add(2*time.Hour)),
        newCash("c", "agent-2", baseTime.Add(time.Hour)),
    } {
        _, err := m.CreateCashTransaction(ctx, tx)
        require.NoError(t, err)
    }

    all, err := m.ListCashTransactions(ctx, CashFilter{ProviderID: "agent-1"})
    require.NoError(t, err)
    require.Len(t, all, 2)
    assert.Equal(t, "b", all[0].ID)
    assert.Equal(t, "a", all[1].ID)

    windowed, err := m.ListCashTransactions(ctx, CashFilter{Since: baseTime.Add(time.Hour), Until: baseTime.Add(2 * time.Hour)})
    require.NoError(t, err)
    require.Len(t, windowed, 1)
    assert.Equal(t, "c", windowed[0].ID)

    none, err := m.ListCashTransactions(ctx, CashFilter{Status: StatusCompleted})
    require.NoError(t, err)
    assert.Empty(t, none)
}

func TestMemoryReturnsCopies(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    _, err := m.CreateRideBooking(ctx, RideBooking{ID: "r-1", Status: StatusPending, CreatedAt: baseTime})
    require.NoError(t, err)

    accepted := baseTime.Add(time.Minute)
    _, _, err = m.UpdateRideBooking(ctx, "r-1", func(b *RideBooking) (bool, error) {
        b.Status = StatusAccepted
        b.AcceptedAt = &accepted
        return true, nil
    })
    require.NoError(t, err)

    got, err := m.GetRideBooking(ctx, "r-1")
    require.NoError(t, err)
    *got.AcceptedAt = time.Time{}

    again, err := m.GetRideBooking(ctx, "r-1")
    require.NoError(t, err)
    assert.Equal(t, accepted, *again.AcceptedAt)
}
