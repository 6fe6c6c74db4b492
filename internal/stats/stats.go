// Package stats derives dashboard rollups from a provider's records. It only
// reads; nothing here mutates the store.
package stats

import (
    "context"
    "fmt"
    "time"

    "github.com/shopspring/decimal"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/store"
)

var hundred = decimal.NewFromInt(100)

type Stats struct {
    TotalCount      int             `json:"total_count"`
    CompletedCount  int             `json:"completed_count"`
    CancelledCount  int             `json:"cancelled_count"`
    PendingCount    int             `json:"pending_count"`
    RejectedCount   int             `json:"rejected_count"`
    ActiveCount     int             `json:"active_count"`
    TotalVolume     decimal.Decimal `json:"total_volume"`
    TotalRevenue    decimal.Decimal `json:"total_revenue"`
    TotalDistanceKm float64         `json:"total_distance_km,omitempty"`
    UniqueCustomers int             `json:"unique_customers"`
    AcceptanceRate  decimal.Decimal `json:"acceptance_rate"`
    CompletionRate  decimal.Decimal `json:"completion_rate"`
    Daily           []DayBucket     `json:"daily,omitempty"`
}

type DayBucket struct {
    Date      string          `json:"date"`
    Count     int             `json:"count"`
    Completed int             `json:"completed"`
    Volume    decimal.Decimal `json:"volume"`
    Revenue   decimal.Decimal `json:"revenue"`
}

type Source interface {
    ListCashTransactions(ctx context.Context, f store.CashFilter) ([]store.CashTransaction, error)
    ListRideBookings(ctx context.Context, f store.RideFilter) ([]store.RideBooking, error)
}

type Aggregator struct {
    source Source
    now    func() time.Time
}

func NewAggregator(source Source, now func() time.Time) *Aggregator {
    if now == nil {
        now = func() time.Time { return time.Now().UTC() }
    }
    return &Aggregator{source: source, now: now}
}

// ProviderStats summarizes the provider's records created within period and
// attaches the last-7-days daily series regardless of period.
func (a *Aggregator) ProviderStats(ctx context.Context, kind directory.Kind, providerID string, period Period) (Stats, error) {
    now := a.now()
    since, until := period.Window(now)
    seriesSince, _ := PeriodLast7Days.Window(now)

    fetchSince := since
    if !fetchSince.IsZero() && seriesSince.Before(fetchSince) {
        fetchSince = seriesSince
    }

    switch kind {
    case directory.KindAgent:
        txs, err := a.source.ListCashTransactions(ctx, store.CashFilter{ProviderID: providerID, Since: fetchSince, Until: until})
        if err != nil {
            return Stats{}, fmt.Errorf("list cash transactions for %s: %w", providerID, err)
        }
        st := SummarizeCash(filterCash(txs, since, until))
        st.Daily = DailyCash(txs, now)
        return st, nil
    case directory.KindDriver:
        rides, err := a.source.ListRideBookings(ctx, store.RideFilter{DriverID: providerID, Since: fetchSince, Until: until})
        if err != nil {
            return Stats{}, fmt.Errorf("list ride bookings for %s: %w", providerID, err)
        }
        st := SummarizeRides(filterRides(rides, since, until))
        st.Daily = DailyRides(rides, now)
        return st, nil
    }
    return Stats{}, fmt.Errorf("%w: %q", directory.ErrInvalidKind, kind)
}

// SummarizeCash treats a transaction as accepted once the agent confirmed it
// (or it completed). Volume is the exchanged amount, revenue the fee.
func SummarizeCash(txs []store.CashTransaction) Stats {
    st := Stats{TotalVolume: decimal.Zero, TotalRevenue: decimal.Zero}
    customers := make(map[string]struct{})
    accepted := 0

    for _, tx := range txs {
        st.TotalCount++
        customers[tx.CustomerID] = struct{}{}
        switch tx.Status {
        case store.StatusCompleted:
            st.CompletedCount++
            st.TotalVolume = st.TotalVolume.Add(tx.Amount)
            st.TotalRevenue = st.TotalRevenue.Add(tx.FeeAmount)
        case store.StatusCancelled:
            st.CancelledCount++
        case store.StatusRejected:
            st.RejectedCount++
        case store.StatusPending:
            st.PendingCount++
        }
        if tx.Status == store.StatusCompleted || tx.AgentConfirmed {
            accepted++
        }
    }

    st.UniqueCustomers = len(customers)
    st.AcceptanceRate = percent(accepted, accepted+st.RejectedCount)
    st.CompletionRate = percent(st.CompletedCount, accepted)
    return st
}

// SummarizeRides counts a ride as accepted once it reached accepted, whether
// or not it has moved on since.
func SummarizeRides(rides []store.RideBooking) Stats {
    st := Stats{TotalVolume: decimal.Zero, TotalRevenue: decimal.Zero}
    customers := make(map[string]struct{})
    accepted := 0

    for _, b := range rides {
        st.TotalCount++
        customers[b.CustomerID] = struct{}{}
        switch b.Status {
        case store.StatusCompleted:
            st.CompletedCount++
            accepted++
            st.TotalVolume = st.TotalVolume.Add(b.Fare)
            st.TotalRevenue = st.TotalRevenue.Add(b.Fare)
            st.TotalDistanceKm += b.DistanceKm
        case store.StatusAccepted, store.StatusInProgress:
            st.ActiveCount++
            accepted++
        case store.StatusCancelled:
            st.CancelledCount++
        case store.StatusRejected:
            st.RejectedCount++
        case store.StatusPending:
            st.PendingCount++
        }
    }

    st.UniqueCustomers = len(customers)
    st.AcceptanceRate = percent(accepted, accepted+st.RejectedCount)
    st.CompletionRate = percent(st.CompletedCount, accepted)
    return st
}

// DailyCash buckets the seven days ending today, oldest first.
func DailyCash(txs []store.CashTransaction, now time.Time) []DayBucket {
    days, index := emptyDays(now)
    for _, tx := range txs {
        i, ok := index[dayKey(tx.CreatedAt.In(now.Location()))]
        if !ok {
            continue
        }
        days[i].Count++
        if tx.Status == store.StatusCompleted {
            days[i].Completed++
            days[i].Volume = days[i].Volume.Add(tx.Amount)
            days[i].Revenue = days[i].Revenue.Add(tx.FeeAmount)
        }
    }
    return days
}

func DailyRides(rides []store.RideBooking, now time.Time) []DayBucket {
    days, index := emptyDays(now)
    for _, b := range rides {
        i, ok := index[dayKey(b.CreatedAt.In(now.Location()))]
        if !ok {
            continue
        }
        days[i].Count++
        if b.Status == store.StatusCompleted {
            days[i].Completed++
            days[i].Volume = days[i].Volume.Add(b.Fare)
            days[i].Revenue = days[i].Revenue.Add(b.Fare)
        }
    }
    return days
}

func emptyDays(now time.Time) ([]DayBucket, map[string]int) {
    start := startOfDay(now).AddDate(0, 0, -6)
    days := make([]DayBucket, 7)
    index := make(map[string]int, 7)
    for i := range days {
        key := dayKey(start.AddDate(0, 0, i))
        days[i] = DayBucket{Date: key, Volume: decimal.Zero, Revenue: decimal.Zero}
        index[key] = i
    }
    return days, index
}

func dayKey(t time.Time) string {
    return t.Format("2006-01-02")
}

// percent is 100 when there is nothing to divide by.
func percent(num, den int) decimal.Decimal {
    if den == 0 {
        return hundred
    }
    return decimal.NewFromInt(int64(num)).Mul(hundred).Div(decimal.NewFromInt(int64(den))).Round(2)
}

func filterCash(txs []store.CashTransaction, since, until time.Time) []store.CashTransaction {
    out := make([]store.CashTransaction, 0, len(txs))
    for _, tx := range txs {
        if inWindow(tx.CreatedAt, since, until) {
            out = append(out, tx)
        }
    }
    return out
}

func filterRides(rides []store.RideBooking, since, until time.Time) []store.RideBooking {
    out := make([]store.RideBooking, 0, len(rides))
    for _, b := range rides {
        if inWindow(b.CreatedAt, since, until) {
            out = append(out, b)
        }
    }
    return out
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
