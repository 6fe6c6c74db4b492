package store

import "time"

// mergeCash keeps everything from current except the fields an update may
// change. Amount and the fee snapshot are never taken from next.
func mergeCash(current, next CashTransaction) CashTransaction {
    out := current
    out.Status = next.Status
    out.CustomerConfirmed = next.CustomerConfirmed
    out.AgentConfirmed = next.AgentConfirmed
    out.RejectReason = next.RejectReason
    out.UpdatedAt = next.UpdatedAt
    out.CompletedAt = copyTime(next.CompletedAt)
    out.Version = current.Version + 1
    return out
}

func mergeRide(current, next RideBooking) RideBooking {
    out := current
    out.Status = next.Status
    out.RejectReason = next.RejectReason
    out.UpdatedAt = next.UpdatedAt
    out.AcceptedAt = copyTime(next.AcceptedAt)
    out.StartedAt = copyTime(next.StartedAt)
    out.CompletedAt = copyTime(next.CompletedAt)
    out.Version = current.Version + 1
    return out
}

func cloneCash(tx CashTransaction) CashTransaction {
    tx.CompletedAt = copyTime(tx.CompletedAt)
    return tx
}

func cloneRide(b RideBooking) RideBooking {
    b.AcceptedAt = copyTime(b.AcceptedAt)
    b.StartedAt = copyTime(b.StartedAt)
    b.CompletedAt = copyTime(b.CompletedAt)
    return b
}

func copyTime(t *time.Time) *time.Time {
    if t == nil {
        return nil
    }
    v := *t
    return &v
}
