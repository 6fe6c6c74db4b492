package settlement

import (
    "context"
    "fmt"
    "strings"

    "github.com/shopspring/decimal"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/events"
    "marketplace.engine/internal/rates"
    "marketplace.engine/internal/store"
)

type CreateCashInput struct {
    CustomerID  string
    ProviderID  string
    ServiceType string
    Network     string
    Amount      decimal.Decimal
    Currency    string
    Notes       string
    Location    store.Location
}

type party int

const (
    partyCustomer party = iota
    partyAgent
)

func (p party) String() string {
    if p == partyAgent {
        return "agent"
    }
    return "customer"
}

// CreateCashTransaction validates the request against the agent's limits,
// snapshots the fee in effect now, and stores a pending record with neither
// side confirmed.
func (s *Service) CreateCashTransaction(ctx context.Context, in CreateCashInput) (store.CashTransaction, error) {
    in.CustomerID = strings.TrimSpace(in.CustomerID)
    in.ProviderID = strings.TrimSpace(in.ProviderID)
    in.Network = strings.TrimSpace(in.Network)
    in.Currency = strings.TrimSpace(in.Currency)

    if in.CustomerID == "" || in.ProviderID == "" {
        return store.CashTransaction{}, fmt.Errorf("%w: customer and provider are required", ErrInvalidInput)
    }
    if in.CustomerID == in.ProviderID {
        return store.CashTransaction{}, fmt.Errorf("%w: customer and provider must differ", ErrInvalidInput)
    }
    if !store.IsCashService(in.ServiceType) {
        return store.CashTransaction{}, fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, in.ServiceType)
    }
    if !in.Amount.IsPositive() {
        return store.CashTransaction{}, fmt.Errorf("%w: amount must be positive", ErrAmountOutOfRange)
    }

    provider, err := s.dir.GetProvider(ctx, in.ProviderID)
    if err != nil {
        return store.CashTransaction{}, directoryErr(in.ProviderID, err)
    }
    if provider.Kind != directory.KindAgent {
        return store.CashTransaction{}, fmt.Errorf("%w: provider %s is not an agent", ErrInvalidInput, provider.ID)
    }
    if !provider.Limits.Contains(in.Amount) {
        return store.CashTransaction{}, fmt.Errorf("%w: %s not within [%s, %s]", ErrAmountOutOfRange, in.Amount, provider.Limits.Min, limitMax(provider.Limits))
    }

    currency := in.Currency
    if currency == "" {
        currency = provider.Currency
    }
    if currency == "" {
        return store.CashTransaction{}, fmt.Errorf("%w: currency is required", ErrInvalidInput)
    }

    fee := rates.ResolveFee(provider.Fees, in.ServiceType, in.Network, in.Amount)

    record := store.CashTransaction{
        ID:            s.newID(),
        CustomerID:    in.CustomerID,
        ProviderID:    in.ProviderID,
        ServiceType:   in.ServiceType,
        Network:       in.Network,
        Amount:        in.Amount,
        FeeAmount:     fee.Amount,
        FeePercentage: fee.Percentage,
        Currency:      currency,
        Status:        store.StatusPending,
        Notes:         strings.TrimSpace(in.Notes),
        Location:      in.Location,
        CreatedAt:     s.now(),
    }
    created, err := s.store.CreateCashTransaction(ctx, record)
    if err != nil {
        return store.CashTransaction{}, storageErr(err)
    }
    return created, nil
}

// QuoteFee resolves the fee an agent would charge, without creating a record.
func (s *Service) QuoteFee(ctx context.Context, providerID, serviceType, network string, amount decimal.Decimal) (rates.Fee, error) {
    if !store.IsCashService(serviceType) {
        return rates.Fee{}, fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, serviceType)
    }
    if !amount.IsPositive() {
        return rates.Fee{}, fmt.Errorf("%w: amount must be positive", ErrAmountOutOfRange)
    }
    provider, err := s.dir.GetProvider(ctx, providerID)
    if err != nil {
        return rates.Fee{}, directoryErr(providerID, err)
    }
    if provider.Kind != directory.KindAgent {
        return rates.Fee{}, fmt.Errorf("%w: provider %s is not an agent", ErrInvalidInput, provider.ID)
    }
    if !provider.Limits.Contains(amount) {
        return rates.Fee{}, fmt.Errorf("%w: %s not within [%s, %s]", ErrAmountOutOfRange, amount, provider.Limits.Min, limitMax(provider.Limits))
    }
    return rates.ResolveFee(provider.Fees, serviceType, strings.TrimSpace(network), amount), nil
}

func (s *Service) GetCashTransaction(ctx context.Context, actor, id string) (store.CashTransaction, error) {
    tx, err := s.store.GetCashTransaction(ctx, id)
    if err != nil {
        return store.CashTransaction{}, storageErr(err)
    }
    if actor != tx.CustomerID && actor != tx.ProviderID {
        return store.CashTransaction{}, ErrUnauthorized
    }
    return tx, nil
}

// CustomerConfirm records the customer's attestation. Confirming twice is a
// no-op; if the agent already confirmed, the record completes in the same
// update.
func (s *Service) CustomerConfirm(ctx context.Context, actor, id string) (store.CashTransaction, error) {
    return s.confirmCash(ctx, actor, id, partyCustomer)
}

// AgentConfirm is CustomerConfirm for the provider side.
func (s *Service) AgentConfirm(ctx context.Context, actor, id string) (store.CashTransaction, error) {
    return s.confirmCash(ctx, actor, id, partyAgent)
}

func (s *Service) confirmCash(ctx context.Context, actor, id string, p party) (store.CashTransaction, error) {
    var oldStatus string
    rec, changed, err := s.store.UpdateCashTransaction(ctx, id, func(tx *store.CashTransaction) (bool, error) {
        oldStatus = tx.Status
        if !isCashParty(*tx, actor, p) {
            return false, ErrUnauthorized
        }

        flag := &tx.CustomerConfirmed
        if p == partyAgent {
            flag = &tx.AgentConfirmed
        }

        switch tx.Status {
        case store.StatusPending:
        case store.StatusCompleted:
            // Settled already, e.g. a confirm retried after losing a race.
            return false, nil
        default:
            return false, fmt.Errorf("%w: %s confirm on %s transaction", ErrNotPending, p, tx.Status)
        }

        if *flag {
            return false, nil
        }
        *flag = true

        now := s.now()
        tx.UpdatedAt = now
        if tx.CustomerConfirmed && tx.AgentConfirmed {
            tx.Status = store.StatusCompleted
            tx.CompletedAt = &now
        }
        return true, nil
    })
    if err != nil {
        return store.CashTransaction{}, storageErr(err)
    }

    if changed && rec.Status != oldStatus {
        s.notify(ctx, cashEvent(rec, oldStatus, actor))
    }
    return rec, nil
}

func (s *Service) CancelCashTransaction(ctx context.Context, actor, id string) (store.CashTransaction, error) {
    return s.closeCash(ctx, actor, id, store.StatusCancelled, "")
}

// RejectCashTransaction is the agent declining the request.
func (s *Service) RejectCashTransaction(ctx context.Context, actor, id, reason string) (store.CashTransaction, error) {
    return s.closeCash(ctx, actor, id, store.StatusRejected, strings.TrimSpace(reason))
}

func (s *Service) closeCash(ctx context.Context, actor, id, target, reason string) (store.CashTransaction, error) {
    var oldStatus string
    rec, _, err := s.store.UpdateCashTransaction(ctx, id, func(tx *store.CashTransaction) (bool, error) {
        oldStatus = tx.Status
        switch target {
        case store.StatusRejected:
            if actor != tx.ProviderID {
                return false, ErrUnauthorized
            }
        default:
            if actor != tx.CustomerID && actor != tx.ProviderID {
                return false, ErrUnauthorized
            }
        }
        if tx.Status != store.StatusPending {
            return false, fmt.Errorf("%w: cannot move %s transaction to %s", ErrNotPending, tx.Status, target)
        }
        tx.Status = target
        tx.RejectReason = reason
        tx.UpdatedAt = s.now()
        return true, nil
    })
    if err != nil {
        return store.CashTransaction{}, storageErr(err)
    }

    ev := cashEvent(rec, oldStatus, actor)
    ev.Reason = reason
    s.notify(ctx, ev)
    return rec, nil
}

func isCashParty(tx store.CashTransaction, actor string, p party) bool {
    if p == partyAgent {
        return actor == tx.ProviderID
    }
    return actor == tx.CustomerID
}

func cashEvent(tx store.CashTransaction, oldStatus, actor string) events.StatusChange {
    return events.StatusChange{
        Kind:       events.KindCashTransaction,
        RecordID:   tx.ID,
        CustomerID: tx.CustomerID,
        ProviderID: tx.ProviderID,
        OldStatus:  oldStatus,
        NewStatus:  tx.Status,
        Actor:      actor,
    }
}

func limitMax(l rates.AmountLimits) string {
    if l.Max.IsZero() {
        return "unbounded"
    }
    return l.Max.String()
}
