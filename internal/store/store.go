package store

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/shopspring/decimal"
)

const cashColumns = `
    id, customer_id, provider_id, service_type, network,
    amount::text, fee_amount::text, fee_percentage::text, currency, status,
    customer_confirmed, agent_confirmed, notes,
    location_address, location_lat, location_lng,
    reject_reason, version, created_at, updated_at, completed_at`

const rideColumns = `
    id, customer_id, driver_id, service_type,
    pickup_address, pickup_lat, pickup_lng,
    dropoff_address, dropoff_lat, dropoff_lng,
    distance_km, fare::text, currency, status, reject_reason, notes,
    version, created_at, updated_at, accepted_at, started_at, completed_at`

// Store is the Postgres-backed record store. Updates lock the row with
// SELECT ... FOR UPDATE and bump version, so concurrent updates to the same
// record serialize.
type Store struct {
    pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
    return &Store{pool: pool}
}

type rowScanner interface {
    Scan(dest ...any) error
}

func (s *Store) CreateCashTransaction(ctx context.Context, in CashTransaction) (CashTransaction, error) {
    row := s.pool.QueryRow(ctx, `
        INSERT INTO cash_transactions (
            id, customer_id, provider_id, service_type, network,
            amount, fee_amount, fee_percentage, currency, status,
            customer_confirmed, agent_confirmed, notes,
            location_address, location_lat, location_lng,
            reject_reason, version, created_at, updated_at, completed_at
        )
        VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1, $18, $18, $19)
        RETURNING `+cashColumns,
        in.ID,
        in.CustomerID,
        in.ProviderID,
        in.ServiceType,
        in.Network,
        in.Amount.String(),
        in.FeeAmount.String(),
        in.FeePercentage.String(),
        in.Currency,
        in.Status,
        in.CustomerConfirmed,
        in.AgentConfirmed,
        in.Notes,
        in.Location.Address,
        in.Location.Lat,
        in.Location.Lng,
        in.RejectReason,
        in.CreatedAt,
        in.CompletedAt,
    )
    created, err := scanCash(row)
    if err != nil {
        if isUniqueViolation(err) {
            return CashTransaction{}, ErrDuplicate
        }
        return CashTransaction{}, err
    }
    return created, nil
}

func (s *Store) GetCashTransaction(ctx context.Context, id string) (CashTransaction, error) {
    tx, err := scanCash(s.pool.QueryRow(ctx, `SELECT `+cashColumns+` FROM cash_transactions WHERE id = $1`, id))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return CashTransaction{}, ErrNotFound
        }
        return CashTransaction{}, err
    }
    return tx, nil
}

func (s *Store) UpdateCashTransaction(ctx context.Context, id string, fn CashUpdateFunc) (CashTransaction, bool, error) {
    tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return CashTransaction{}, false, err
    }
    defer func() {
        _ = tx.Rollback(ctx)
    }()

    current, err := scanCash(tx.QueryRow(ctx, `SELECT `+cashColumns+` FROM cash_transactions WHERE id = $1 FOR UPDATE`, id))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return CashTransaction{}, false, ErrNotFound
        }
        return CashTransaction{}, false, err
    }

    next := current
    changed, err := fn(&next)
    if err != nil {
        return CashTransaction{}, false, err
    }
    if !changed {
        if err := tx.Commit(ctx); err != nil {
            return CashTransaction{}, false, err
        }
        return current, false, nil
    }
    next = mergeCash(current, next)

    tag, err := tx.Exec(ctx, `
        UPDATE cash_transactions
        SET status = $1, customer_confirmed = $2, agent_confirmed = $3, reject_reason = $4,
            updated_at = $5, completed_at = $6, version = $7
        WHERE id = $8 AND version = $9
    `,
        next.Status,
        next.CustomerConfirmed,
        next.AgentConfirmed,
        next.RejectReason,
        next.UpdatedAt,
        next.CompletedAt,
        next.Version,
        id,
        current.Version,
    )
    if err != nil {
        return CashTransaction{}, false, err
    }
    if tag.RowsAffected() != 1 {
        return CashTransaction{}, false, fmt.Errorf("update cash transaction %s: version %d no longer current", id, current.Version)
    }

    if err := tx.Commit(ctx); err != nil {
        return CashTransaction{}, false, err
    }
    return next, true, nil
}

func (s *Store) ListCashTransactions(ctx context.Context, f CashFilter) ([]CashTransaction, error) {
    var w whereBuilder
    w.eq("provider_id", f.ProviderID)
    w.eq("customer_id", f.CustomerID)
    w.eq("status", f.Status)
    w.window(f.Since, f.Until)

    rows, err := s.pool.Query(ctx, `SELECT `+cashColumns+` FROM cash_transactions`+w.sql()+` ORDER BY created_at DESC, id`, w.args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []CashTransaction
    for rows.Next() {
        tx, err := scanCash(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, tx)
    }
    return out, rows.Err()
}

func (s *Store) CreateRideBooking(ctx context.Context, in RideBooking) (RideBooking, error) {
    row := s.pool.QueryRow(ctx, `
        INSERT INTO ride_bookings (
            id, customer_id, driver_id, service_type,
            pickup_address, pickup_lat, pickup_lng,
            dropoff_address, dropoff_lat, dropoff_lng,
            distance_km, fare, currency, status, reject_reason, notes,
            version, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::numeric, $13, $14, $15, $16, 1, $17, $17)
        RETURNING `+rideColumns,
        in.ID,
        in.CustomerID,
        in.DriverID,
        in.ServiceType,
        in.Pickup.Address,
        in.Pickup.Lat,
        in.Pickup.Lng,
        in.Dropoff.Address,
        in.Dropoff.Lat,
        in.Dropoff.Lng,
        in.DistanceKm,
        in.Fare.String(),
        in.Currency,
        in.Status,
        in.RejectReason,
        in.Notes,
        in.CreatedAt,
    )
    created, err := scanRide(row)
    if err != nil {
        if isUniqueViolation(err) {
            return RideBooking{}, ErrDuplicate
        }
        return RideBooking{}, err
    }
    return created, nil
}

func (s *Store) GetRideBooking(ctx context.Context, id string) (RideBooking, error) {
    b, err := scanRide(s.pool.QueryRow(ctx, `SELECT `+rideColumns+` FROM ride_bookings WHERE id = $1`, id))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return RideBooking{}, ErrNotFound
        }
        return RideBooking{}, err
    }
    return b, nil
}

func (s *Store) UpdateRideBooking(ctx context.Context, id string, fn RideUpdateFunc) (RideBooking, bool, error) {
    tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil {
        return RideBooking{}, false, err
    }
    defer func() {
        _ = tx.Rollback(ctx)
    }()

    current, err := scanRide(tx.QueryRow(ctx, `SELECT `+rideColumns+` FROM ride_bookings WHERE id = $1 FOR UPDATE`, id))
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) {
            return RideBooking{}, false, ErrNotFound
        }
        return RideBooking{}, false, err
    }

    next := current
    changed, err := fn(&next)
    if err != nil {
        return RideBooking{}, false, err
    }
    if !changed {
        if err := tx.Commit(ctx); err != nil {
            return RideBooking{}, false, err
        }
        return current, false, nil
    }
    next = mergeRide(current, next)

    tag, err := tx.Exec(ctx, `
        UPDATE ride_bookings
        SET status = $1, reject_reason = $2, updated_at = $3,
            accepted_at = $4, started_at = $5, completed_at = $6, version = $7
        WHERE id = $8 AND version = $9
    `,
        next.Status,
        next.RejectReason,
        next.UpdatedAt,
        next.AcceptedAt,
        next.StartedAt,
        next.CompletedAt,
        next.Version,
        id,
        current.Version,
    )
    if err != nil {
        return RideBooking{}, false, err
    }
    if tag.RowsAffected() != 1 {
        return RideBooking{}, false, fmt.Errorf("update ride booking %s: version %d no longer current", id, current.Version)
    }

    if err := tx.Commit(ctx); err != nil {
        return RideBooking{}, false, err
    }
    return next, true, nil
}

func (s *Store) ListRideBookings(ctx context.Context, f RideFilter) ([]RideBooking, error) {
    var w whereBuilder
    w.eq("driver_id", f.DriverID)
    w.eq("customer_id", f.CustomerID)
    w.eq("status", f.Status)
    w.window(f.Since, f.Until)

    rows, err := s.pool.Query(ctx, `SELECT `+rideColumns+` FROM ride_bookings`+w.sql()+` ORDER BY created_at DESC, id`, w.args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    var out []RideBooking
    for rows.Next() {
        b, err := scanRide(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

func scanCash(row rowScanner) (CashTransaction, error) {
    var tx CashTransaction
    var amount, fee, pct string
    err := row.Scan(
        &tx.ID,
        &tx.CustomerID,
        &tx.ProviderID,
        &tx.ServiceType,
        &tx.Network,
        &amount,
        &fee,
        &pct,
        &tx.Currency,
        &tx.Status,
        &tx.CustomerConfirmed,
        &tx.AgentConfirmed,
        &tx.Notes,
        &tx.Location.Address,
        &tx.Location.Lat,
        &tx.Location.Lng,
        &tx.RejectReason,
        &tx.Version,
        &tx.CreatedAt,
        &tx.UpdatedAt,
        &tx.CompletedAt,
    )
    if err != nil {
        return CashTransaction{}, err
    }
    if tx.Amount, err = decimal.NewFromString(amount); err != nil {
        return CashTransaction{}, fmt.Errorf("parse amount: %w", err)
    }
    if tx.FeeAmount, err = decimal.NewFromString(fee); err != nil {
        return CashTransaction{}, fmt.Errorf("parse fee amount: %w", err)
    }
    if tx.FeePercentage, err = decimal.NewFromString(pct); err != nil {
        return CashTransaction{}, fmt.Errorf("parse fee percentage: %w", err)
    }
    return tx, nil
}

func scanRide(row rowScanner) (RideBooking, error) {
    var b RideBooking
    var fare string
    err := row.Scan(
        &b.ID,
        &b.CustomerID,
        &b.DriverID,
        &b.ServiceType,
        &b.Pickup.Address,
        &b.Pickup.Lat,
        &b.Pickup.Lng,
        &b.Dropoff.Address,
        &b.Dropoff.Lat,
        &b.Dropoff.Lng,
        &b.DistanceKm,
        &fare,
        &b.Currency,
        &b.Status,
        &b.RejectReason,
        &b.Notes,
        &b.Version,
        &b.CreatedAt,
        &b.UpdatedAt,
        &b.AcceptedAt,
        &b.StartedAt,
        &b.CompletedAt,
    )
    if err != nil {
        return RideBooking{}, err
    }
    if b.Fare, err = decimal.NewFromString(fare); err != nil {
        return RideBooking{}, fmt.Errorf("parse fare: %w", err)
    }
    return b, nil
}

type whereBuilder struct {
    conds []string
    args  []any
}

func (w *whereBuilder) eq(column, value string) {
    if value == "" {
        return
    }
    w.args = append(w.args, value)
    w.conds = append(w.conds, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *whereBuilder) window(since, until time.Time) {
    if !since.IsZero() {
        w.args = append(w.args, since)
        w.conds = append(w.conds, fmt.Sprintf("created_at >= $%d", len(w.args)))
    }
    if !until.IsZero() {
        w.args = append(w.args, until)
        w.conds = append(w.conds, fmt.Sprintf("created_at < $%d", len(w.args)))
    }
}

func (w *whereBuilder) sql() string {
    if len(w.conds) == 0 {
        return ""
    }
    return " WHERE " + strings.Join(w.conds, " AND ")
}

func isUniqueViolation(err error) bool {
    var pgErr *pgconn.PgError
    if !errors.As(err, &pgErr) {
        return false
    }
    return pgErr.Code == "23505"
}
