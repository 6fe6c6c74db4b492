package api

import (
    "net/http"
    "time"

    "github.com/gorilla/mux"
    "github.com/shopspring/decimal"

    "marketplace.engine/internal/settlement"
    "marketplace.engine/internal/store"
)

type createCashRequest struct {
    ProviderID  string          `json:"provider_id"`
    ServiceType string          `json:"service_type"`
    Network     string          `json:"network"`
    Amount      decimal.Decimal `json:"amount"`
    Currency    string          `json:"currency"`
    Notes       string          `json:"notes"`
    Location    store.Location  `json:"location"`
}

type createRideRequest struct {
    DriverID    string         `json:"driver_id"`
    ServiceType string         `json:"service_type"`
    Pickup      store.Location `json:"pickup"`
    Dropoff     store.Location `json:"dropoff"`
    DistanceKm  float64        `json:"distance_km"`
    Notes       string         `json:"notes"`
}

type reasonRequest struct {
    Reason string `json:"reason"`
}

type cashResponse struct {
    ID                string          `json:"id"`
    CustomerID        string          `json:"customer_id"`
    ProviderID        string          `json:"provider_id"`
    ServiceType       string          `json:"service_type"`
    Network           string          `json:"network,omitempty"`
    Amount            decimal.Decimal `json:"amount"`
    FeeAmount         decimal.Decimal `json:"fee_amount"`
    FeePercentage     decimal.Decimal `json:"fee_percentage"`
    Currency          string          `json:"currency"`
    Status            string          `json:"status"`
    CustomerConfirmed bool            `json:"customer_confirmed"`
    AgentConfirmed    bool            `json:"agent_confirmed"`
    Notes             string          `json:"notes,omitempty"`
    Location          store.Location  `json:"location"`
    RejectReason      string          `json:"reject_reason,omitempty"`
    CreatedAt         time.Time       `json:"created_at"`
    UpdatedAt         time.Time       `json:"updated_at"`
    CompletedAt       *time.Time      `json:"completed_at,omitempty"`
}

type rideResponse struct {
    ID           string          `json:"id"`
    CustomerID   string          `json:"customer_id"`
    DriverID     string          `json:"driver_id"`
    ServiceType  string          `json:"service_type"`
    Pickup       store.Location  `json:"pickup"`
    Dropoff      store.Location  `json:"dropoff"`
    DistanceKm   float64         `json:"distance_km"`
    Fare         decimal.Decimal `json:"fare"`
    Currency     string          `json:"currency"`
    Status       string          `json:"status"`
    RejectReason string          `json:"reject_reason,omitempty"`
    Notes        string          `json:"notes,omitempty"`
    CreatedAt    time.Time       `json:"created_at"`
    UpdatedAt    time.Time       `json:"updated_at"`
    AcceptedAt   *time.Time      `json:"accepted_at,omitempty"`
    StartedAt    *time.Time      `json:"started_at,omitempty"`
    CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

func (s *Server) handleCreateCash(w http.ResponseWriter, r *http.Request) {
    actor := actorFrom(r)

    var req createCashRequest
    if err := decodeJSON(r, &req); err != nil {
        s.logFailure("cash_create", "invalid_request", actor, nil)
        writeError(w, http.StatusBadRequest, "invalid_request")
        return
    }

    tx, err := s.svc.CreateCashTransaction(r.Context(), settlement.CreateCashInput{
        CustomerID:  actor,
        ProviderID:  req.ProviderID,
        ServiceType: req.ServiceType,
        Network:     req.Network,
        Amount:      req.Amount,
        Currency:    req.Currency,
        Notes:       req.Notes,
        Location:    req.Location,
    })
    if err != nil {
        reason := s.fail(w, "create cash transaction", err)
        s.logFailure("cash_create", reason, actor, map[string]any{
            "provider_id": req.ProviderID,
            "amount":      req.Amount.String(),
        })
        return
    }

    s.logEvent("cash_created", map[string]any{
        "id":          tx.ID,
        "customer_id": tx.CustomerID,
        "provider_id": tx.ProviderID,
        "amount":      tx.Amount.String(),
        "fee":         tx.FeeAmount.String(),
        "currency":    tx.Currency,
    })
    writeJSON(w, http.StatusCreated, toCashResponse(tx))
}

func (s *Server) handleGetCash(w http.ResponseWriter, r *http.Request) {
    tx, err := s.svc.GetCashTransaction(r.Context(), actorFrom(r), mux.Vars(r)["id"])
    if err != nil {
        s.fail(w, "get cash transaction", err)
        return
    }
    writeJSON(w, http.StatusOK, toCashResponse(tx))
}

func (s *Server) handleCashAction(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    id, action := vars["id"], vars["action"]
    actor := actorFrom(r)

    var (
        tx  store.CashTransaction
        err error
    )
    switch action {
    case "customer-confirm":
        tx, err = s.svc.CustomerConfirm(r.Context(), actor, id)
    case "agent-confirm":
        tx, err = s.svc.AgentConfirm(r.Context(), actor, id)
    case "cancel":
        tx, err = s.svc.CancelCashTransaction(r.Context(), actor, id)
    case "reject":
        var req reasonRequest
        if derr := decodeJSON(r, &req); derr != nil && derr != errEmptyBody {
            s.logFailure("cash_"+action, "invalid_request", actor, map[string]any{"id": id})
            writeError(w, http.StatusBadRequest, "invalid_request")
            return
        }
        tx, err = s.svc.RejectCashTransaction(r.Context(), actor, id, req.Reason)
    }
    if err != nil {
        reason := s.fail(w, "cash "+action, err)
        s.logFailure("cash_"+action, reason, actor, map[string]any{"id": id})
        return
    }

    s.logEvent("cash_"+action, map[string]any{
        "id":     tx.ID,
        "actor":  actor,
        "status": tx.Status,
    })
    writeJSON(w, http.StatusOK, toCashResponse(tx))
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
    actor := actorFrom(r)

    var req createRideRequest
    if err := decodeJSON(r, &req); err != nil {
        s.logFailure("ride_create", "invalid_request", actor, nil)
        writeError(w, http.StatusBadRequest, "invalid_request")
        return
    }

    b, err := s.svc.CreateRideBooking(r.Context(), settlement.CreateRideInput{
        CustomerID:  actor,
        DriverID:    req.DriverID,
        ServiceType: req.ServiceType,
        Pickup:      req.Pickup,
        Dropoff:     req.Dropoff,
        DistanceKm:  req.DistanceKm,
        Notes:       req.Notes,
    })
    if err != nil {
        reason := s.fail(w, "create ride", err)
        s.logFailure("ride_create", reason, actor, map[string]any{"driver_id": req.DriverID})
        return
    }

    s.logEvent("ride_created", map[string]any{
        "id":          b.ID,
        "customer_id": b.CustomerID,
        "driver_id":   b.DriverID,
        "fare":        b.Fare.String(),
        "distance_km": b.DistanceKm,
    })
    writeJSON(w, http.StatusCreated, toRideResponse(b))
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
    b, err := s.svc.GetRideBooking(r.Context(), actorFrom(r), mux.Vars(r)["id"])
    if err != nil {
        s.fail(w, "get ride", err)
        return
    }
    writeJSON(w, http.StatusOK, toRideResponse(b))
}

var rideTargets = map[string]string{
    "accept":   store.StatusAccepted,
    "reject":   store.StatusRejected,
    "cancel":   store.StatusCancelled,
    "start":    store.StatusInProgress,
    "complete": store.StatusCompleted,
}

func (s *Server) handleRideAction(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    id, action := vars["id"], vars["action"]
    actor := actorFrom(r)

    var req reasonRequest
    if action == "reject" {
        if err := decodeJSON(r, &req); err != nil && err != errEmptyBody {
            s.logFailure("ride_"+action, "invalid_request", actor, map[string]any{"id": id})
            writeError(w, http.StatusBadRequest, "invalid_request")
            return
        }
    }

    b, err := s.svc.TransitionRide(r.Context(), actor, id, rideTargets[action], req.Reason)
    if err != nil {
        reason := s.fail(w, "ride "+action, err)
        s.logFailure("ride_"+action, reason, actor, map[string]any{"id": id})
        return
    }

    s.logEvent("ride_"+action, map[string]any{
        "id":     b.ID,
        "actor":  actor,
        "status": b.Status,
    })
    writeJSON(w, http.StatusOK, toRideResponse(b))
}

func toCashResponse(tx store.CashTransaction) cashResponse {
    return cashResponse{
        ID:                tx.ID,
        CustomerID:        tx.CustomerID,
        ProviderID:        tx.ProviderID,
        ServiceType:       tx.ServiceType,
        Network:           tx.Network,
        Amount:            tx.Amount,
        FeeAmount:         tx.FeeAmount,
        FeePercentage:     tx.FeePercentage,
        Currency:          tx.Currency,
        Status:            tx.Status,
        CustomerConfirmed: tx.CustomerConfirmed,
        AgentConfirmed:    tx.AgentConfirmed,
        Notes:             tx.Notes,
        Location:          tx.Location,
        RejectReason:      tx.RejectReason,
        CreatedAt:         tx.CreatedAt,
        UpdatedAt:         tx.UpdatedAt,
        CompletedAt:       tx.CompletedAt,
    }
}

func toRideResponse(b store.RideBooking) rideResponse {
    return rideResponse{
        ID:           b.ID,
        CustomerID:   b.CustomerID,
        DriverID:     b.DriverID,
        ServiceType:  b.ServiceType,
        Pickup:       b.Pickup,
        Dropoff:      b.Dropoff,
        DistanceKm:   b.DistanceKm,
        Fare:         b.Fare,
        Currency:     b.Currency,
        Status:       b.Status,
        RejectReason: b.RejectReason,
        Notes:        b.Notes,
        CreatedAt:    b.CreatedAt,
        UpdatedAt:    b.UpdatedAt,
        AcceptedAt:   b.AcceptedAt,
        StartedAt:    b.StartedAt,
        CompletedAt:  b.CompletedAt,
    }
}
