package api

import (
    "math"
    "net/http"
    "strconv"
    "time"

    "github.com/gorilla/mux"
    "github.com/shopspring/decimal"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/proximity"
    "marketplace.engine/internal/stats"
)

type locationRequest struct {
    Lat      float64 `json:"lat"`
    Lng      float64 `json:"lng"`
    IsOnline bool    `json:"is_online"`
}

type feeQuoteResponse struct {
    Amount     decimal.Decimal `json:"amount"`
    Percentage decimal.Decimal `json:"percentage"`
}

type fareQuoteResponse struct {
    Fare decimal.Decimal `json:"fare"`
}

type nearbyResponse struct {
    Matches []proximity.Match `json:"matches"`
}

// handleProviderStats serves a provider's own dashboard; nobody else may
// read it.
func (s *Server) handleProviderStats(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    if actorFrom(r) != id {
        writeError(w, http.StatusForbidden, "forbidden")
        return
    }

    q := r.URL.Query()
    kind, err := directory.ParseKind(q.Get("kind"))
    if err != nil {
        writeError(w, http.StatusBadRequest, "invalid_request")
        return
    }
    period, err := stats.ParsePeriod(q.Get("period"))
    if err != nil {
        writeError(w, http.StatusBadRequest, "invalid_request")
        return
    }

    st, err := s.stats.ProviderStats(r.Context(), kind, id, period)
    if err != nil {
        s.fail(w, "provider stats", err)
        return
    }
    writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
    id := mux.Vars(r)["id"]
    actor := actorFrom(r)
    if actor != id {
        s.logFailure("location_update", "forbidden", actor, map[string]any{"provider_id": id})
        writeError(w, http.StatusForbidden, "forbidden")
        return
    }

    var req locationRequest
    if err := decodeJSON(r, &req); err != nil || !validLatLng(req.Lat, req.Lng) {
        s.logFailure("location_update", "invalid_request", actor, map[string]any{"provider_id": id})
        writeError(w, http.StatusBadRequest, "invalid_request")
        return
    }

    err := s.locations.UpdateLocation(r.Context(), directory.ProviderLocation{
        ProviderID: id,
        Lat:        req.Lat,
        Lng:        req.Lng,
        IsOnline:   req.IsOnline,
        UpdatedAt:  time.Now().UTC(),
    })
    if err != nil {
        reason := s.fail(w, "update location", err)
        s.logFailure("location_update", reason, actor, map[string]any{"provider_id": id})
        return
    }

    s.logEvent("location_updated", map[string]any{
        "provider_id": id,
        "is_online":   req.IsOnline,
    })
    w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    lat, errLat := parseFloat(q.Get("lat"))
    lng, errLng := parseFloat(q.Get("lng"))
    radius, errRadius := parseFloat(q.Get("radius_km"))
    if errLat != nil || errLng != nil || errRadius != nil {
        writeError(w, http.StatusBadRequest, "invalid_request")
        return
    }

    matches, err := s.nearby.FindNearby(r.Context(), directory.Kind(q.Get("kind")), lat, lng, radius)
    if err != nil {
        s.fail(w, "nearby", err)
        return
    }
    writeJSON(w, http.StatusOK, nearbyResponse{Matches: matches})
}

func (s *Server) handleQuoteFee(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    amount, err := decimal.NewFromString(q.Get("amount"))
    if err != nil {
        writeError(w, http.StatusBadRequest, "invalid_request")
        return
    }

    fee, err := s.svc.QuoteFee(r.Context(), q.Get("provider_id"), q.Get("service_type"), q.Get("network"), amount)
    if err != nil {
        s.fail(w, "quote fee", err)
        return
    }
    writeJSON(w, http.StatusOK, feeQuoteResponse{Amount: fee.Amount, Percentage: fee.Percentage})
}

func (s *Server) handleQuoteFare(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    distance := 0.0
    if raw := q.Get("distance_km"); raw != "" {
        d, err := parseFloat(raw)
        if err != nil {
            writeError(w, http.StatusBadRequest, "invalid_request")
            return
        }
        distance = d
    }

    fare, err := s.svc.QuoteFare(r.Context(), q.Get("driver_id"), q.Get("service_type"), distance)
    if err != nil {
        s.fail(w, "quote fare", err)
        return
    }
    writeJSON(w, http.StatusOK, fareQuoteResponse{Fare: fare})
}

func parseFloat(s string) (float64, error) {
    f, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return 0, err
    }
    if math.IsNaN(f) || math.IsInf(f, 0) {
        return 0, strconv.ErrRange
    }
    return f, nil
}

func validLatLng(lat, lng float64) bool {
    return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
