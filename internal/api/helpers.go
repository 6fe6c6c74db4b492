package api

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/proximity"
    "marketplace.engine/internal/settlement"
    "marketplace.engine/internal/stats"
)

type errorResponse struct {
    Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
    writeJSON(w, status, errorResponse{Error: code})
}

var errEmptyBody = errors.New("empty body")

// decodeJSON reads exactly one JSON value, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, v any) error {
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(v); err != nil {
        if errors.Is(err, io.EOF) {
            return errEmptyBody
        }
        return err
    }
    if err := dec.Decode(&struct{}{}); err != io.EOF {
        return errors.New("trailing data")
    }
    return nil
}

// errorStatus maps engine errors to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
    switch {
    case errors.Is(err, settlement.ErrAmountOutOfRange):
        return http.StatusUnprocessableEntity, "amount_out_of_range"
    case errors.Is(err, settlement.ErrNotPending):
        return http.StatusConflict, "not_pending"
    case errors.Is(err, settlement.ErrInvalidTransition):
        return http.StatusConflict, "invalid_transition"
    case errors.Is(err, settlement.ErrUnauthorized):
        return http.StatusForbidden, "forbidden"
    case errors.Is(err, settlement.ErrNotFound), errors.Is(err, directory.ErrProviderNotFound):
        return http.StatusNotFound, "not_found"
    case errors.Is(err, settlement.ErrInvalidInput),
        errors.Is(err, proximity.ErrInvalidQuery),
        errors.Is(err, stats.ErrInvalidPeriod),
        errors.Is(err, directory.ErrInvalidKind):
        return http.StatusBadRequest, "invalid_request"
    case errors.Is(err, settlement.ErrStorageUnavailable), errors.Is(err, settlement.ErrDirectoryUnavailable):
        return http.StatusServiceUnavailable, "unavailable"
    case errors.Is(err, settlement.ErrProviderMisconfigured):
        return http.StatusInternalServerError, "provider_misconfigured"
    }
    return http.StatusInternalServerError, "internal_error"
}

// fail writes the mapped error and returns its code for the event log.
// Server-side failures are also logged with the full error.
func (s *Server) fail(w http.ResponseWriter, op string, err error) string {
    status, code := errorStatus(err)
    if status >= http.StatusInternalServerError {
        s.logger.Printf("%s error: %v", op, err)
    }
    writeError(w, status, code)
    return code
}
