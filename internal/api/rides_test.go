package api_test

import (
    "encoding/json"
    "net/http"
    "testing"

    "github.com/shopspring/decimal"

    "marketplace.engine/internal/store"
)

func createRide(t *testing.T, env *testEnv) rideResponse {
    t.Helper()
    resp := env.doRequest(t, http.MethodPost, "/v1/rides", "cust-1",
        `{"driver_id":"driver-1","service_type":"city_ride","pickup":{"address":"Marina","lat":25.2,"lng":55.3},"dropoff":{"address":"JLT","lat":25.22,"lng":55.3}}`)
    expectStatus(t, resp, http.StatusCreated)
    var got rideResponse
    decode(t, resp, &got)
    return got
}

func TestRideLifecycle(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    ride := createRide(t, env)
    if ride.Status != store.StatusPending {
        t.Fatalf("expected pending, got %s", ride.Status)
    }
    if !ride.Fare.Equal(decimal.RequireFromString("9.44")) {
        t.Fatalf("expected fare 9.44, got %s", ride.Fare)
    }

    resp := env.doRequest(t, http.MethodPost, "/v1/rides/"+ride.ID+"/start", "driver-1", "")
    expectError(t, resp, http.StatusConflict, "invalid_transition")

    resp = env.doRequest(t, http.MethodPost, "/v1/rides/"+ride.ID+"/accept", "cust-1", "")
    expectError(t, resp, http.StatusForbidden, "forbidden")

    for _, step := range []struct{ action, status string }{
        {"accept", store.StatusAccepted},
        {"start", store.StatusInProgress},
        {"complete", store.StatusCompleted},
    } {
        resp = env.doRequest(t, http.MethodPost, "/v1/rides/"+ride.ID+"/"+step.action, "driver-1", "")
        expectStatus(t, resp, http.StatusOK)
        var got rideResponse
        decode(t, resp, &got)
        if got.Status != step.status {
            t.Fatalf("%s: expected %s, got %s", step.action, step.status, got.Status)
        }
    }

    resp = env.doRequest(t, http.MethodGet, "/v1/rides/"+ride.ID, "cust-1", "")
    expectStatus(t, resp, http.StatusOK)
    var got rideResponse
    decode(t, resp, &got)
    if got.Status != store.StatusCompleted {
        t.Fatalf("expected completed, got %s", got.Status)
    }
}

func TestRideRejectWithReason(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    ride := createRide(t, env)
    resp := env.doRequest(t, http.MethodPost, "/v1/rides/"+ride.ID+"/reject", "driver-1", `{"reason":"off shift"}`)
    expectStatus(t, resp, http.StatusOK)
    var got struct {
        Status       string `json:"status"`
        RejectReason string `json:"reject_reason"`
    }
    decode(t, resp, &got)
    if got.Status != store.StatusRejected || got.RejectReason != "off shift" {
        t.Fatalf("unexpected result %+v", got)
    }

    resp = env.doRequest(t, http.MethodPost, "/v1/rides/"+ride.ID+"/cancel", "cust-1", "")
    expectError(t, resp, http.StatusConflict, "invalid_transition")
}

func TestQuoteFare(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    resp := env.doRequest(t, http.MethodGet, "/v1/quotes/fare?driver_id=driver-1&service_type=long_distance&distance_km=10", "cust-1", "")
    expectStatus(t, resp, http.StatusOK)
    var got struct {
        Fare decimal.Decimal `json:"fare"`
    }
    decode(t, resp, &got)
    if !got.Fare.Equal(decimal.NewFromInt(25)) {
        t.Fatalf("expected fare 25, got %s", got.Fare)
    }
}

func TestNearby(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    resp := env.doRequest(t, http.MethodGet, "/v1/nearby?kind=driver&lat=25.2&lng=55.3&radius_km=5", "cust-1", "")
    expectStatus(t, resp, http.StatusOK)
    var got struct {
        Matches []struct {
            ProviderID string  `json:"provider_id"`
            DistanceKm float64 `json:"distance_km"`
        } `json:"matches"`
    }
    decode(t, resp, &got)
    if len(got.Matches) != 1 || got.Matches[0].ProviderID != "driver-1" {
        t.Fatalf("unexpected matches %+v", got.Matches)
    }

    resp = env.doRequest(t, http.MethodGet, "/v1/nearby?kind=driver&lat=25.2&lng=55.3&radius_km=0", "cust-1", "")
    expectError(t, resp, http.StatusBadRequest, "invalid_request")
}

func TestUpdateLocation(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    resp := env.doRequest(t, http.MethodPut, "/v1/providers/driver-1/location", "cust-1", `{"lat":25.3,"lng":55.4,"is_online":true}`)
    expectError(t, resp, http.StatusForbidden, "forbidden")

    resp = env.doRequest(t, http.MethodPut, "/v1/providers/driver-1/location", "driver-1", `{"lat":25.2,"lng":55.3,"is_online":false}`)
    expectStatus(t, resp, http.StatusNoContent)
    resp.Body.Close()

    resp = env.doRequest(t, http.MethodGet, "/v1/nearby?kind=driver&lat=25.2&lng=55.3&radius_km=5", "cust-1", "")
    expectStatus(t, resp, http.StatusOK)
    var got struct {
        Matches []json.RawMessage `json:"matches"`
    }
    decode(t, resp, &got)
    if len(got.Matches) != 0 {
        t.Fatalf("offline driver must not match, got %d", len(got.Matches))
    }

    resp = env.doRequest(t, http.MethodPut, "/v1/providers/ghost/location", "ghost", `{"lat":1,"lng":1}`)
    expectError(t, resp, http.StatusNotFound, "not_found")
}

func TestProviderStats(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    tx := createCash(t, env, "100")
    for _, side := range []struct{ actor, action string }{
        {"cust-1", "customer-confirm"},
        {"agent-1", "agent-confirm"},
    } {
        resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/"+side.action, side.actor, "")
        expectStatus(t, resp, http.StatusOK)
        resp.Body.Close()
    }
    createCash(t, env, "50")

    resp := env.doRequest(t, http.MethodGet, "/v1/providers/agent-1/stats?kind=agent&period=today", "agent-1", "")
    expectStatus(t, resp, http.StatusOK)
    var got struct {
        TotalCount     int             `json:"total_count"`
        CompletedCount int             `json:"completed_count"`
        PendingCount   int             `json:"pending_count"`
        TotalVolume    decimal.Decimal `json:"total_volume"`
        TotalRevenue   decimal.Decimal `json:"total_revenue"`
        Daily          []struct {
            Count int `json:"count"`
        } `json:"daily"`
    }
    decode(t, resp, &got)
    if got.TotalCount != 2 || got.CompletedCount != 1 || got.PendingCount != 1 {
        t.Fatalf("unexpected counts %+v", got)
    }
    if !got.TotalVolume.Equal(decimal.NewFromInt(100)) || !got.TotalRevenue.Equal(decimal.NewFromInt(2)) {
        t.Fatalf("unexpected totals %s / %s", got.TotalVolume, got.TotalRevenue)
    }
    if len(got.Daily) != 7 || got.Daily[6].Count != 2 {
        t.Fatalf("unexpected daily series %+v", got.Daily)
    }

    resp = env.doRequest(t, http.MethodGet, "/v1/providers/agent-1/stats?kind=agent", "cust-1", "")
    expectError(t, resp, http.StatusForbidden, "forbidden")

    resp = env.doRequest(t, http.MethodGet, "/v1/providers/agent-1/stats?kind=agent&period=decade", "agent-1", "")
    expectError(t, resp, http.StatusBadRequest, "invalid_request")
}
