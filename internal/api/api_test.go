package api_test

import (
    "context"
    "encoding/json"
    "io"
    "log"
    "net/http"
    "net/http/httptest"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/shopspring/decimal"

    "marketplace.engine/internal/api"
    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/events"
    "marketplace.engine/internal/proximity"
    "marketplace.engine/internal/rates"
    "marketplace.engine/internal/settlement"
    "marketplace.engine/internal/stats"
    "marketplace.engine/internal/store"
)

type recordingNotifier struct {
    mu     sync.Mutex
    events []events.StatusChange
}

func (n *recordingNotifier) Notify(_ context.Context, ev events.StatusChange) error {
    n.mu.Lock()
    defer n.mu.Unlock()
    n.events = append(n.events, ev)
    return nil
}

func (n *recordingNotifier) count(newStatus string) int {
    n.mu.Lock()
    defer n.mu.Unlock()
    c := 0
    for _, ev := range n.events {
        if ev.NewStatus == newStatus {
            c++
        }
    }
    return c
}

type testEnv struct {
    server    *httptest.Server
    client    *http.Client
    store     *store.Memory
    dir       *directory.Memory
    notifier  *recordingNotifier
    authToken string
}

type cashResponse struct {
    ID                string          `json:"id"`
    CustomerID        string          `json:"customer_id"`
    ProviderID        string          `json:"provider_id"`
    Amount            decimal.Decimal `json:"amount"`
    FeeAmount         decimal.Decimal `json:"fee_amount"`
    Status            string          `json:"status"`
    CustomerConfirmed bool            `json:"customer_confirmed"`
    AgentConfirmed    bool            `json:"agent_confirmed"`
    RejectReason      string          `json:"reject_reason"`
}

type rideResponse struct {
    ID         string          `json:"id"`
    DriverID   string          `json:"driver_id"`
    DistanceKm float64         `json:"distance_km"`
    Fare       decimal.Decimal `json:"fare"`
    Status     string          `json:"status"`
}

type errorResponse struct {
    Error string `json:"error"`
}

func setupTest(t *testing.T) *testEnv {
    t.Helper()

    st := store.NewMemory()
    dir := directory.NewMemory(
        directory.Provider{
            ID:       "agent-1",
            Kind:     directory.KindAgent,
            Currency: "USD",
            Fees: rates.FeeConfig{ServiceRates: map[string]decimal.Decimal{
                store.ServiceCashToMobile: decimal.NewFromInt(2),
            }},
            Limits:   rates.AmountLimits{Min: decimal.NewFromInt(10), Max: decimal.NewFromInt(1000)},
            Location: directory.ProviderLocation{Lat: 25.2, Lng: 55.3},
            IsOnline: true,
        },
        directory.Provider{
            ID:       "driver-1",
            Kind:     directory.KindDriver,
            Currency: "AED",
            Location: directory.ProviderLocation{Lat: 25.21, Lng: 55.3},
            IsOnline: true,
        },
    )
    notifier := &recordingNotifier{}
    svc := settlement.NewService(st, dir, notifier, nil)

    authToken := "test-token"
    srv := api.NewServer(api.Deps{
        Settlement: svc,
        Stats:      stats.NewAggregator(st, nil),
        Nearby:     proximity.NewMatcher(dir),
        Locations:  dir,
    }, authToken, log.New(io.Discard, "", 0))
    ts := httptest.NewServer(srv.Routes())

    return &testEnv{
        server:    ts,
        client:    &http.Client{Timeout: 3 * time.Second},
        store:     st,
        dir:       dir,
        notifier:  notifier,
        authToken: authToken,
    }
}

func (e *testEnv) close() {
    e.server.Close()
}

func (e *testEnv) doRequest(t *testing.T, method, path, actor, body string) *http.Response {
    t.Helper()

    req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
    if err != nil {
        t.Fatalf("new request: %v", err)
    }
    req.Header.Set("Authorization", "Bearer "+e.authToken)
    req.Header.Set("Content-Type", "application/json")
    if actor != "" {
        req.Header.Set(api.ActorHeader, actor)
    }

    resp, err := e.client.Do(req)
    if err != nil {
        t.Fatalf("do request: %v", err)
    }
    return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
    t.Helper()
    defer resp.Body.Close()
    if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
        t.Fatalf("decode response: %v", err)
    }
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
    t.Helper()
    if resp.StatusCode != want {
        body, _ := io.ReadAll(resp.Body)
        resp.Body.Close()
        t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, body)
    }
}

func expectError(t *testing.T, resp *http.Response, status int, code string) {
    t.Helper()
    expectStatus(t, resp, status)
    var got errorResponse
    decode(t, resp, &got)
    if got.Error != code {
        t.Fatalf("expected error %q, got %q", code, got.Error)
    }
}

func TestAuthRequired(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/v1/nearby", nil)
    req.Header.Set(api.ActorHeader, "cust-1")
    resp, err := env.client.Do(req)
    if err != nil {
        t.Fatalf("do request: %v", err)
    }
    expectError(t, resp, http.StatusUnauthorized, "unauthorized")

    resp = env.doRequest(t, http.MethodGet, "/v1/nearby?kind=driver&lat=25.2&lng=55.3&radius_km=5", "", "")
    expectError(t, resp, http.StatusUnauthorized, "missing_actor")
}

func TestUnknownRouteAndMethod(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions/x/approve", "cust-1", "")
    expectError(t, resp, http.StatusNotFound, "not_found")

    resp = env.doRequest(t, http.MethodDelete, "/v1/rides/x", "cust-1", "")
    expectError(t, resp, http.StatusMethodNotAllowed, "method_not_allowed")
}

func TestMethodNotAllowedBeforeAuth(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    req, _ := http.NewRequest(http.MethodPatch, env.server.URL+"/v1/cash-transactions", nil)
    resp, err := env.client.Do(req)
    if err != nil {
        t.Fatalf("do request: %v", err)
    }
    expectError(t, resp, http.StatusMethodNotAllowed, "method_not_allowed")
}

func TestMetricsEndpoint(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    resp := env.doRequest(t, http.MethodGet, "/v1/nearby?kind=driver&lat=25.2&lng=55.3&radius_km=5", "cust-1", "")
    expectStatus(t, resp, http.StatusOK)
    resp.Body.Close()

    req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/metrics", nil)
    resp, err := env.client.Do(req)
    if err != nil {
        t.Fatalf("do request: %v", err)
    }
    expectStatus(t, resp, http.StatusOK)
    body, _ := io.ReadAll(resp.Body)
    resp.Body.Close()

    want := `marketplace_http_requests_total{method="GET",route="/v1/nearby",status="200"}`
    if !strings.Contains(string(body), want) {
        t.Fatalf("expected %s in metrics output", want)
    }
    if !strings.Contains(string(body), "marketplace_http_request_duration_seconds_bucket") {
        t.Fatalf("expected request duration histogram in metrics output")
    }
}
