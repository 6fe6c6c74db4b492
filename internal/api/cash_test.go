package api_test

import (
    "context"
    "fmt"
    "net/http"
    "sync"
    "testing"

    "github.com/shopspring/decimal"

    "marketplace.engine/internal/store"
)

func createCash(t *testing.T, env *testEnv, amount string) cashResponse {
    t.Helper()
    body := fmt.Sprintf(`{"provider_id":"agent-1","service_type":"cash_to_mobile","amount":%q,"location":{"address":"Deira","lat":25.27,"lng":55.3}}`, amount)
    resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions", "cust-1", body)
    expectStatus(t, resp, http.StatusCreated)
    var got cashResponse
    decode(t, resp, &got)
    return got
}

func TestCreateCashTransactionSuccess(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    got := createCash(t, env, "500")
    if got.Status != store.StatusPending {
        t.Fatalf("expected status %s, got %s", store.StatusPending, got.Status)
    }
    if got.CustomerID != "cust-1" || got.ProviderID != "agent-1" {
        t.Fatalf("unexpected parties %s/%s", got.CustomerID, got.ProviderID)
    }
    if !got.FeeAmount.Equal(decimal.NewFromInt(10)) {
        t.Fatalf("expected fee 10, got %s", got.FeeAmount)
    }
    if got.CustomerConfirmed || got.AgentConfirmed {
        t.Fatalf("new transaction must start unconfirmed")
    }
}

func TestCreateCashTransactionAmountOutOfRange(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions", "cust-1", `{"provider_id":"agent-1","service_type":"cash_to_mobile","amount":"5"}`)
    expectError(t, resp, http.StatusUnprocessableEntity, "amount_out_of_range")

    txs, err := env.store.ListCashTransactions(context.Background(), store.CashFilter{})
    if err != nil {
        t.Fatalf("list: %v", err)
    }
    if len(txs) != 0 {
        t.Fatalf("expected no stored transactions, got %d", len(txs))
    }
}

func TestCreateCashTransactionInvalidRequest(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    cases := []string{
        `{"provider_id":"agent-1","service_type":"cash_to_mobile","amount":"50","extra":1}`,
        `{"provider_id":"agent-1"`,
        `{"provider_id":"agent-1","service_type":"cash_to_mobile","amount":"50"}{}`,
        `{"provider_id":"agent-1","service_type":"barter","amount":"50"}`,
    }
    for _, body := range cases {
        resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions", "cust-1", body)
        expectError(t, resp, http.StatusBadRequest, "invalid_request")
    }

    resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions", "cust-1", `{"provider_id":"agent-9","service_type":"cash_to_mobile","amount":"50"}`)
    expectError(t, resp, http.StatusNotFound, "not_found")
}

func TestCashDualConfirmation(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    tx := createCash(t, env, "200")

    resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/customer-confirm", "cust-1", "")
    expectStatus(t, resp, http.StatusOK)
    var got cashResponse
    decode(t, resp, &got)
    if got.Status != store.StatusPending || !got.CustomerConfirmed {
        t.Fatalf("expected pending with customer flag, got %+v", got)
    }

    resp = env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/agent-confirm", "agent-1", "")
    expectStatus(t, resp, http.StatusOK)
    decode(t, resp, &got)
    if got.Status != store.StatusCompleted || !got.AgentConfirmed || !got.CustomerConfirmed {
        t.Fatalf("expected completed with both flags, got %+v", got)
    }

    resp = env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/cancel", "cust-1", "")
    expectError(t, resp, http.StatusConflict, "not_pending")

    if n := env.notifier.count(store.StatusCompleted); n != 1 {
        t.Fatalf("expected 1 completion event, got %d", n)
    }
}

func TestCashConfirmWrongParty(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    tx := createCash(t, env, "200")

    resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/agent-confirm", "cust-1", "")
    expectError(t, resp, http.StatusForbidden, "forbidden")

    resp = env.doRequest(t, http.MethodGet, "/v1/cash-transactions/"+tx.ID, "stranger", "")
    expectError(t, resp, http.StatusForbidden, "forbidden")

    resp = env.doRequest(t, http.MethodPost, "/v1/cash-transactions/missing/customer-confirm", "cust-1", "")
    expectError(t, resp, http.StatusNotFound, "not_found")
}

func TestCashReject(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    tx := createCash(t, env, "200")

    resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/reject", "agent-1", `{"reason":"no cash on hand"}`)
    expectStatus(t, resp, http.StatusOK)
    var got cashResponse
    decode(t, resp, &got)
    if got.Status != store.StatusRejected || got.RejectReason != "no cash on hand" {
        t.Fatalf("unexpected reject result %+v", got)
    }

    resp = env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/customer-confirm", "cust-1", "")
    expectError(t, resp, http.StatusConflict, "not_pending")
}

func TestConcurrentCashConfirms(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    tx := createCash(t, env, "300")

    const workers = 10
    var wg sync.WaitGroup
    statuses := make(chan int, 2*workers)
    for i := 0; i < workers; i++ {
        for _, side := range []struct{ actor, action string }{
            {"cust-1", "customer-confirm"},
            {"agent-1", "agent-confirm"},
        } {
            wg.Add(1)
            go func(actor, action string) {
                defer wg.Done()
                resp := env.doRequest(t, http.MethodPost, "/v1/cash-transactions/"+tx.ID+"/"+action, actor, "")
                resp.Body.Close()
                statuses <- resp.StatusCode
            }(side.actor, side.action)
        }
    }
    wg.Wait()
    close(statuses)

    for code := range statuses {
        if code != http.StatusOK {
            t.Fatalf("expected %d, got %d", http.StatusOK, code)
        }
    }

    final, err := env.store.GetCashTransaction(context.Background(), tx.ID)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if final.Status != store.StatusCompleted {
        t.Fatalf("expected completed, got %s", final.Status)
    }
    if n := env.notifier.count(store.StatusCompleted); n != 1 {
        t.Fatalf("expected exactly 1 completion event, got %d", n)
    }
}

func TestQuoteFee(t *testing.T) {
    env := setupTest(t)
    defer env.close()

    resp := env.doRequest(t, http.MethodGet, "/v1/quotes/fee?provider_id=agent-1&service_type=cash_to_mobile&amount=250", "cust-1", "")
    expectStatus(t, resp, http.StatusOK)
    var got struct {
        Amount     decimal.Decimal `json:"amount"`
        Percentage decimal.Decimal `json:"percentage"`
    }
    decode(t, resp, &got)
    if !got.Amount.Equal(decimal.NewFromInt(5)) || !got.Percentage.Equal(decimal.NewFromInt(2)) {
        t.Fatalf("unexpected quote %s @ %s%%", got.Amount, got.Percentage)
    }

    resp = env.doRequest(t, http.MethodGet, "/v1/quotes/fee?provider_id=agent-1&service_type=cash_to_mobile&amount=lots", "cust-1", "")
    expectError(t, resp, http.StatusBadRequest, "invalid_request")
}
