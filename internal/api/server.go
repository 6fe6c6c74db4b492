package api

import (
    "context"
    "crypto/subtle"
    "net/http"
    "strings"

    "github.com/gorilla/mux"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/proximity"
    "marketplace.engine/internal/settlement"
    "marketplace.engine/internal/stats"
)

// ActorHeader carries the acting party's id, set by the identity layer in
// front of this service.
const ActorHeader = "X-Actor-ID"

// LocationWriter receives location reports from provider clients.
type LocationWriter interface {
    UpdateLocation(ctx context.Context, loc directory.ProviderLocation) error
}

type Server struct {
    svc       *settlement.Service
    stats     *stats.Aggregator
    nearby    *proximity.Matcher
    locations LocationWriter
    authToken string
    logger    Logger
}

type Logger interface {
    Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

type Deps struct {
    Settlement *settlement.Service
    Stats      *stats.Aggregator
    Nearby     *proximity.Matcher
    Locations  LocationWriter
}

func NewServer(deps Deps, authToken string, logger Logger) *Server {
    if logger == nil {
        logger = nopLogger{}
    }
    return &Server{
        svc:       deps.Settlement,
        stats:     deps.Stats,
        nearby:    deps.Nearby,
        locations: deps.Locations,
        authToken: authToken,
        logger:    logger,
    }
}

func (s *Server) Routes() http.Handler {
    notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
        writeError(w, http.StatusNotFound, "not_found")
    })
    methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
        writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
    })

    r := mux.NewRouter()
    r.NotFoundHandler = notFound
    r.MethodNotAllowedHandler = methodNotAllowed
    r.Use(metricsMiddleware)
    r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

    // mux does not fall back to the parent's handlers on a subrouter miss.
    v1 := r.PathPrefix("/v1").Subrouter()
    v1.NotFoundHandler = notFound
    v1.MethodNotAllowedHandler = methodNotAllowed
    v1.Use(s.authMiddleware, s.actorMiddleware)

    v1.HandleFunc("/cash-transactions", s.handleCreateCash).Methods(http.MethodPost)
    v1.HandleFunc("/cash-transactions/{id}", s.handleGetCash).Methods(http.MethodGet)
    v1.HandleFunc("/cash-transactions/{id}/{action:customer-confirm|agent-confirm|cancel|reject}", s.handleCashAction).Methods(http.MethodPost)

    v1.HandleFunc("/rides", s.handleCreateRide).Methods(http.MethodPost)
    v1.HandleFunc("/rides/{id}", s.handleGetRide).Methods(http.MethodGet)
    v1.HandleFunc("/rides/{id}/{action:accept|reject|cancel|start|complete}", s.handleRideAction).Methods(http.MethodPost)

    v1.HandleFunc("/providers/{id}/stats", s.handleProviderStats).Methods(http.MethodGet)
    v1.HandleFunc("/providers/{id}/location", s.handleUpdateLocation).Methods(http.MethodPut)
    v1.HandleFunc("/nearby", s.handleNearby).Methods(http.MethodGet)
    v1.HandleFunc("/quotes/fee", s.handleQuoteFee).Methods(http.MethodGet)
    v1.HandleFunc("/quotes/fare", s.handleQuoteFare).Methods(http.MethodGet)
    return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        token := extractBearerToken(r.Header.Get("Authorization"))
        if !secureCompare(token, s.authToken) {
            writeError(w, http.StatusUnauthorized, "unauthorized")
            return
        }
        next.ServeHTTP(w, r)
    })
}

type actorKey struct{}

func (s *Server) actorMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        actor := strings.TrimSpace(r.Header.Get(ActorHeader))
        if actor == "" {
            writeError(w, http.StatusUnauthorized, "missing_actor")
            return
        }
        next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
    })
}

func actorFrom(r *http.Request) string {
    actor, _ := r.Context().Value(actorKey{}).(string)
    return actor
}

func extractBearerToken(header string) string {
    if header == "" {
        return ""
    }
    parts := strings.SplitN(header, " ", 2)
    if len(parts) != 2 {
        return ""
    }
    if !strings.EqualFold(parts[0], "Bearer") {
        return ""
    }
    return strings.TrimSpace(parts[1])
}

func secureCompare(a, b string) bool {
    if a == "" || len(a) != len(b) {
        return false
    }
    return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
