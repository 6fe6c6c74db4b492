package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/jackc/pgx/v5/pgxpool"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"
    "go.mongodb.org/mongo-driver/mongo/readpref"

    "marketplace.engine/internal/api"
    "marketplace.engine/internal/config"
    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/events"
    "marketplace.engine/internal/proximity"
    "marketplace.engine/internal/settlement"
    "marketplace.engine/internal/stats"
    "marketplace.engine/internal/store"
)

type providerDirectory interface {
    settlement.ProviderDirectory
    proximity.LocationSource
    api.LocationWriter
}

func main() {
    cfg, err := config.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }

    logger := log.New(os.Stdout, "", log.LstdFlags)
    ctx := context.Background()

    var records settlement.Store
    switch cfg.StoreDriver {
    case config.DriverMemory:
        logger.Printf("using in-memory record store")
        records = store.NewMemory()
    default:
        pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
        if err != nil {
            log.Fatalf("db error: %v", err)
        }
        defer pool.Close()
        records = store.New(pool)
    }

    var dir providerDirectory
    if cfg.MongoURI != "" {
        client, err := connectMongo(ctx, cfg.MongoURI)
        if err != nil {
            log.Fatalf("mongo error: %v", err)
        }
        defer func() {
            ctxDisconnect, cancel := context.WithTimeout(context.Background(), 5*time.Second)
            defer cancel()
            if err := client.Disconnect(ctxDisconnect); err != nil {
                logger.Printf("mongo disconnect error: %v", err)
            }
        }()

        mongoDir := directory.NewMongo(client.Database(cfg.MongoDB))
        ctxIndex, cancel := context.WithTimeout(ctx, 10*time.Second)
        err = mongoDir.EnsureIndexes(ctxIndex)
        cancel()
        if err != nil {
            log.Fatalf("mongo index error: %v", err)
        }
        dir = mongoDir
    } else {
        dir, err = memoryDirectory(cfg.DirectorySeed, logger)
        if err != nil {
            log.Fatalf("directory seed error: %v", err)
        }
    }

    var notifier settlement.Notifier = events.NewLogNotifier(logger)
    if len(cfg.KafkaBrokers) > 0 {
        publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
        defer publisher.Close()
        notifier = publisher
    }

    svc := settlement.NewService(records, dir, notifier, logger)
    srv := api.NewServer(api.Deps{
        Settlement: svc,
        Stats:      stats.NewAggregator(records, nil),
        Nearby:     proximity.NewMatcher(dir),
        Locations:  dir,
    }, cfg.AuthToken, logger)

    httpServer := &http.Server{
        Addr:              ":" + cfg.Port,
        Handler:           srv.Routes(),
        ReadHeaderTimeout: 5 * time.Second,
    }

    go func() {
        logger.Printf("listening on %s", httpServer.Addr)
        if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logger.Fatalf("server error: %v", err)
        }
    }()

    quit := make(chan os.Signal, 1)
    signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
    <-quit

    ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = httpServer.Shutdown(ctxShutdown)
}

// memoryDirectory serves dev mode. Without a seed file it has no providers,
// so creates fail with not_found until one is given.
func memoryDirectory(seedPath string, logger *log.Logger) (*directory.Memory, error) {
    if seedPath == "" {
        logger.Printf("MONGO_URI and DIRECTORY_SEED not set, provider directory is empty; requests will not find providers")
        return directory.NewMemory(), nil
    }
    providers, err := directory.LoadSeed(seedPath)
    if err != nil {
        return nil, err
    }
    logger.Printf("loaded %d providers from %s into in-memory directory", len(providers), seedPath)
    return directory.NewMemory(providers...), nil
}

func connectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
    client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
    if err != nil {
        return nil, err
    }
    ctxPing, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()
    if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
        _ = client.Disconnect(context.Background())
        return nil, err
    }
    return client, nil
}
