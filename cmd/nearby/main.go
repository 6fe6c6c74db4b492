// Command nearby keeps a live list of online providers around a point,
// printing one JSON line per refresh until interrupted.
package main

import (
    "context"
    "encoding/json"
    "flag"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"
    "go.mongodb.org/mongo-driver/mongo/readpref"

    "marketplace.engine/internal/config"
    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/proximity"
)

type refresh struct {
    At      time.Time         `json:"at"`
    Kind    directory.Kind    `json:"kind"`
    Matches []proximity.Match `json:"matches"`
}

func main() {
    kind := flag.String("kind", string(directory.KindDriver), "provider kind: agent or driver")
    lat := flag.Float64("lat", 0, "latitude of the requester")
    lng := flag.Float64("lng", 0, "longitude of the requester")
    radius := flag.Float64("radius", 5, "search radius in km")
    interval := flag.Duration("interval", 0, "refresh interval (default NEARBY_INTERVAL or 25s)")
    flag.Parse()

    cfg, err := config.LoadNearby()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }
    if *interval == 0 {
        *interval = cfg.Interval
    }

    logger := log.New(os.Stderr, "", log.LstdFlags)

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
    if err != nil {
        log.Fatalf("mongo error: %v", err)
    }
    defer func() {
        ctxDisconnect, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        _ = client.Disconnect(ctxDisconnect)
    }()

    ctxPing, cancel := context.WithTimeout(ctx, 10*time.Second)
    err = client.Ping(ctxPing, readpref.Primary())
    cancel()
    if err != nil {
        logger.Printf("mongo ping error: %v", err)
        return
    }

    matcher := proximity.NewMatcher(directory.NewMongo(client.Database(cfg.MongoDB)))
    query := proximity.Query{Kind: directory.Kind(*kind), Lat: *lat, Lng: *lng, RadiusKm: *radius}

    enc := json.NewEncoder(os.Stdout)
    poller := proximity.NewPoller(matcher, query, *interval, func(matches []proximity.Match) {
        if err := enc.Encode(refresh{At: time.Now().UTC(), Kind: query.Kind, Matches: matches}); err != nil {
            logger.Printf("write error: %v", err)
        }
    }, logger)

    if err := poller.Run(ctx); err != nil {
        logger.Printf("nearby error: %v", err)
        os.Exit(2)
    }
}
