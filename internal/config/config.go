// Package config reads process configuration from the environment, after
// loading a .env file if one is present.
package config

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

const (
    DriverPostgres = "postgres"
    DriverMemory   = "memory"
)

const defaultMongoDB = "marketplace"

type Config struct {
    DatabaseURL  string
    StoreDriver  string
    AuthToken    string
    Port         string
    MongoURI     string
    MongoDB      string
    KafkaBrokers []string
    KafkaTopic   string
    // DirectorySeed names a providers file for the in-memory directory used
    // when MongoURI is empty.
    DirectorySeed string
}

// NearbyConfig is the subset the nearby CLI needs; it has no record store
// and serves no API.
type NearbyConfig struct {
    MongoURI string
    MongoDB  string
    Interval time.Duration
}

// Load reads files (default ".env") into the environment without overriding
// variables already set, then builds a Config. Missing files are ignored.
func Load(files ...string) (Config, error) {
    if err := loadFiles(files); err != nil {
        return Config{}, err
    }
    return FromEnv()
}

func LoadNearby(files ...string) (NearbyConfig, error) {
    if err := loadFiles(files); err != nil {
        return NearbyConfig{}, err
    }
    uri := env("MONGO_URI", "")
    if uri == "" {
        return NearbyConfig{}, errors.New("MONGO_URI is required")
    }
    interval, err := nearbyInterval()
    if err != nil {
        return NearbyConfig{}, err
    }
    return NearbyConfig{
        MongoURI: uri,
        MongoDB:  env("MONGO_DB", defaultMongoDB),
        Interval: interval,
    }, nil
}

func loadFiles(files []string) error {
    if len(files) == 0 {
        files = []string{".env"}
    }
    for _, f := range files {
        if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
            return fmt.Errorf("load %s: %w", f, err)
        }
    }
    return nil
}

func FromEnv() (Config, error) {
    driver := strings.ToLower(env("STORE_DRIVER", DriverPostgres))
    if driver != DriverPostgres && driver != DriverMemory {
        return Config{}, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, driver)
    }

    var dbURL string
    if driver == DriverPostgres {
        var err error
        dbURL, err = databaseURL()
        if err != nil {
            return Config{}, err
        }
    }

    authToken := env("AUTH_TOKEN", "")
    if authToken == "" {
        return Config{}, errors.New("AUTH_TOKEN is required")
    }

    return Config{
        DatabaseURL:   dbURL,
        StoreDriver:   driver,
        AuthToken:     authToken,
        Port:          env("PORT", "8080"),
        MongoURI:      env("MONGO_URI", ""),
        MongoDB:       env("MONGO_DB", defaultMongoDB),
        KafkaBrokers:  splitList(env("KAFKA_BROKERS", "")),
        KafkaTopic:    env("KAFKA_TOPIC", "status-changes"),
        DirectorySeed: env("DIRECTORY_SEED", ""),
    }, nil
}

// nearbyInterval is zero when unset; the poller then uses its default.
func nearbyInterval() (time.Duration, error) {
    raw := env("NEARBY_INTERVAL", "")
    if raw == "" {
        return 0, nil
    }
    d, err := time.ParseDuration(raw)
    if err != nil || d <= 0 {
        return 0, fmt.Errorf("NEARBY_INTERVAL must be a positive duration, got %q", raw)
    }
    return d, nil
}

func databaseURL() (string, error) {
    if dbURL := env("DATABASE_URL", ""); dbURL != "" {
        return dbURL, nil
    }
    user := env("DB_USER", "")
    password := env("DB_PASSWORD", "")
    name := env("DB_NAME", "")
    if user == "" || password == "" || name == "" {
        return "", errors.New("DATABASE_URL or DB_USER/DB_PASSWORD/DB_NAME are required")
    }
    return fmt.Sprintf(
        "host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
        env("DB_HOST", "localhost"),
        env("DB_PORT", "5432"),
        user,
        password,
        name,
        env("DB_SSLMODE", "disable"),
    ), nil
}

func env(key, fallback string) string {
    if v := strings.TrimSpace(os.Getenv(key)); v != "" {
        return v
    }
    return fallback
}

func splitList(s string) []string {
    var out []string
    for _, part := range strings.Split(s, ",") {
        if part = strings.TrimSpace(part); part != "" {
            out = append(out, part)
        }
    }
    return out
}
