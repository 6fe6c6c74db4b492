package directory

import (
    "context"
    "fmt"
    "strings"
    "time"

    "github.com/shopspring/decimal"
    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"

    "marketplace.engine/internal/rates"
)

const providersCollection = "providers"

// Mongo reads provider profiles from the "providers" collection. Money values
// are stored as decimal strings.
type Mongo struct {
    db *mongo.Database
}

func NewMongo(db *mongo.Database) *Mongo {
    return &Mongo{db: db}
}

type providerDoc struct {
    ID                 string                   `bson:"_id"`
    Kind               string                   `bson:"kind"`
    Name               string                   `bson:"name"`
    Currency           string                   `bson:"currency"`
    KYCApproved        bool                     `bson:"kyc_approved"`
    SubscriptionActive bool                     `bson:"subscription_active"`
    IsOnline           bool                     `bson:"is_online"`
    Location           locationDoc              `bson:"location"`
    Rates              map[string]string        `bson:"rates,omitempty"`
    NetworkFees        map[string]networkFeeDoc `bson:"network_fees,omitempty"`
    MinAmount          string                   `bson:"min_amount,omitempty"`
    MaxAmount          string                   `bson:"max_amount,omitempty"`
    SupportedNetworks  []string                 `bson:"supported_networks,omitempty"`
    Fare               fareDoc                  `bson:"fare"`
}

type locationDoc struct {
    Lat       float64   `bson:"lat"`
    Lng       float64   `bson:"lng"`
    UpdatedAt time.Time `bson:"updated_at"`
}

type networkFeeDoc struct {
    Percentage string `bson:"percentage"`
    MinFee     string `bson:"min_fee,omitempty"`
}

type fareDoc struct {
    BaseRate    string `bson:"base_rate,omitempty"`
    PerKm       string `bson:"per_km,omitempty"`
    AirportFlat string `bson:"airport_flat,omitempty"`
}

// EnsureIndexes creates the indexes used by ListLocations.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
    indexModels := []mongo.IndexModel{
        {Keys: bson.D{{Key: "kind", Value: 1}, {Key: "is_online", Value: 1}}},
    }
    if _, err := m.db.Collection(providersCollection).Indexes().CreateMany(ctx, indexModels); err != nil {
        return fmt.Errorf("create provider indexes: %w", err)
    }
    return nil
}

func (m *Mongo) GetProvider(ctx context.Context, id string) (Provider, error) {
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()

    var doc providerDoc
    if err := m.db.Collection(providersCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
        if err == mongo.ErrNoDocuments {
            return Provider{}, ErrProviderNotFound
        }
        return Provider{}, fmt.Errorf("fetch provider %s: %w", id, err)
    }

    p, err := doc.toProvider()
    if err != nil {
        return Provider{}, err
    }
    if err := p.Validate(); err != nil {
        return Provider{}, err
    }
    return p, nil
}

// ListLocations returns online providers of kind that have passed KYC and
// hold an active subscription.
func (m *Mongo) ListLocations(ctx context.Context, kind Kind) ([]ProviderLocation, error) {
    ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
    defer cancel()

    filter := bson.M{
        "kind":                string(kind),
        "is_online":           true,
        "kyc_approved":        true,
        "subscription_active": true,
    }
    opts := options.Find().SetProjection(bson.M{"kind": 1, "is_online": 1, "location": 1})

    cur, err := m.db.Collection(providersCollection).Find(ctx, filter, opts)
    if err != nil {
        return nil, fmt.Errorf("fetch %s locations: %w", kind, err)
    }
    defer cur.Close(ctx)

    var docs []providerDoc
    if err := cur.All(ctx, &docs); err != nil {
        return nil, fmt.Errorf("decode %s locations: %w", kind, err)
    }

    out := make([]ProviderLocation, 0, len(docs))
    for _, d := range docs {
        out = append(out, ProviderLocation{
            ProviderID: d.ID,
            Kind:       Kind(d.Kind),
            Lat:        d.Location.Lat,
            Lng:        d.Location.Lng,
            IsOnline:   d.IsOnline,
            UpdatedAt:  d.Location.UpdatedAt,
        })
    }
    return out, nil
}

func (m *Mongo) UpdateLocation(ctx context.Context, loc ProviderLocation) error {
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()

    update := bson.M{"$set": bson.M{
        "is_online":           loc.IsOnline,
        "location.lat":        loc.Lat,
        "location.lng":        loc.Lng,
        "location.updated_at": loc.UpdatedAt,
    }}
    res, err := m.db.Collection(providersCollection).UpdateOne(ctx, bson.M{"_id": loc.ProviderID}, update)
    if err != nil {
        return fmt.Errorf("update location for %s: %w", loc.ProviderID, err)
    }
    if res.MatchedCount == 0 {
        return ErrProviderNotFound
    }
    return nil
}

func (d providerDoc) toProvider() (Provider, error) {
    p := Provider{
        ID:                d.ID,
        Kind:              Kind(d.Kind),
        Name:              d.Name,
        Currency:          d.Currency,
        SupportedNetworks: d.SupportedNetworks,
        IsOnline:          d.IsOnline,
        Location: ProviderLocation{
            ProviderID: d.ID,
            Kind:       Kind(d.Kind),
            Lat:        d.Location.Lat,
            Lng:        d.Location.Lng,
            IsOnline:   d.IsOnline,
            UpdatedAt:  d.Location.UpdatedAt,
        },
    }

    var err error
    if len(d.Rates) > 0 {
        p.Fees.ServiceRates = make(map[string]decimal.Decimal, len(d.Rates))
        for service, v := range d.Rates {
            if p.Fees.ServiceRates[service], err = parseDecimal(v); err != nil {
                return Provider{}, fmt.Errorf("%w: rate %s: %v", ErrInvalidProvider, service, err)
            }
        }
    }
    if len(d.NetworkFees) > 0 {
        p.Fees.NetworkFees = make(map[string]rates.NetworkFee, len(d.NetworkFees))
        for network, nf := range d.NetworkFees {
            pct, err := parseDecimal(nf.Percentage)
            if err != nil {
                return Provider{}, fmt.Errorf("%w: network %s percentage: %v", ErrInvalidProvider, network, err)
            }
            minFee, err := parseDecimal(nf.MinFee)
            if err != nil {
                return Provider{}, fmt.Errorf("%w: network %s min fee: %v", ErrInvalidProvider, network, err)
            }
            p.Fees.NetworkFees[network] = rates.NetworkFee{Percentage: pct, MinFee: minFee}
        }
    }

    if p.Limits.Min, err = parseDecimal(d.MinAmount); err != nil {
        return Provider{}, fmt.Errorf("%w: min amount: %v", ErrInvalidProvider, err)
    }
    if p.Limits.Max, err = parseDecimal(d.MaxAmount); err != nil {
        return Provider{}, fmt.Errorf("%w: max amount: %v", ErrInvalidProvider, err)
    }

    if p.Fare.BaseRate, err = parseDecimal(d.Fare.BaseRate); err != nil {
        return Provider{}, fmt.Errorf("%w: base rate: %v", ErrInvalidProvider, err)
    }
    if p.Fare.PerKm, err = parseDecimal(d.Fare.PerKm); err != nil {
        return Provider{}, fmt.Errorf("%w: per km: %v", ErrInvalidProvider, err)
    }
    if p.Fare.AirportFlat, err = parseDecimal(d.Fare.AirportFlat); err != nil {
        return Provider{}, fmt.Errorf("%w: airport flat: %v", ErrInvalidProvider, err)
    }
    return p, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
    s = strings.TrimSpace(s)
    if s == "" {
        return decimal.Zero, nil
    }
    return decimal.NewFromString(s)
}
