package directory

import (
    "fmt"
    "os"

    "go.mongodb.org/mongo-driver/bson"
)

type seedFile struct {
    Providers []providerDoc `bson:"providers"`
}

// LoadSeed reads a {"providers": [...]} file in MongoDB extended JSON, the
// documents the providers collection holds, for the in-memory directory.
func LoadSeed(path string) ([]Provider, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read seed %s: %w", path, err)
    }
    return ParseSeed(data)
}

func ParseSeed(data []byte) ([]Provider, error) {
    var seed seedFile
    if err := bson.UnmarshalExtJSON(data, false, &seed); err != nil {
        return nil, fmt.Errorf("decode seed: %w", err)
    }

    providers := make([]Provider, 0, len(seed.Providers))
    for _, doc := range seed.Providers {
        p, err := doc.toProvider()
        if err != nil {
            return nil, err
        }
        if err := p.Validate(); err != nil {
            return nil, err
        }
        providers = append(providers, p)
    }
    return providers, nil
}
