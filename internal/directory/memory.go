package directory

import (
    "context"
    "sort"
    "sync"
)

// Memory holds providers in process. Locations are listed for every
// registered provider of the given kind; callers filter on IsOnline.
type Memory struct {
    mu        sync.RWMutex
    providers map[string]Provider
}

func NewMemory(providers ...Provider) *Memory {
    m := &Memory{providers: make(map[string]Provider, len(providers))}
    for _, p := range providers {
        m.Put(p)
    }
    return m
}

func (m *Memory) Put(p Provider) {
    m.mu.Lock()
    defer m.mu.Unlock()

    p.Location.ProviderID = p.ID
    p.Location.Kind = p.Kind
    p.Location.IsOnline = p.IsOnline
    m.providers[p.ID] = p
}

func (m *Memory) UpdateLocation(ctx context.Context, loc ProviderLocation) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    p, ok := m.providers[loc.ProviderID]
    if !ok {
        return ErrProviderNotFound
    }
    loc.Kind = p.Kind
    p.Location = loc
    p.IsOnline = loc.IsOnline
    m.providers[p.ID] = p
    return nil
}

func (m *Memory) GetProvider(ctx context.Context, id string) (Provider, error) {
    if err := ctx.Err(); err != nil {
        return Provider{}, err
    }
    m.mu.RLock()
    defer m.mu.RUnlock()

    p, ok := m.providers[id]
    if !ok {
        return Provider{}, ErrProviderNotFound
    }
    if err := p.Validate(); err != nil {
        return Provider{}, err
    }
    return p, nil
}

func (m *Memory) ListLocations(ctx context.Context, kind Kind) ([]ProviderLocation, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    m.mu.RLock()
    defer m.mu.RUnlock()

    var out []ProviderLocation
    for _, p := range m.providers {
        if p.Kind == kind {
            out = append(out, p.Location)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
    return out, nil
}
