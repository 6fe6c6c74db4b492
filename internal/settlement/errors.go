package settlement

import (
    "errors"
    "fmt"

    "marketplace.engine/internal/directory"
    "marketplace.engine/internal/store"
)

var (
    ErrAmountOutOfRange  = errors.New("amount out of range")
    ErrInvalidTransition = errors.New("invalid transition")
    // ErrNotPending also matches ErrInvalidTransition.
    ErrNotPending            = fmt.Errorf("%w: record is not pending", ErrInvalidTransition)
    ErrUnauthorized          = errors.New("unauthorized")
    ErrNotFound              = store.ErrNotFound
    ErrStorageUnavailable    = errors.New("storage unavailable")
    ErrDirectoryUnavailable  = errors.New("provider directory unavailable")
    ErrInvalidInput          = errors.New("invalid input")
    ErrProviderMisconfigured = errors.New("provider misconfigured")
)

var domainErrors = []error{
    ErrAmountOutOfRange,
    ErrInvalidTransition,
    ErrUnauthorized,
    ErrNotFound,
    ErrInvalidInput,
}

// storageErr passes domain errors through and marks everything else as a
// transient storage failure. The caller decides whether to retry.
func storageErr(err error) error {
    if err == nil {
        return nil
    }
    for _, d := range domainErrors {
        if errors.Is(err, d) {
            return err
        }
    }
    return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func directoryErr(id string, err error) error {
    switch {
    case errors.Is(err, directory.ErrProviderNotFound):
        return fmt.Errorf("%w: provider %s", ErrNotFound, id)
    case errors.Is(err, directory.ErrInvalidProvider):
        return fmt.Errorf("%w: %v", ErrProviderMisconfigured, err)
    }
    return fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
}
