package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/identity"
	"github.com/sells-group/salespulse/internal/ingest"
	"github.com/sells-group/salespulse/internal/store"
)

func initStore() (store.Store, error) {
	st, err := store.New(cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initIngestor wires the resolver and store into an Ingestor. A missing
// override file is not an error; resolution falls through to the hash
// strategies.
func initIngestor(st store.Store) (*ingest.Ingestor, error) {
	overrides, err := identity.LoadOverrides(cfg.Ingest.OverridesPath)
	if err != nil {
		return nil, eris.Wrap(err, "load overrides")
	}
	if overrides.Len() > 0 {
		zap.L().Info("overrides loaded",
			zap.String("path", cfg.Ingest.OverridesPath),
			zap.Int("entries", overrides.Len()))
	}
	return ingest.New(st, identity.NewResolver(overrides)), nil
}
