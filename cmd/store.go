package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/propmatch-cli/internal/audit"
	"github.com/sells-group/propmatch-cli/internal/extract"
	"github.com/sells-group/propmatch-cli/internal/patterns"
	"github.com/sells-group/propmatch-cli/internal/pipeline"
	"github.com/sells-group/propmatch-cli/internal/resolve"
	"github.com/sells-group/propmatch-cli/internal/store"
	"github.com/sells-group/propmatch-cli/internal/validate"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "propmatch.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// engine bundles the wired resolution pipeline for commands.
type engine struct {
	store    store.Store
	lib      *patterns.Library
	resolver *resolve.Resolver
	orch     *pipeline.Orchestrator
	auditor  *audit.Auditor
}

func (e *engine) Close() {
	_ = e.store.Close()
}

func initEngine(ctx context.Context) (*engine, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	lib, err := patterns.Load(cfg.Patterns.Path)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	resolver := resolve.New(st, lib)
	validator := validate.New(lib, resolver)
	extractor := extract.New(lib)
	orch := pipeline.New(extractor, validator, resolver, st, cfg.Patterns.MaxCandidates)

	return &engine{
		store:    st,
		lib:      lib,
		resolver: resolver,
		orch:     orch,
		auditor:  audit.New(orch, st),
	}, nil
}
