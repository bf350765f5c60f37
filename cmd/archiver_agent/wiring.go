package main

import (
	"context"
	"log"

	"github.com/daniela/profile-archiver/internal/config"
	"github.com/daniela/profile-archiver/internal/dedup"
	"github.com/daniela/profile-archiver/internal/extract"
	"github.com/daniela/profile-archiver/internal/ledger"
	"github.com/daniela/profile-archiver/internal/pin"
	"github.com/daniela/profile-archiver/internal/pipeline"
	"github.com/daniela/profile-archiver/internal/schemas"
	"github.com/daniela/profile-archiver/internal/snapshot"
)

// buildRunner assembles the pipeline stages from configuration. The returned
// cleanup func releases any durable-store connections.
func buildRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, func(), error) {
	cleanup := func() {}

	publisher := pin.NewClient(pin.Config{
		Endpoint:    cfg.PinEndpoint,
		APIKey:      cfg.PinAPIKey,
		GatewayBase: cfg.GatewayBase,
		Retries:     cfg.PublishRetries,
		RetryWait:   cfg.RetryWait,
		Verbose:     cfg.Verbose,
	})

	var store *dedup.Store
	if !cfg.DisableDedup {
		var backing dedup.Backing
		if cfg.DedupDatabaseURL != "" {
			pg, err := dedup.OpenPostgres(ctx, cfg.DedupDatabaseURL)
			if err != nil {
				return nil, nil, err
			}
			backing = pg
			cleanup = pg.Close
		}
		store = dedup.NewStore(backing)
	}

	var registry ledger.Registry
	if cfg.LedgerEndpoint != "" {
		registry = ledger.NewHTTPRegistry(ledger.Config{
			Endpoint: cfg.LedgerEndpoint,
			APIKey:   cfg.LedgerAPIKey,
		})
	}

	var diagnostics pipeline.DiagnosticSink
	if cfg.DiagnosticsDir != "" {
		diagnostics = &pipeline.FileSink{Dir: cfg.DiagnosticsDir}
	}

	schemaPath := schemas.ResolveSchemaPath(schemas.ProfileRecordSchema)
	if schemaPath == "" {
		log.Printf("[config] profile record schema not found, publishing without validation")
	}

	source := &snapshot.BrowserSource{
		NavTimeout:        cfg.NavTimeout,
		ReadyTimeout:      cfg.ReadyTimeout,
		ReadySelector:     extract.ReadySelector,
		CaptureScreenshot: cfg.DiagnosticsDir != "",
		Verbose:           cfg.Verbose,
	}

	runner := pipeline.New(pipeline.Options{
		Source:      source,
		Publisher:   publisher,
		Dedup:       store,
		Registry:    registry,
		Diagnostics: diagnostics,
		SchemaPath:  schemaPath,
		Verbose:     cfg.Verbose,
	})
	return runner, cleanup, nil
}
