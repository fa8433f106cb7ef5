package cli

import (
	"context"
	"net/http"

	"github.com/dl-alexandre/sheetmirror/internal/api"
	"github.com/dl-alexandre/sheetmirror/internal/auth"
	"github.com/dl-alexandre/sheetmirror/internal/changes"
	"github.com/dl-alexandre/sheetmirror/internal/config"
	"github.com/dl-alexandre/sheetmirror/internal/destination"
	"github.com/dl-alexandre/sheetmirror/internal/files"
	"github.com/dl-alexandre/sheetmirror/internal/logging"
	"github.com/dl-alexandre/sheetmirror/internal/records"
	"github.com/dl-alexandre/sheetmirror/internal/resolver"
	"github.com/dl-alexandre/sheetmirror/internal/scratch"
	"github.com/dl-alexandre/sheetmirror/internal/sheets"
	syncengine "github.com/dl-alexandre/sheetmirror/internal/sync"
	"github.com/dl-alexandre/sheetmirror/internal/sync/mirror"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
)

// googleClients bundles the authenticated Drive and Sheets managers
type googleClients struct {
	client *api.Client
	files  *files.Manager
	sheets *sheets.Manager
}

func newGoogleClients(ctx context.Context, cfg *config.Config) (*googleClients, error) {
	keyData, err := auth.ReadServiceAccountKey(cfg.ServiceAccountKeyFile, cfg.ServiceAccountKeyJSON)
	if err != nil {
		return nil, err
	}
	creds, key, err := auth.LoadServiceAccount(ctx, keyData, utils.ScopesMirror)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded service account", logging.F("client_email", key.ClientEmail))

	var base http.RoundTripper
	if httpDebug != nil {
		base = httpDebug
	}
	factory := auth.NewServiceFactory(creds.TokenSource, base)

	driveSvc, err := factory.CreateDriveService(ctx)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeAuthRequired, err, "failed to create Drive service")
	}
	sheetsSvc, err := factory.CreateSheetsService(ctx)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeAuthRequired, err, "failed to create Sheets service")
	}

	client := api.NewClient(cfg.MaxRetries, cfg.RetryBaseDelay, logger)
	return &googleClients{
		client: client,
		files:  files.NewManager(client, driveSvc),
		sheets: sheets.NewManager(client, sheetsSvc),
	}, nil
}

// newDialer builds the FTP dialer, reading the password from the secret store when configured
func newDialer(cfg *config.Config) (destination.Dialer, error) {
	if cfg.FTPPasswordKeyring {
		store, err := openSecretStore()
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolveFTPPassword(store); err != nil {
			return nil, err
		}
	}
	return destination.NewFTPDialer(destination.FTPConfig{
		Addr:        cfg.FTPAddr(),
		User:        cfg.FTPUser,
		Password:    cfg.FTPPassword,
		Timeout:     cfg.FTPTimeout(),
		ExplicitTLS: cfg.FTPTLS,
	}, logger), nil
}

func openSecretStore() (auth.SecretStore, error) {
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	store, err := auth.NewSecretStore(utils.KeyringService, dir)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeConfigurationMissing, err, "failed to open secret store")
	}
	return store, nil
}

func newMirror(gc *googleClients, cfg *config.Config) (*mirror.Mirror, error) {
	store, err := newScratch(cfg)
	if err != nil {
		return nil, err
	}
	return mirror.New(resolver.New(gc.files, gc.client.ResourceKeys()), store, logger), nil
}

func newScratch(cfg *config.Config) (*scratch.Store, error) {
	if cfg.ScratchDir == "" {
		return scratch.NewMemory(), nil
	}
	store, err := scratch.NewOS(cfg.ScratchDir)
	if err != nil {
		return nil, utils.WrapAppError(utils.ErrCodeConfigurationMissing, err, "failed to prepare scratch directory %s", cfg.ScratchDir)
	}
	return store, nil
}

// newEngine wires the sheet feed, the change detector, the mirror and the destination
func newEngine(ctx context.Context, cfg *config.Config) (*syncengine.Engine, error) {
	if err := cfg.RequireSync(); err != nil {
		return nil, err
	}
	gc, err := newGoogleClients(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m, err := newMirror(gc, cfg)
	if err != nil {
		return nil, err
	}
	dialer, err := newDialer(cfg)
	if err != nil {
		return nil, err
	}

	feed := sheets.NewFeed(gc.sheets, cfg.SpreadsheetID, cfg.SheetRange)
	detector := changes.NewDetector(feed, changes.NewSnapshotSlot(), logger)
	return syncengine.NewEngine(detector, m, dialer, syncengine.Options{
		Concurrency: cfg.Concurrency,
		RunTimeout:  cfg.RunTimeout(),
	}, logger), nil
}

// newRecordsSyncer opens the record store and wires the records sheet to it.
// The caller closes the returned store.
func newRecordsSyncer(ctx context.Context, cfg *config.Config) (*records.Syncer, *records.Store, error) {
	if err := cfg.RequireRecords(); err != nil {
		return nil, nil, err
	}
	gc, err := newGoogleClients(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := records.Open(cfg.RecordsDBPath)
	if err != nil {
		return nil, nil, err
	}
	return records.NewSyncer(gc.sheets, store, cfg.SpreadsheetID, cfg.RecordsRange, cfg.RecordsCollection, logger), store, nil
}
