// Package container provides dependency injection and lifecycle management
// for the voucher backend.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/application/service"
	"github.com/garyjia/voucher-sync/internal/config"
	"github.com/garyjia/voucher-sync/internal/infrastructure/external/google"
	"github.com/garyjia/voucher-sync/internal/infrastructure/persistence/mongostore"
	"github.com/garyjia/voucher-sync/internal/infrastructure/persistence/repository"
	"github.com/garyjia/voucher-sync/internal/infrastructure/session"
	"github.com/garyjia/voucher-sync/internal/storage"
	"github.com/garyjia/voucher-sync/internal/voucher"
	"github.com/garyjia/voucher-sync/pkg/database"
	"github.com/garyjia/voucher-sync/pkg/utils"
)

// RecordBundle holds the selected record store and its lifecycle hooks.
type RecordBundle struct {
	Store port.RecordStore
	Ping  func(ctx context.Context) error
	Close func(ctx context.Context) error
}

// GoogleBundle holds the Google-backed stores.
type GoogleBundle struct {
	Sheets   *google.SheetsStore
	Drive    *google.DriveStore
	UserInfo *google.UserInfoProvider
}

// StorageBundle holds local storage components.
type StorageBundle struct {
	Files    *storage.LocalFileStorage
	Sessions *session.MemoryStore
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Identity  service.IdentityService
	Workspace service.WorkspaceService
	Numbering service.NumberingService
	Voucher   service.VoucherService
}

// ServiceDeps holds everything ProvideServices wires together.
type ServiceDeps struct {
	Config  *config.Config
	Records port.RecordStore
	Google  *GoogleBundle
	Storage *StorageBundle
	Logger  *zap.Logger
}

// ProvideRecordStore opens the record store selected by cfg.Driver.
// SQLite databases are migrated; MongoDB collections get their indexes.
func ProvideRecordStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*RecordBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case config.DriverSQLite, "":
		return provideSQLite(ctx, cfg, logger)
	case config.DriverMongoDB:
		return provideMongo(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func provideSQLite(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*RecordBundle, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(ctx, database.Migrations()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repository.NewVoucherRepository(db, logger)

	return &RecordBundle{
		Store: repo,
		Ping:  db.PingContext,
		Close: func(context.Context) error { return db.Close() },
	}, nil
}

func provideMongo(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*RecordBundle, error) {
	client, mdb, err := mongostore.Connect(ctx, mongostore.Config{
		URI:            cfg.MongoURI,
		Database:       cfg.MongoDatabase,
		ConnectTimeout: cfg.ConnectTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	repo := mongostore.NewVoucherRepository(mdb, logger)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	return &RecordBundle{
		Store: repo,
		Ping:  func(ctx context.Context) error { return client.Ping(ctx, nil) },
		Close: client.Disconnect,
	}, nil
}

// ProvideGoogle builds the Sheets, Drive and userinfo adapters. extra
// options apply to every client.
func ProvideGoogle(ctx context.Context, cfg config.GoogleConfig, logger *zap.Logger, extra ...option.ClientOption) (*GoogleBundle, error) {
	clients, err := google.NewClients(ctx, google.Config{
		CredentialsFile: cfg.CredentialsFile,
		Timeout:         cfg.APITimeout,
		ShareRole:       cfg.ShareRole,
	}, logger, extra...)
	if err != nil {
		return nil, err
	}

	return &GoogleBundle{
		Sheets:   google.NewSheetsStore(clients.Sheets, cfg.APITimeout, logger),
		Drive:    google.NewDriveStore(clients.Drive, cfg.APITimeout, cfg.ShareRole, logger),
		UserInfo: google.NewUserInfoProvider(cfg.APITimeout, logger, extra...),
	}, nil
}

// ProvideStorage creates the scratch directory and the session store.
// Scratch files older than cfg.Voucher.ScratchMaxAge are swept on startup.
func ProvideStorage(cfg *config.Config, logger *zap.Logger) (*StorageBundle, error) {
	files, err := storage.NewLocalFileStorage(cfg.Voucher.RenderDir, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Voucher.ScratchMaxAge > 0 {
		n, err := files.Sweep(cfg.Voucher.ScratchMaxAge)
		if err != nil {
			logger.Warn("Scratch sweep failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("Removed stale scratch files", zap.Int("count", n))
		}
	}

	return &StorageBundle{
		Files:    files,
		Sessions: session.NewMemoryStore(logger),
	}, nil
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Config == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Records == nil || deps.Google == nil || deps.Storage == nil {
		return nil, fmt.Errorf("records, google and storage are required")
	}

	cfg := deps.Config
	kv := utils.NewKVLogger(deps.Logger)

	var wsOpts []service.WorkspaceOption
	if cfg.Google.ShareWithOwner {
		wsOpts = append(wsOpts, service.WithOwnerSharing(deps.Google.Drive, deps.Google.Drive))
	}

	identity := service.NewIdentityService(deps.Google.UserInfo, deps.Storage.Sessions, cfg.Session.TTL, kv)
	workspaces := service.NewWorkspaceService(deps.Records, deps.Google.Sheets, deps.Google.Drive, kv, wsOpts...)
	numbering := service.NewNumberingService(deps.Records, kv)

	vouchers := service.NewVoucherService(service.VoucherDeps{
		Repo:        deps.Records,
		Workspaces:  workspaces,
		Numbering:   numbering,
		Renderer:    voucher.NewPDFRenderer(voucher.NewLogoSet(cfg.Voucher.LogoDir), deps.Logger),
		Files:       deps.Storage.Files,
		Sheets:      deps.Google.Sheets,
		Documents:   deps.Google.Drive,
		Exporter:    voucher.NewExcelExporter(deps.Logger),
		Previewer:   voucher.NewPreviewer(cfg.Voucher.PreviewDPI),
		SpellAmount: voucher.AmountInWords,
		Logger:      kv,
	})

	return &ServiceBundle{
		Identity:  identity,
		Workspace: workspaces,
		Numbering: numbering,
		Voucher:   vouchers,
	}, nil
}
