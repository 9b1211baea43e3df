package google

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Config holds Google API settings
type Config struct {
	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string
	// Timeout bounds each API call; zero disables the per-call deadline
	Timeout time.Duration
	// ShareRole is the role granted to owners on their workspace resources
	ShareRole string
}

// Clients bundles the Sheets and Drive services used by the stores
type Clients struct {
	Sheets *sheets.Service
	Drive  *drive.Service
}

// NewClients builds authenticated Sheets and Drive services. Extra options
// are appended after the credential options.
func NewClients(ctx context.Context, cfg Config, logger *zap.Logger, extra ...option.ClientOption) (*Clients, error) {
	opts := []option.ClientOption{
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveFileScope),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, extra...)

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}

	logger.Info("Google API clients initialized",
		zap.Bool("credentials_file", cfg.CredentialsFile != ""),
		zap.Duration("timeout", cfg.Timeout))

	return &Clients{Sheets: sheetsSvc, Drive: driveSvc}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
