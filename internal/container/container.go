package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/garyjia/voucher-sync/internal/config"
	apihttp "github.com/garyjia/voucher-sync/internal/interfaces/http"
	"github.com/garyjia/voucher-sync/pkg/utils"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	googleOpts []option.ClientOption

	records  *RecordBundle
	google   *GoogleBundle
	storage  *StorageBundle
	services *ServiceBundle
	server   *apihttp.Server

	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// Option customizes a Container.
type Option func(*Container)

// WithGoogleOptions appends client options to every Google API client.
func WithGoogleOptions(opts ...option.ClientOption) Option {
	return func(c *Container) {
		c.googleOpts = append(c.googleOpts, opts...)
	}
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	c := &Container{
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start initializes all components:
// 1. Record store
// 2. Google clients
// 3. Scratch storage and session store
// 4. Application services
// 5. HTTP server
//
// The HTTP server is built but not listening; run it with Server().Start.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	records, err := ProvideRecordStore(ctx, c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize record store: %w", err)
	}
	c.records = records
	c.logger.Info("Record store initialized", zap.String("driver", c.config.Database.Driver))

	google, err := ProvideGoogle(ctx, c.config.Google, c.logger, c.googleOpts...)
	if err != nil {
		return c.abortStart(fmt.Errorf("failed to initialize google clients: %w", err))
	}
	c.google = google

	storage, err := ProvideStorage(c.config, c.logger)
	if err != nil {
		return c.abortStart(fmt.Errorf("failed to initialize storage: %w", err))
	}
	c.storage = storage
	if c.config.Session.SweepInterval > 0 {
		c.storage.Sessions.Start(c.config.Session.SweepInterval)
	}
	c.logger.Info("Storage initialized", zap.String("render_dir", c.config.Voucher.RenderDir))

	services, err := ProvideServices(&ServiceDeps{
		Config:  c.config,
		Records: c.records.Store,
		Google:  c.google,
		Storage: c.storage,
		Logger:  c.logger,
	})
	if err != nil {
		return c.abortStart(fmt.Errorf("failed to initialize services: %w", err))
	}
	c.services = services

	c.server = apihttp.NewServer(
		apihttp.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
		},
		apihttp.CookieConfig{
			Name:   c.config.Session.CookieName,
			Secure: c.config.Session.Secure,
			MaxAge: c.config.Session.TTL,
		},
		services.Identity,
		services.Voucher,
		c.healthCheck,
		utils.NewKVLogger(c.logger),
	)

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// abortStart releases what a failed Start already opened. The container
// cannot be started again.
func (c *Container) abortStart(err error) error {
	c.closed.Store(true)
	if cerr := c.release(context.Background()); cerr != nil {
		c.logger.Error("Cleanup after failed start", zap.Error(cerr))
	}
	return err
}

// Close shuts down all components in reverse order. Every step runs even
// when an earlier one fails; the failures are returned together.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	err := c.release(context.Background())

	c.closed.Store(true)
	c.ready.Store(false)

	if err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) release(ctx context.Context) error {
	var result *multierror.Error

	if c.server != nil {
		if err := c.server.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("stop http server: %w", err))
		}
	}

	if c.storage != nil {
		c.storage.Sessions.Stop()
		c.logger.Info("Session sweeper stopped")
	}

	if c.records != nil {
		if err := c.records.Close(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("close record store: %w", err))
		} else {
			c.logger.Info("Record store closed")
		}
	}

	return result.ErrorOrNil()
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components. It takes no lock: the
// health endpoint may be serving while Close holds it.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	mark := func(name string, ok bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: ok, Message: msg}
		if !ok {
			status.Overall = false
		}
	}

	switch {
	case c.records == nil:
		mark("record_store", false, "not initialized")
	default:
		if err := c.records.Ping(ctx); err != nil {
			mark("record_store", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			mark("record_store", true, c.config.Database.Driver)
		}
	}

	if c.google != nil {
		mark("google", true, "")
	} else {
		mark("google", false, "not initialized")
	}

	if c.storage != nil {
		mark("sessions", true, fmt.Sprintf("active: %d", c.storage.Sessions.Len()))
	} else {
		mark("sessions", false, "not initialized")
	}

	if c.services != nil {
		mark("services", true, "")
	} else {
		mark("services", false, "not initialized")
	}

	return status
}

func (c *Container) healthCheck(ctx context.Context) error {
	status := c.Health(ctx)
	if status.Overall {
		return nil
	}
	var result *multierror.Error
	for name, comp := range status.Components {
		if !comp.Healthy {
			result = multierror.Append(result, fmt.Errorf("%s: %s", name, comp.Message))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	return errors.New("unhealthy")
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.services
}

// Server returns the HTTP server built by Start.
func (c *Container) Server() *apihttp.Server {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.server
}

// Logger returns the logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
