package app

import (
	"context"
	"fmt"
	"time"

	"payrollctl/internal/config"
	"payrollctl/internal/payroll"
	"payrollctl/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs payrollctl.
//
// Example usage:
//
//	cfg := app.NewConfig("", "", "debug", false)
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	status := application.Status()
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// The returned Application holds open resources and must be closed.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.Init(level, logging.FormatText, cfg.LogOutput)

	configDir := cfg.configDir()
	payrollCfg, err := config.LoadConfig(configDir)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load configuration from %s", configDir)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configDir, err)
	}

	if cfg.LogLevel == "" {
		// Validated by LoadConfig.
		level, _ = logging.ParseLevel(payrollCfg.Logging.Level)
	}
	logging.Init(level, payrollCfg.Logging.Format, cfg.LogOutput)

	if cfg.APIBaseURL != "" {
		payrollCfg.APIBaseURL = cfg.APIBaseURL
		if errs := payrollCfg.Validate(); errs.HasErrors() {
			return nil, fmt.Errorf("invalid --api value: %w", errs)
		}
	}
	if cfg.Ephemeral {
		payrollCfg.Storage.Backend = config.StorageBackendMemory
	}
	cfg.PayrollConfig = &payrollCfg

	services, err := InitializeServices(ctx, cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired components.
func (a *Application) Services() *Services {
	return a.services
}

// Payroll returns the resource client.
func (a *Application) Payroll() *payroll.Client {
	return a.services.Payroll
}

// Close releases the application's resources.
func (a *Application) Close() error {
	return a.services.Close()
}

// APIBaseURL is the backend the application talks to.
func (a *Application) APIBaseURL() string {
	return a.services.apiBaseURL
}

// RequestTimeout bounds every API request the dispatcher sends.
func (a *Application) RequestTimeout() time.Duration {
	return a.config.PayrollConfig.RequestTimeout
}
