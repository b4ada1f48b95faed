package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mollysec/molly/internal/application/usecase"
	"github.com/mollysec/molly/internal/domain/repository"
	"github.com/mollysec/molly/internal/domain/service"
	"github.com/mollysec/molly/internal/infrastructure/command"
	"github.com/mollysec/molly/internal/infrastructure/config"
	"github.com/mollysec/molly/internal/infrastructure/llm"
	_ "github.com/mollysec/molly/internal/infrastructure/llm/gemini" // register gemini provider factory
	_ "github.com/mollysec/molly/internal/infrastructure/llm/openai" // register openai provider factory
	"github.com/mollysec/molly/internal/infrastructure/nvd"
	"github.com/mollysec/molly/internal/infrastructure/persistence"
	"github.com/mollysec/molly/internal/infrastructure/prompt"
	"github.com/mollysec/molly/internal/infrastructure/report"
	"github.com/mollysec/molly/internal/infrastructure/scanner"
	httpServer "github.com/mollysec/molly/internal/interfaces/http"
)

// App is the dependency injection container. It wires persistence, the
// scan toolchain, the model provider, the chat registry and the HTTP
// API together.
type App struct {
	config *config.Config
	logger *zap.Logger
	db     *gorm.DB

	// repositories
	scanRepo    repository.ScanRepository
	hostRepo    repository.HostRepository
	serviceRepo repository.ServiceRepository
	findingRepo repository.FindingRepository

	// infrastructure
	executor *command.Executor
	profiles *scanner.ProfileStore
	nmap     *scanner.NmapScanner
	nvdAPI   *nvd.Client
	provider llm.Provider
	pdf      *report.PDFGenerator

	// domain services
	chats    *service.ChatRegistry
	activity *service.ActivityTracker
	resolver *service.CVEResolver

	// application services
	scanUseCase   *usecase.ScanUseCase
	reportUseCase *usecase.ReportUseCase
	orchestrator  *usecase.Orchestrator

	// interfaces
	sessions   *httpServer.AuthSessions
	httpServer *httpServer.Server

	// done stops the background loops: profile hot-reload and session
	// cleanup.
	done chan struct{}
}

// NewApp builds the full application, HTTP API included.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := app.initRepositories(false); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initDomainServices(); err != nil {
		return nil, fmt.Errorf("failed to init domain services: %w", err)
	}

	if err := app.initApplicationServices(); err != nil {
		return nil, fmt.Errorf("failed to init application services: %w", err)
	}

	if err := app.initInterfaces(); err != nil {
		return nil, fmt.Errorf("failed to init interfaces: %w", err)
	}

	return app, nil
}

// NewAppCLI builds a lightweight app for one-shot CLI commands.
// The database opens with silent logging and no HTTP server or session
// store is created.
func NewAppCLI(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config: cfg,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := app.initRepositories(true); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initDomainServices(); err != nil {
		return nil, fmt.Errorf("failed to init domain services: %w", err)
	}

	if err := app.initApplicationServices(); err != nil {
		return nil, fmt.Errorf("failed to init application services: %w", err)
	}

	// No initInterfaces: CLI commands talk to the use cases directly.
	return app, nil
}

// initRepositories opens the database and builds the four repositories.
func (app *App) initRepositories(silent bool) error {
	app.logger.Info("Initializing repositories",
		zap.String("database", app.config.Database.Type),
	)

	open := persistence.NewDBConnection
	if silent {
		open = persistence.NewDBConnectionSilent
	}
	db, err := open(&app.config.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db

	app.scanRepo = persistence.NewGormScanRepository(db)
	app.hostRepo = persistence.NewGormHostRepository(db)
	app.serviceRepo = persistence.NewGormServiceRepository(db)
	app.findingRepo = persistence.NewGormFindingRepository(db)

	return nil
}

// initInfrastructure builds the scan toolchain, the NVD client, the
// model provider and the PDF generator.
func (app *App) initInfrastructure() error {
	app.logger.Info("Initializing infrastructure")

	app.executor = command.NewExecutor(app.config.Scanner.Timeout, app.logger)

	profiles, err := scanner.NewProfileStore(app.config.Scanner.ProfilesPath, app.logger)
	if err != nil {
		return fmt.Errorf("failed to load scan profiles: %w", err)
	}
	app.profiles = profiles

	app.nmap = scanner.NewNmapScanner(
		app.config.Scanner.NmapPath,
		app.profiles,
		app.executor,
		app.logger,
	)

	app.nvdAPI = nvd.NewClient(nvd.Config{
		BaseURL:        app.config.NVD.BaseURL,
		APIKey:         app.config.NVD.APIKey,
		ResultsPerPage: app.config.NVD.ResultsPerPage,
		Timeout:        app.config.NVD.Timeout,
		RequestsPer30s: app.config.NVD.RateLimit,
	}, app.logger)

	provider, err := llm.CreateProvider(llm.ProviderConfig{
		Name:    app.config.LLM.Provider,
		Type:    app.config.LLM.Provider,
		BaseURL: app.config.LLM.BaseURL,
		APIKey:  app.config.LLM.APIKey,
		Model:   app.config.LLM.Model,
		Timeout: app.config.LLM.Timeout,
	}, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	app.provider = provider
	app.logger.Info("LLM provider initialized",
		zap.String("provider", provider.Name()),
		zap.String("model", app.config.LLM.Model),
	)

	pdf, err := report.NewPDFGenerator(app.config.Reports.OutputDir, app.logger)
	if err != nil {
		return fmt.Errorf("failed to init PDF generator: %w", err)
	}
	app.pdf = pdf

	return nil
}

// initDomainServices builds the chat registry, the activity tracker and
// the CVE resolver.
func (app *App) initDomainServices() error {
	app.logger.Info("Initializing domain services")

	app.chats = service.NewChatRegistry(
		app.provider,
		prompt.SystemPrompt,
		prompt.Declarations(),
		app.config.LLM.Model,
		app.logger,
	)
	app.activity = service.NewActivityTracker(app.logger)
	app.resolver = service.NewCVEResolver(app.nvdAPI, app.logger)

	return nil
}

// initApplicationServices builds the use cases and the orchestrator.
func (app *App) initApplicationServices() error {
	app.logger.Info("Initializing application services")

	app.scanUseCase = usecase.NewScanUseCase(
		app.scanRepo,
		app.hostRepo,
		app.serviceRepo,
		app.findingRepo,
		app.nmap,
		app.resolver,
		app.activity,
		prompt.VulnerabilityAnalysisTemplate,
		app.config.NVD.MaxParallel,
		app.logger,
	)

	app.reportUseCase = usecase.NewReportUseCase(
		app.scanRepo,
		app.hostRepo,
		app.serviceRepo,
		app.findingRepo,
		report.NewFormatter(),
		app.pdf,
		app.activity,
		app.logger,
	)

	app.orchestrator = usecase.NewOrchestrator(
		app.chats,
		app.scanUseCase,
		app.reportUseCase,
		app.config.Scanner.DefaultProfile,
		app.logger,
	)

	return nil
}

// initInterfaces builds the auth session store and the HTTP server.
func (app *App) initInterfaces() error {
	app.logger.Info("Initializing interfaces")

	app.sessions = httpServer.NewAuthSessions(app.config.Auth.SessionTTL, app.logger)

	app.httpServer = httpServer.NewServer(
		httpServer.Config{
			Host: app.config.Server.Host,
			Port: app.config.Server.Port,
			Mode: app.config.Server.Mode,
		},
		app.orchestrator,
		app.scanRepo,
		app.activity,
		app.sessions,
		app.config.Auth.Username,
		app.config.Auth.Password,
		app.logger,
	)

	return nil
}

// Start launches the HTTP server and the background loops.
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	if err := app.profiles.StartWatching(app.done); err != nil {
		app.logger.Warn("Scan profile hot-reload unavailable", zap.Error(err))
	}

	if app.sessions != nil {
		app.sessions.StartCleanup(app.config.Auth.CleanupInterval, app.done)
	}

	if app.httpServer != nil {
		if err := app.httpServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	app.logger.Info("Application started successfully")
	return nil
}

// Stop shuts the application down in reverse start order.
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	close(app.done)

	if app.httpServer != nil {
		if err := app.httpServer.Stop(ctx); err != nil {
			app.logger.Error("Failed to stop HTTP server", zap.Error(err))
		}
	}

	if err := app.profiles.Close(); err != nil {
		app.logger.Error("Failed to close profile watcher", zap.Error(err))
	}

	if app.db != nil {
		sqlDB, err := app.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				app.logger.Error("Failed to close database connection", zap.Error(err))
			}
		}
	}

	app.logger.Info("Application stopped successfully")
	return nil
}

// Orchestrator returns the chat orchestrator.
func (app *App) Orchestrator() *usecase.Orchestrator {
	return app.orchestrator
}

// ScanUseCase returns the scan pipeline (used by the CLI scan command).
func (app *App) ScanUseCase() *usecase.ScanUseCase {
	return app.scanUseCase
}

// ReportUseCase returns the report use case (used by the CLI scan command).
func (app *App) ReportUseCase() *usecase.ReportUseCase {
	return app.reportUseCase
}

// Chats returns the chat registry (used by the CLI scan command).
func (app *App) Chats() *service.ChatRegistry {
	return app.chats
}

// Scans returns the scan repository (used by the CLI scans listing).
func (app *App) Scans() repository.ScanRepository {
	return app.scanRepo
}

// Logger returns the application logger.
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// AppConfig returns the loaded configuration.
func (app *App) AppConfig() *config.Config {
	return app.config
}
