package main

import (
	"log"

	"fluxo/internal/domain/connection"
	"fluxo/internal/domain/period"
	"fluxo/internal/domain/snapshot"
	"fluxo/internal/domain/sync"
	"fluxo/internal/infrastructure/pluggy"
	"fluxo/internal/infrastructure/postgres"
	httphandlers "fluxo/internal/interfaces/http"
	"fluxo/internal/shared/auth"
	"fluxo/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	DashboardHandler   *httphandlers.DashboardHandler
	TransactionHandler *httphandlers.TransactionHandler
	ConnectionHandler  *httphandlers.ConnectionHandler
	APIKeyHandler      *httphandlers.APIKeyHandler

	// Auth
	JWT        *auth.JWT
	APIKeyRepo auth.APIKeyRepository

	// Sync services (for the scheduler)
	TransactionSyncService *sync.TransactionSyncService
	CardSyncService        *sync.CardSyncService

	// Repositories (for the scheduler job provider)
	ConnectionRepo *postgres.ConnectionRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	// Initialize repositories
	connectionRepo := postgres.NewConnectionRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	cardAccountRepo := postgres.NewCreditCardAccountRepository(db)
	cardBillRepo := postgres.NewCreditCardBillRepository(db)
	apiKeyRepo := postgres.NewAPIKeyRepository(db)

	// Initialize aggregator client and sync services
	pluggyClient := pluggy.NewClient(cfg.Pluggy.ClientID, cfg.Pluggy.ClientSecret, cfg.Pluggy.BaseURL)
	transactionSyncService := sync.NewTransactionSyncService(pluggyClient, connectionRepo, transactionRepo, cfg.Dashboard.RetentionDays)
	cardSyncService := sync.NewCardSyncService(pluggyClient, connectionRepo, cardAccountRepo, cardBillRepo)

	// Initialize domain services
	connectionService := connection.NewService(connectionRepo, pluggyClient)
	snapshotService := snapshot.NewService(connectionRepo, transactionRepo, cardAccountRepo, cardBillRepo, snapshotOptions(cfg))

	// Initialize auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)

	// Initialize handlers
	dashboardHandler := httphandlers.NewDashboardHandler(snapshotService)
	transactionHandler := httphandlers.NewTransactionHandler(transactionRepo)
	connectionHandler := httphandlers.NewConnectionHandler(connectionService, cfg.Pluggy.WebhookSecret)
	apiKeyHandler := httphandlers.NewAPIKeyHandler(apiKeyRepo)

	return &Dependencies{
		DB:                     db,
		DashboardHandler:       dashboardHandler,
		TransactionHandler:     transactionHandler,
		ConnectionHandler:      connectionHandler,
		APIKeyHandler:          apiKeyHandler,
		JWT:                    jwt,
		APIKeyRepo:             apiKeyRepo,
		TransactionSyncService: transactionSyncService,
		CardSyncService:        cardSyncService,
		ConnectionRepo:         connectionRepo,
	}, nil
}

// snapshotOptions applies configured overrides on top of the stock dashboard
// settings.
func snapshotOptions(cfg *config.Config) snapshot.Options {
	opts := snapshot.DefaultOptions()
	opts.MonthlyGoal = cfg.Dashboard.MonthlyGoal
	opts.ChartDays = cfg.Dashboard.ChartDays
	if !period.IsPreset(opts.ChartDays) {
		log.Printf("Chart window of %d days is not a supported preset, using %d", opts.ChartDays, period.DefaultChartDays)
		opts.ChartDays = period.DefaultChartDays
	}
	opts.RetentionDays = cfg.Dashboard.RetentionDays
	if len(cfg.Dashboard.EntityDenylist) > 0 {
		opts.EntityFilter.Denylist = cfg.Dashboard.EntityDenylist
	}
	if len(cfg.Dashboard.CardCategories) > 0 {
		opts.PaymentMatcher.CategoryTerms = cfg.Dashboard.CardCategories
	}
	if len(cfg.Dashboard.CardTerms) > 0 {
		opts.PaymentMatcher.DescriptionTerms = cfg.Dashboard.CardTerms
	}
	return opts
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
