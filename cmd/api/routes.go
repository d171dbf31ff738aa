package main

import (
	"log"
	"net/http"

	httphandlers "fluxo/internal/interfaces/http"
	"fluxo/internal/shared/config"
	"fluxo/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Provider webhook (authenticated by shared secret, not by session)
	mux.HandleFunc("/webhooks/pluggy", deps.ConnectionHandler.HandleWebhook)

	// Session-authenticated dashboard routes
	authMiddleware := middleware.Auth(deps.JWT)

	mux.Handle("/api/dashboard", authMiddleware(http.HandlerFunc(deps.DashboardHandler.HandleGetDashboard)))
	mux.Handle("/api/transactions", authMiddleware(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))
	mux.Handle("/api/connections", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleConnections)))
	mux.Handle("/api/connections/token", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleConnectToken)))
	mux.Handle("/api/connections/", authMiddleware(http.HandlerFunc(deps.ConnectionHandler.HandleDisconnect)))
	mux.Handle("/api/keys", authMiddleware(http.HandlerFunc(deps.APIKeyHandler.HandleAPIKeys)))
	mux.Handle("/api/keys/", authMiddleware(http.HandlerFunc(deps.APIKeyHandler.HandleRevokeAPIKey)))

	// API-key-authenticated external routes
	apiKeyMiddleware := middleware.APIKeyAuth(deps.APIKeyRepo)

	mux.Handle("/external/transactions", apiKeyMiddleware(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))

	// Apply global middleware
	handler := middleware.Logging(middleware.Telemetry(middleware.Metrics(middleware.CORS(cfg.Server.AllowedHosts)(mux))))

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
