package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/socialflow-inc/socialflow-engine/pkg/audit"
	"github.com/socialflow-inc/socialflow-engine/pkg/auth"
	"github.com/socialflow-inc/socialflow-engine/pkg/config"
	"github.com/socialflow-inc/socialflow-engine/pkg/crypto"
	"github.com/socialflow-inc/socialflow-engine/pkg/database"
	"github.com/socialflow-inc/socialflow-engine/pkg/handlers"
	"github.com/socialflow-inc/socialflow-engine/pkg/llm"
	"github.com/socialflow-inc/socialflow-engine/pkg/middleware"
	"github.com/socialflow-inc/socialflow-engine/pkg/n8n"
	"github.com/socialflow-inc/socialflow-engine/pkg/repositories"
	"github.com/socialflow-inc/socialflow-engine/pkg/retry"
	"github.com/socialflow-inc/socialflow-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s",
			cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)))

	ctx := context.Background()

	// Migrations run over database/sql; the application itself uses pgx pools.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Auth
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	auth.InitSessionStore(cfg.SessionSecret)

	// Crypto
	encryptor, err := crypto.NewCredentialEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Failed to create credential encryptor", zap.Error(err))
	}

	// Repositories
	credentialRepo := repositories.NewCredentialRepository()
	webhookRepo := repositories.NewWebhookConfigRepository()
	auditRepo := repositories.NewCredentialAuditRepository()
	projectRepo := repositories.NewProjectRepository()

	// Outbound delivery
	deliveryRetry := retry.DefaultConfig()
	deliveryRetry.MaxRetries = cfg.Automation.DeliveryMaxRetries
	n8nClient := n8n.NewClient(cfg.Automation.DeliveryTimeout(), deliveryRetry, logger)

	// Services
	securityAuditor := audit.NewSecurityAuditor(logger)
	auditService := services.NewCredentialAuditService(auditRepo, logger)
	credentialService := services.NewCredentialService(credentialRepo, encryptor, auditService, logger)
	verifier := services.NewPlatformVerifier(logger)
	verificationService := services.NewVerificationService(credentialRepo, verifier, auditService, logger)
	webhookService := services.NewWebhookService(webhookRepo, n8nClient, securityAuditor, logger)
	projectService := services.NewProjectService(projectRepo, logger)

	// Content generation is optional; the handler is only mounted when the
	// AI endpoint is configured.
	var contentService services.ContentService
	if cfg.AI.IsAvailable() {
		llmClient, err := llm.NewClientFromProvider(cfg.AI.Provider, &llm.Config{
			Endpoint: cfg.AI.Endpoint,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create LLM client", zap.Error(err))
		}
		contentService = services.NewContentService(llmClient, logger)
	}

	mux := http.NewServeMux()
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger))

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAuthHandler(authService, cfg, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewProjectsHandler(projectService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewCredentialsHandler(credentialService, verificationService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewWebhooksHandler(webhookService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	if contentService != nil {
		handlers.NewContentHandler(contentService, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	}

	handler := middleware.RequestLogger(logger)(mux)
	addr := cfg.BindAddr + ":" + cfg.Port

	logger.Info("Starting socialflow-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))

	if cfg.TLSCertPath != "" {
		err = http.ListenAndServeTLS(addr, cfg.TLSCertPath, cfg.TLSKeyPath, handler)
	} else {
		err = http.ListenAndServe(addr, handler)
	}
	if err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds a production logger, or a development logger for local runs.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
