package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	appservice "github.com/turtacn/oidc-core/internal/application/service"
	"github.com/turtacn/oidc-core/internal/config"
	domainservice "github.com/turtacn/oidc-core/internal/domain/service"
	"github.com/turtacn/oidc-core/internal/domain/repository"
	"github.com/turtacn/oidc-core/internal/infrastructure/audit"
	"github.com/turtacn/oidc-core/internal/infrastructure/configuration"
	"github.com/turtacn/oidc-core/internal/infrastructure/crypto"
	"github.com/turtacn/oidc-core/internal/infrastructure/httpclient"
	"github.com/turtacn/oidc-core/internal/infrastructure/monitoring"
	"github.com/turtacn/oidc-core/internal/infrastructure/persistence/gormrepo"
	"github.com/turtacn/oidc-core/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/oidc-core/internal/infrastructure/ratelimit"
	"github.com/turtacn/oidc-core/internal/infrastructure/redis"
	httpapi "github.com/turtacn/oidc-core/internal/interfaces/http"
	"github.com/turtacn/oidc-core/internal/interfaces/http/handlers"
	"github.com/turtacn/oidc-core/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file; empty searches ./config.yaml and /etc/oidc-core/")
	flag.Parse()

	startupLogger, err := monitoring.NewZapLogger(&config.LogConfig{Level: "info", Format: "json"})
	if err != nil {
		log.Fatalf("failed to create startup logger: %v", err)
	}

	loader := config.NewLoader(*configPath, startupLogger)
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	if err := run(cfg, loader, appLogger); err != nil {
		appLogger.Fatal(context.Background(), "server exited", err)
	}
}

func run(cfg *config.Config, loader *config.Loader, appLogger logger.Logger) error {
	ctx := context.Background()
	gin.SetMode(gin.ReleaseMode)

	tracing, err := monitoring.NewTracingManager(&cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer func() { _ = tracing.Shutdown(context.Background()) }()

	metrics := monitoring.NewMetrics(nil)

	// Tenant and client configuration, reloaded with the file.
	store := configuration.NewStaticStore(cfg)
	configCache := configuration.NewCache(cfg.Authorization.ConfigurationCacheTTL, metrics)
	servers := configCache.Server(store.ServerRepository())
	clients := configCache.Client(store.ClientRepository())
	loader.OnChange(func(next *config.Config) {
		store.Reload(next)
		configCache.Flush()
	})
	loader.Watch()

	redisConn := redis.NewRedisConnection(&cfg.Redis, appLogger)
	if err := redisConn.Connect(ctx); err != nil {
		return err
	}
	defer func() { _ = redisConn.Close() }()
	rdb := redisConn.GetClient()
	oauthSessions := redis.NewOAuthSessionStore(rdb)
	opSessions := redis.NewOPSessionStore(rdb)
	upstreamSessions := redis.NewUpstreamSessionStore(rdb)
	jtis := redis.NewJTIStore(rdb)

	db, err := gormrepo.Open(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := gormrepo.Migrate(db); err != nil {
			return err
		}
	}

	codes, closeCodes, err := codeGrantRepository(ctx, cfg, db, appLogger)
	if err != nil {
		return err
	}
	defer closeCodes()

	source, err := crypto.NewKeySource(cfg, appLogger)
	if err != nil {
		return err
	}
	keys := crypto.NewKeyManager(source, 5*time.Minute, appLogger)
	jose := crypto.NewJoseHandler(keys, appLogger)

	httpClient := httpclient.NewPooledClient()

	sinks := []domainservice.AuditService{audit.NewGormAuditService(db)}
	if cfg.Kafka.Enabled {
		producer := audit.NewKafkaProducer(cfg.Kafka, appLogger)
		defer func() { _ = producer.Close() }()
		sinks = append(sinks, producer)
	}
	auditSvc := audit.NewFanout(appLogger, sinks...)

	granted := gormrepo.NewAuthorizationGrantedRepo(db, appLogger)
	authorization := appservice.NewAuthorizationAppService(appservice.AuthorizationDependencies{
		Resolver: domainservice.NewRequestResolver(servers, clients, jose,
			httpclient.NewRequestObjectGateway(httpClient, 0, appLogger), appLogger),
		Verifier:  domainservice.NewRequestVerifier(appLogger),
		Evaluator: domainservice.NewAutoAuthorizationEvaluator(oauthSessions, granted, appLogger),
		Responses: domainservice.NewResponseCreator(jose,
			domainservice.NewJWTAccessTokenCreator(jose),
			domainservice.NewJWTIDTokenCreator(jose),
			nil),
		ErrorResponses:   domainservice.NewErrorResponseCreator(jose),
		Servers:          servers,
		Clients:          clients,
		Requests:         gormrepo.NewAuthorizationRequestRepo(db, appLogger),
		Codes:            codes,
		Tokens:           gormrepo.NewAuthorizedTokenRepo(db, appLogger),
		Granted:          granted,
		Sessions:         oauthSessions,
		OPSessions:       opSessions,
		UpstreamSessions: upstreamSessions,
		Audit:            auditSvc,
		Metrics:          metrics,
	}, appLogger)

	orchestrator := domainservice.NewLogoutOrchestrator(
		servers, clients, opSessions, oauthSessions,
		gormrepo.NewLogoutNotificationRepo(db, appLogger),
		jtis, jose,
		httpclient.NewBackChannelSender(httpClient, appLogger),
		domainservice.LogoutOrchestratorConfig{
			BackChannelTimeout: cfg.Logout.BackChannelTimeout(),
			JTITTL:             cfg.Logout.JTITTL(),
			Concurrency:        cfg.Logout.Concurrency,
		},
		appLogger,
	)
	logout := appservice.NewLogoutAppService(
		orchestrator,
		domainservice.NewLogoutTokenValidator(jose, jtis, cfg.Logout.JTITTL(), appLogger),
		servers, upstreamSessions, auditSvc, metrics, appLogger,
	)

	handlerSet := httpapi.Handlers{
		Authorization: handlers.NewAuthorizationHandler(authorization, appLogger),
		Logout:        handlers.NewLogoutHandler(logout, appLogger),
		JWKS:          handlers.NewJWKSHandler(keys, appLogger),
		Health: handlers.NewHealthHandler(map[string]handlers.Checker{
			"redis":    redisConn.Ping,
			"database": func(ctx context.Context) error { return gormrepo.Ping(ctx, db) },
		}, appLogger),
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewRedisRateLimiter(rdb, ratelimit.Config{
			Limit:  cfg.RateLimit.Requests,
			Window: cfg.RateLimit.Window,
		}, appLogger)
		if err != nil {
			return err
		}
		handlerSet.RateLimiter = limiter
	}
	router := httpapi.NewRouter(cfg.Server, appLogger, metrics, handlerSet)

	errCh := make(chan error, 1)
	go func() { errCh <- router.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		appLogger.Info(ctx, "shutdown signal received", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return router.Stop(shutdownCtx)
}

// codeGrantRepository stores authorization codes in Postgres through pgx when a pool DSN is
// configured, and in the gorm database otherwise.
func codeGrantRepository(ctx context.Context, cfg *config.Config, db *gorm.DB, log logger.Logger) (repository.AuthorizationCodeGrantRepository, func(), error) {
	if cfg.Postgres.DSN == "" {
		return gormrepo.NewCodeGrantRepo(db, log), func() {}, nil
	}
	conn, err := postgres.NewDBConnection(ctx, &cfg.Postgres, log)
	if err != nil {
		return nil, nil, err
	}
	repo := postgres.NewCodeGrantRepository(conn, log)
	if err := repo.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return repo, conn.Close, nil
}
