package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		ticketRepo       repository.TicketRepository
		historyRepo      repository.HistoryRepository
		commentRepo      repository.CommentRepository
		notificationRepo repository.NotificationRepository
		tenantRepo       repository.TenantRepository
		staffRepo        repository.StaffRepository
		assetRepo        repository.AssetRepository
		statsRepo        repository.StatsRepository
	)
	if pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		historyRepo = repository.NewHistoryRepository(pool)
		commentRepo = repository.NewCommentRepository(pool)
		notificationRepo = repository.NewNotificationRepository(pool)
		tenantRepo = repository.NewTenantRepository(pool)
		staffRepo = repository.NewStaffRepository(pool)
		assetRepo = repository.NewAssetRepository(pool)
		statsRepo = repository.NewStatsRepository(pool)
	} else {
		mem := repository.NewMemory()
		ticketRepo = mem.Tickets()
		historyRepo = mem.History()
		commentRepo = mem.Comments()
		notificationRepo = mem.Notifications()
		tenantRepo = mem.Tenants()
		staffRepo = mem.Staff()
		assetRepo = mem.Assets()
		statsRepo = mem.Stats()
		seedAdmin(ctx, cfg, staffRepo, logger)
	}

	var revocation auth.RevocationList
	var redisConn *persistence.Redis
	if cfg.Redis.Addr != "" {
		redisConn = persistence.NewRedis(cfg.Redis, logger)
		defer redisConn.Close()
		revocation = auth.NewRedisRevocationList(redisConn.Client)
	} else {
		revocation = auth.NewMemoryRevocationList()
	}

	metrics := observability.NewMetrics()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, revocation, tenantRepo, staffRepo, logger)

	dispatcher := events.NewInMemoryDispatcher(logger)
	registry := realtime.NewRegistry(cfg.Realtime.SendBuffer, logger, metrics)
	liveDispatcher := realtime.NewDispatcher(registry, logger, metrics)

	statsService := service.NewStatsService(statsRepo, cfg.Stats.TopAssets, metrics)
	router := service.NewNotificationRouter(notificationRepo, statsService, liveDispatcher, logger, metrics)
	router.Register(dispatcher)

	ticketService := service.NewTicketService(cfg.Ticket, service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		HistoryRepo: historyRepo,
		StaffRepo:   staffRepo,
		AssetRepo:   assetRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	authService := service.NewAuthService(cfg.Auth, tenantRepo, staffRepo, tokens, revocation, logger)

	if interval := cfg.Realtime.RevocationRecheck(); interval > 0 {
		go registry.RunRevocationSweeper(ctx, revocation, interval)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: cfg.App.Env == "production"})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisConn),
		Tenants:        handlers.NewTenantsHandler(authService),
		Staff:          handlers.NewStaffHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		Notifications:  handlers.NewNotificationsHandler(notificationRepo, cfg.Notification),
		Dashboard:      handlers.NewDashboardHandler(statsService),
		Assets:         handlers.NewAssetsHandler(assetRepo),
		WS:             httptransport.NewWSHandler(registry, ticketService, authMiddleware, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// seedAdmin provisions a default admin account when running on the
// in-memory store, so a fresh dev instance is immediately usable.
func seedAdmin(ctx context.Context, cfg *config.Config, staffRepo repository.StaffRepository, logger *zap.Logger) {
	if admins, err := staffRepo.ListAdmins(ctx); err == nil && len(admins) > 0 {
		return
	}
	email := "admin@localhost"
	hash, err := auth.HashPassword("admin-dev-password", cfg.Auth.BcryptCost)
	if err != nil {
		logger.Warn("failed to seed admin account", zap.Error(err))
		return
	}
	admin := &domain.StaffMember{
		Name:         "Admin",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.StaffRoleAdmin,
		Active:       true,
	}
	if err := staffRepo.Create(ctx, admin); err != nil {
		logger.Warn("failed to seed admin account", zap.Error(err))
		return
	}
	logger.Info("seeded dev admin account", zap.String("email", email))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
