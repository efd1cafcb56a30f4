package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mat-tom-creator/fileledger/internal/config"
	"github.com/mat-tom-creator/fileledger/internal/event"
	"github.com/mat-tom-creator/fileledger/internal/handler"
	"github.com/mat-tom-creator/fileledger/internal/middleware"
	"github.com/mat-tom-creator/fileledger/internal/model"
	"github.com/mat-tom-creator/fileledger/internal/repository"
	"github.com/mat-tom-creator/fileledger/internal/router"
	"github.com/mat-tom-creator/fileledger/internal/service"
	"github.com/mat-tom-creator/fileledger/internal/store"
)

// Identities the engine's own components use on the audit trail and
// the trusted-caller allowlist.
const (
	registryPrincipal = "svc:registry"
	transferPrincipal = "svc:transfers"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	kv, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	fileRepo := repository.NewFileRepository(kv)
	transferRepo := repository.NewTransferRepository(kv)
	auditRepo := repository.NewAuditRepository(kv)
	roleRepo := repository.NewRoleRepository(kv)
	slog.Info("store ready", "backend", cfg.StoreBackend)

	settings, err := service.NewSettings(service.SettingsView{
		MaxFileSize:       cfg.MaxFileSize,
		TransferExpiry:    cfg.TransferExpiry,
		MaxTransferExpiry: cfg.MaxTransferExpiry,
		DisputeTimeout:    cfg.DisputeTimeout,
		MinAdminThreshold: cfg.MinAdminThreshold,
	})
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to initialize settings: %w", err)
	}

	bus := event.NewBus()
	clock := service.SystemClock

	// Each component gets its own lock set. An operation holds at most
	// one key per set, so the nested registry -> ledger and
	// transfer -> registry -> ledger acquisitions cannot collide on a
	// shard and self-deadlock.
	registryLocks := store.NewKeyLock(64)
	ledgerLocks := store.NewKeyLock(64)
	transferLocks := store.NewKeyLock(64)

	policyService := service.NewPolicyService(roleRepo, settings, kv, clock, bus)
	if err := policyService.LoadSettings(context.Background()); err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to restore settings: %w", err)
	}
	if err := policyService.BootstrapAdmins(context.Background(), cfg.BootstrapAdmins); err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to bootstrap admins: %w", err)
	}
	for _, identity := range []string{registryPrincipal, transferPrincipal} {
		if err := policyService.Trust(context.Background(), identity); err != nil {
			closeStore()
			return nil, fmt.Errorf("failed to register trusted caller %s: %w", identity, err)
		}
	}

	ledgerService, err := service.NewLedgerService(auditRepo, policyService, ledgerLocks, clock, bus)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	registryService := service.NewRegistryService(fileRepo, ledgerService, policyService, settings, registryLocks, clock, bus,
		model.Principal{ID: registryPrincipal})
	policyService.BindAccessChecker(registryService)

	transferService := service.NewTransferService(transferRepo, registryService, ledgerService, settings, transferLocks, clock, bus,
		model.Principal{ID: transferPrincipal})

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, policyService)
	fileHandler := handler.NewFileHandler(registryService)
	transferHandler := handler.NewTransferHandler(transferService)
	auditHandler := handler.NewAuditHandler(ledgerService)
	adminHandler := handler.NewAdminHandler(policyService)

	events, unsubscribe := bus.Subscribe()
	go logEvents(events)

	appRouter := router.New(cfg, authMiddleware, fileHandler, transferHandler, auditHandler, adminHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		cleanupFuncs: []func(){
			unsubscribe,
			closeStore,
		},
	}, nil
}

func openStore(cfg *config.Config) (store.KV, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		slog.Info("connecting to PostgreSQL")
		pg, err := store.NewPostgres(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return pg, pg.Close, nil
	case "redis":
		slog.Info("connecting to Redis", "addr", cfg.RedisAddr)
		rd, err := store.NewRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return rd, func() { _ = rd.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}

func logEvents(events <-chan event.Event) {
	for e := range events {
		slog.Debug("event", "type", e.Type, "actor", e.ActorID, "id", e.ID)
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}
