package main

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

	"github.com/mehrbod2002/equitywatch/internal/api"
	"github.com/mehrbod2002/equitywatch/internal/auth"
	"github.com/mehrbod2002/equitywatch/internal/config"
	"github.com/mehrbod2002/equitywatch/internal/repository"
	"github.com/mehrbod2002/equitywatch/internal/repository/memstore"
	"github.com/mehrbod2002/equitywatch/internal/service"
	"github.com/mehrbod2002/equitywatch/internal/ws"
	"github.com/mehrbod2002/equitywatch/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stores struct {
	users      repository.UserRepository
	accounts   repository.AccountRepository
	alerts     repository.AlertRepository
	tradeInfo  repository.TradeInfoRepository
	alarms     repository.MobileAlarmRepository
	logs       repository.LogRepository
	disconnect func(context.Context) error
}

func openMongo(ctx context.Context, cfg *config.Config) (*stores, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	if err := repository.EnsureIndexes(pingCtx, client.Database(cfg.DBName)); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return &stores{
		users:      repository.NewUserRepository(client, cfg.DBName, repository.UsersCollection),
		accounts:   repository.NewAccountRepository(client, cfg.DBName, repository.AccountsCollection),
		alerts:     repository.NewAlertRepository(client, cfg.DBName, repository.AlertsCollection),
		tradeInfo:  repository.NewTradeInfoRepository(client, cfg.DBName, repository.TradeInfoCollection),
		alarms:     repository.NewMobileAlarmRepository(client, cfg.DBName, repository.MobileAlarmCollection),
		logs:       repository.NewLogRepository(client, cfg.DBName, repository.LogsCollection),
		disconnect: client.Disconnect,
	}, nil
}

func openMemory() *stores {
	store := memstore.New()
	return &stores{
		users:      store,
		accounts:   store,
		alerts:     store,
		tradeInfo:  store,
		alarms:     store,
		logs:       store,
		disconnect: func(context.Context) error { return nil },
	}
}

// @title Equitywatch API
// @version 1.0
// @description Account administration and equity-threshold alert configuration for trading accounts.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *stores
	switch cfg.StorageDriver {
	case config.StorageMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		st = openMemory()
	default:
		st, err = openMongo(ctx, cfg)
		if err != nil {
			slog.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
	}
	defer func() {
		if err := st.disconnect(context.Background()); err != nil {
			slog.Warn("storage disconnect failed", "error", err)
		}
	}()

	if err := config.EnsureAdminUser(ctx, st.users, cfg.AdminEmail, cfg.AdminPass); err != nil {
		slog.Error("failed to ensure admin user", "error", err)
		os.Exit(1)
	}

	hub := ws.NewHub()
	go hub.Run(ctx)

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	wsHandler := ws.NewWebSocketHandler(hub, issuer)

	authService := service.NewAuthService(st.users, st.accounts, issuer)
	agentService := service.NewAgentService(st.users, st.accounts, hub)
	accountService := service.NewAccountService(st.accounts, st.users, st.alarms, hub)
	alertService := service.NewAlertService(st.alerts, st.tradeInfo, st.accounts, hub)
	dashboardService := service.NewDashboardService(st.users, st.accounts)
	logService := service.NewLogService(st.logs)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api.SetupRoutes(r, cfg, issuer, authService, agentService, accountService, alertService, dashboardService, logService, wsHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting server", "addr", addr, "storage", cfg.StorageDriver)
		slog.Info("swagger UI available", "url", fmt.Sprintf("http://%s/swagger/index.html", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}
