package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httpadp "nftcredit-backend/internal/adapter/http"
	"nftcredit-backend/internal/adapter/middleware"
	"nftcredit-backend/internal/adapter/publisher"
	"nftcredit-backend/internal/adapter/registry"
	"nftcredit-backend/internal/adapter/repository/mysql"
	"nftcredit-backend/internal/config"
	"nftcredit-backend/internal/domain/event"
	domain "nftcredit-backend/internal/domain/loan"
	"nftcredit-backend/internal/infrastructure/cache"
	"nftcredit-backend/internal/infrastructure/db"
	"nftcredit-backend/internal/infrastructure/logging"
	"nftcredit-backend/internal/infrastructure/metrics"
	"nftcredit-backend/internal/infrastructure/scheduler"
	"nftcredit-backend/internal/usecase/gateway"
	"nftcredit-backend/internal/usecase/loan"
	"nftcredit-backend/internal/usecase/sweeper"
	"nftcredit-backend/pkg/money"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, logCloser := logging.Setup(logging.Options{
		Service: "nftcredit-api",
		Env:     cfg.ServiceEnv,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN(), logger)
	if err != nil {
		return err
	}
	if err := mysql.Migrate(gdb); err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB, 3*time.Second)
	if err != nil {
		return err
	}
	defer rdb.Close()

	m := metrics.New("nftcredit")
	events := publisher.NewCounted(newPublisher(cfg, logger), m.EventPublished)
	defer events.Close()

	reg := registry.NewStatic(cfg.Currencies(), cfg.Agents())
	tx := mysql.NewGormUoW(gdb)

	engine := loan.NewUsecase(tx, reg, reg, loan.Config{
		Custody: cfg.Engine(),
		Gateway: cfg.Gateway(),
		Schedule: domain.Schedule{
			TenorPeriod:   cfg.TenorPeriod,
			GracePeriod:   cfg.GracePeriod,
			LateTolerance: cfg.LateTolerance,
			ClaimWindow:   cfg.ClaimWindow,
		},
		Settings: domain.Settings{
			FeeTo:        cfg.FeeToAddress(),
			FeeCurrency:  cfg.FeeCurrencyAddress(),
			LateFee:      money.MustParse(cfg.LateFee),
			PenaltyFee:   money.MustParse(cfg.PenaltyFee),
			SalesManager: cfg.SalesManagerAddress(),
		},
	})
	engine.SetPublisher(events)
	engine.SetLogger(logger)

	gw, err := gateway.NewUsecase(tx, gateway.Config{
		Address:   cfg.Gateway(),
		Owners:    cfg.Owners(),
		Threshold: cfg.MultisigThreshold,
	})
	if err != nil {
		return err
	}
	gw.Register(loan.Target, engine)
	gw.SetPublisher(events)
	gw.SetLogger(logger)
	gw.OnExecute(m.GatewayExecution)

	sw := sweeper.NewUsecase(mysql.NewLoanRepository(gdb), engine, cfg.SweepBatchSize)
	sw.SetLogger(logger)
	sched := scheduler.New(logger, time.Minute)
	if err := sched.Add("loan-sweeper", cfg.SweepSchedule, func(ctx context.Context) {
		res, err := sw.Run(ctx)
		m.SweepTransitions(string(domain.StatusDefaulted), res.Defaulted)
		m.SweepTransitions(string(domain.StatusLiquidation), res.Liquidation)
		m.SweepTransitions(string(domain.StatusRestLocked), res.RestLocked)
		if err != nil {
			logger.Warn("sweep incomplete", "error", err)
		}
	}); err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.Observe(logger, m.ObserveRequest))

	h := httpadp.NewHandler()
	h.AddCheck("db", sqlDB.PingContext)
	h.AddCheck("redis", cache.Ping(rdb))
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("",
		middleware.JWTAuth([]byte(cfg.JWTSecret)),
		middleware.IdempotencyMiddleware(rdb, time.Duration(cfg.IdempTTLSecs)*time.Second))
	httpadp.Register(api, httpadp.NewLoanHandler(engine), httpadp.NewMultisigHandler(gw))

	addr := ":" + cfg.AppPort
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newPublisher connects to the broker when one is configured and logs events otherwise.
func newPublisher(cfg *config.Config, logger *slog.Logger) event.Publisher {
	if cfg.AMQPURL == "" {
		return publisher.NewLog(logger)
	}
	p, err := publisher.NewAMQP(cfg.AMQPURL, cfg.EventsExchange)
	if err != nil {
		logger.Warn("broker unavailable, logging events instead", "error", err)
		return publisher.NewLog(logger)
	}
	return publisher.Fanout{p, publisher.NewLog(logger)}
}
