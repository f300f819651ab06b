package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/handler"
	"github.com/iliyamo/hotel-booking/internal/queue"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/router"
	"github.com/iliyamo/hotel-booking/internal/service"
)

func main() {
	cfg := config.Load()

	lg := log.New("hotel-booking")
	lg.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`)
	lg.SetLevel(logLevel(cfg.LogLevel))

	e := echo.New()
	e.HideBanner = true
	e.Logger = lg
	e.Validator = handler.NewValidator()

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				lg.Warnj(log.JSON{"id": v.RequestID, "method": v.Method, "uri": v.URI, "status": v.Status, "latency": v.Latency.String(), "error": v.Error.Error()})
				return nil
			}
			lg.Infoj(log.JSON{"id": v.RequestID, "method": v.Method, "uri": v.URI, "status": v.Status, "latency": v.Latency.String()})
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		lg.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.DBMigrate {
		mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			lg.Fatalf("migrate: %v", err)
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		lg.Warn("redis unavailable; caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A nil *queue.Publisher must not reach the service as a non-nil
	// interface.
	var events service.Publisher
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL)
		defer pub.Close()
		events = pub
		if cfg.ConsumerOn {
			consumer := &queue.Consumer{URL: cfg.RabbitURL, LogPath: cfg.BookingLogPath, Log: lg}
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					lg.Warnf("booking consumer stopped: %v", err)
				}
			}()
		}
	} else {
		lg.Warn("RABBITMQ_URL not set; booking events disabled")
	}

	ledger := repository.NewLedger(db)
	bookings := service.NewBookingService(ledger, events, lg, cfg.MaxStayDays)
	accommodations := service.NewAccommodationService(ledger, lg)

	router.RegisterRoutes(e, router.Deps{
		JWTSecret:      cfg.JWTSecret,
		DB:             db,
		Redis:          rdb,
		Cache:          config.LoadCacheConfig(),
		RateLimit:      config.LoadRateLimitConfig(),
		Auth:           handler.NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)),
		Accommodations: handler.NewAccommodationHandler(accommodations),
		Bookings:       handler.NewBookingHandler(bookings),
	})

	addr := ":" + cfg.Port
	go func() {
		lg.Infof("listening on %s (env=%s, max_stay_days=%d)", addr, cfg.Env, bookings.MaxStayDays())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		lg.Errorf("shutdown: %v", err)
	}
}

func logLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
