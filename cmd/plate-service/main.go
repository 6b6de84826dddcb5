package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plate-service/internal/app"
	"plate-service/internal/auth"
	"plate-service/internal/config"
	httphandler "plate-service/internal/http"
	"plate-service/internal/http/middleware"
	"plate-service/internal/logger"
	"plate-service/internal/notify"
	"plate-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)
	appLogger, flushSentry, err := logger.WithSentry(appLogger, cfg.Telemetry.SentryDSN, cfg.Environment)
	if err != nil {
		appLogger.Warn().Err(err).Msg("sentry disabled")
	}
	defer flushSentry()

	components, err := app.Build(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to build recognition pipeline")
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher service.Publisher
	if cfg.MQTT.BrokerURL != "" {
		mqttPublisher := notify.NewMQTTPublisher(cfg.MQTT, appLogger)
		if err := mqttPublisher.Connect(ctx); err != nil {
			appLogger.Error().Err(err).Msg("MQTT unavailable, recognitions will not be published")
		} else {
			publisher = mqttPublisher
			defer mqttPublisher.Disconnect()
		}
	}

	recognitionService := service.NewRecognitionService(components.Recognizer, components.Events, publisher, appLogger)
	vehicleService := service.NewVehicleService(components.Vehicles, components.Employees, components.VehicleCache())
	employeeService := service.NewEmployeeService(components.Employees, components.Dependencies)
	directoryService := service.NewDirectoryService(components.Vehicles, components.Employees, components.Dependencies)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(
		recognitionService,
		vehicleService,
		employeeService,
		directoryService,
		cfg.HTTP.UploadMaxBytes,
		appLogger,
	)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, components.Metrics)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.Error().Err(err).Msg("failed to shutdown server")
		}
	}()

	appLogger.Info().Str("addr", addr).Str("vision", cfg.Vision.Backend).Msg("starting plate service")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
	appLogger.Info().Msg("plate service stopped")
}
