// Package app собирает зависимости распознавания из конфигурации.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"plate-service/internal/client"
	"plate-service/internal/config"
	"plate-service/internal/db"
	"plate-service/internal/recognition"
	"plate-service/internal/repository"
	"plate-service/internal/service"
	"plate-service/internal/vision"
)

type Components struct {
	DB           *gorm.DB
	Vehicles     *repository.VehicleRepository
	Employees    *repository.EmployeeRepository
	Dependencies *repository.DependencyRepository
	Events       *repository.RecognitionEventRepository
	Registry     recognition.Registry
	// Cache: nil, если REGISTRY_CACHE_TTL не задан.
	Cache      *repository.CachedRegistry
	Recognizer *recognition.Recognizer
	Metrics    *prometheus.Registry

	closers []func() error
	log     zerolog.Logger
}

func Build(cfg *config.Config, log zerolog.Logger) (*Components, error) {
	database, err := db.New(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	c := &Components{
		DB:           database,
		Vehicles:     repository.NewVehicleRepository(database),
		Employees:    repository.NewEmployeeRepository(database),
		Dependencies: repository.NewDependencyRepository(database),
		Events:       repository.NewRecognitionEventRepository(database),
		Metrics:      prometheus.NewRegistry(),
		log:          log,
	}
	if sqlDB, err := database.DB(); err == nil {
		c.closers = append(c.closers, sqlDB.Close)
	}

	c.Registry = c.Vehicles
	if ttl := cfg.Recognition.RegistryCacheTTL; ttl > 0 {
		c.Cache = repository.NewCachedRegistry(c.Vehicles, ttl)
		c.Registry = c.Cache
	}

	c.Metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := recognition.NewMetrics(c.Metrics)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	regions, reader, err := c.visionBackend(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}

	c.Recognizer = recognition.NewRecognizer(regions, reader, c.Registry, recognition.Options{
		MaxRegions:    cfg.Recognition.MaxRegions,
		MinRegionText: cfg.Recognition.MinRegionText,
		MinFrameText:  cfg.Recognition.MinFrameText,
	}, log, metrics)

	return c, nil
}

func (c *Components) visionBackend(cfg *config.Config) (recognition.RegionSource, recognition.TextReader, error) {
	switch cfg.Vision.Backend {
	case config.VisionBackendLocal:
		local, err := vision.NewLocal(cfg.Vision, cfg.Recognition.MaxRegions)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init local vision backend: %w", err)
		}
		c.closers = append(c.closers, local.Close)
		c.log.Info().Str("language", cfg.Vision.OCRLanguage).Msg("using local vision backend")
		return local, local, nil
	default:
		visionClient := client.NewVisionClient(cfg)
		c.log.Info().Str("url", cfg.Vision.ServiceURL).Msg("using remote vision backend")
		return visionClient, visionClient, nil
	}
}

// VehicleCache возвращает кэш реестра для сброса после регистрации машины.
func (c *Components) VehicleCache() service.VehicleCache {
	if c.Cache == nil {
		return nil
	}
	return c.Cache
}

func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.log.Warn().Err(err).Msg("failed to release resource")
		}
	}
	c.closers = nil
}
