// Copyright 2025 Patrick Deglon
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command qrwizard runs the trackable-QR-code link management service: an
// HTTP API plus the admin dashboard's static assets, backed by a local
// SQLite database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/soerfi/qr-wizard/internal/analytics"
	"github.com/soerfi/qr-wizard/internal/auth"
	"github.com/soerfi/qr-wizard/internal/conversions"
	"github.com/soerfi/qr-wizard/internal/geo"
	"github.com/soerfi/qr-wizard/internal/goals"
	"github.com/soerfi/qr-wizard/internal/httpapi"
	"github.com/soerfi/qr-wizard/internal/links"
	"github.com/soerfi/qr-wizard/internal/logging"
	"github.com/soerfi/qr-wizard/internal/monitor"
	"github.com/soerfi/qr-wizard/internal/redirect"
	"github.com/soerfi/qr-wizard/internal/retention"
	"github.com/soerfi/qr-wizard/internal/store"
	"github.com/soerfi/qr-wizard/internal/webassets"
	"github.com/soerfi/qr-wizard/internal/webauthz"
)

// config holds every environment-sourced setting, with the defaults the
// original app ships when an operator doesn't set them.
type config struct {
	port                  string
	logLevel              logging.Level
	requestTimeout        time.Duration
	databasePath          string
	ipHashSalt            string
	uniqueWindowHours     int
	dataRetentionDays     int
	publicBaseURL         string
	trackingParam         string
	secretKey             string
	adminPasswordHash     string
	geoIPDBPath           string
	staticAssetsPath      string
}

func loadConfig() config {
	return config{
		port:              envOr("PORT", "8080"),
		logLevel:          parseLevel(envOr("LOG_LEVEL", "info")),
		requestTimeout:    time.Duration(envOrInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		databasePath:      envOr("DATABASE_URL", "data/qr-wizard.db"),
		ipHashSalt:        os.Getenv("IP_HASH_SALT"),
		uniqueWindowHours: envOrInt("UNIQUE_WINDOW_HOURS", 24),
		dataRetentionDays: envOrInt("DATA_RETENTION_DAYS", 365),
		publicBaseURL:     os.Getenv("PUBLIC_BASE_URL"),
		trackingParam:     envOr("TRACKING_PARAM", "qr_tid"),
		secretKey:         os.Getenv("SECRET_KEY"),
		adminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		geoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		staticAssetsPath:  envOr("STATIC_ASSETS_PATH", "web/static"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseLevel(raw string) logging.Level {
	switch raw {
	case "debug":
		return logging.DebugLevel
	case "warn":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.InfoLevel
	}
}

func main() {
	cfg := loadConfig()
	logger := logging.New(cfg.logLevel, false)

	if cfg.ipHashSalt == "" {
		logger.Warn("IP_HASH_SALT is not set; visitor fingerprints will not be salted")
	}
	if cfg.adminPasswordHash == "" {
		logger.Error("ADMIN_PASSWORD_HASH is not set; the admin dashboard cannot be logged into")
	}

	db, err := store.Open(cfg.databasePath)
	if err != nil {
		logger.Error("failed to open store: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	var resolver geo.Resolver = geo.NullResolver{}
	if cfg.geoIPDBPath != "" {
		csvResolver, err := geo.LoadCSVResolver(cfg.geoIPDBPath)
		if err != nil {
			logger.Warn("failed to load GEOIP_DB_PATH %q, falling back to no geo resolution: %v", cfg.geoIPDBPath, err)
		} else {
			resolver = csvResolver
		}
	}

	linksManager := links.New(db, cfg.publicBaseURL, cfg.trackingParam)
	goalsManager := goals.New(db)
	conversionsManager := conversions.New(db, cfg.ipHashSalt)
	analyticsManager := analytics.New(db)
	redirectHandler := redirect.New(db, resolver, cfg.ipHashSalt, time.Duration(cfg.uniqueWindowHours)*time.Hour, cfg.trackingParam, logger)
	purger := retention.New(db, cfg.dataRetentionDays, logger)
	authenticator := auth.New(cfg.adminPasswordHash, cfg.secretKey)
	csrfStore := webauthz.NewTokenStore()
	assets := webassets.NewManager(cfg.staticAssetsPath, "/static", false)

	mon := monitor.New(30 * time.Second)
	mon.AddChecker(monitor.NewDatabaseChecker("database", func(ctx context.Context) error {
		return db.DB().PingContext(ctx)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go purger.RunEvery(ctx, 24*time.Hour)

	server := httpapi.NewServer(httpapi.Deps{
		Links:             linksManager,
		Goals:             goalsManager,
		Conversions:       conversionsManager,
		Analytics:         analyticsManager,
		Redirect:          redirectHandler,
		Retention:         purger,
		Auth:              authenticator,
		Monitor:           mon,
		CSRF:              csrfStore,
		Assets:            assets,
		Logger:            logger,
		UniqueWindowHours: cfg.uniqueWindowHours,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.port,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.requestTimeout,
		WriteTimeout: cfg.requestTimeout,
	}

	go func() {
		logger.Info("qr-wizard listening on :%s", cfg.port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	mon.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}
